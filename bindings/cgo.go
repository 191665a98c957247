package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"sync"
	"unsafe"

	"github.com/nickyhof/TabDB"
	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/db"
)

var bindingIdentity = core.Identity{
	Name:  "TabDB Bindings",
	Email: "bindings@tabdb.local",
}

// Handle is an open instance with its own session. Calls on one handle
// run one at a time.
type Handle struct {
	mu       sync.Mutex
	instance *TabDB.Instance
	engine   *db.Engine
}

func (h *Handle) run(command string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.Handle(command)
}

var (
	handlesMu  sync.Mutex
	handles    = make(map[int]*Handle)
	nextHandle = 1
)

func register(instance *TabDB.Instance) C.int {
	handlesMu.Lock()
	defer handlesMu.Unlock()

	handle := nextHandle
	nextHandle++
	handles[handle] = &Handle{
		instance: instance,
		engine:   instance.Engine(bindingIdentity),
	}
	return C.int(handle)
}

func lookup(handle C.int) (*Handle, bool) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	h, ok := handles[int(handle)]
	return h, ok
}

//export tabdb_open_memory
func tabdb_open_memory() C.int {
	instance, err := TabDB.OpenMemory()
	if err != nil {
		return -1
	}
	return register(instance)
}

//export tabdb_open_file
func tabdb_open_file(path *C.char) C.int {
	instance, err := TabDB.OpenFile(C.GoString(path), "")
	if err != nil {
		return -1
	}
	return register(instance)
}

//export tabdb_close
func tabdb_close(handle C.int) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	delete(handles, int(handle))
}

// tabdb_handle runs one command and returns the same response text the
// server sends, without the EOT terminator. Free it with tabdb_free.
//
//export tabdb_handle
func tabdb_handle(handle C.int, command *C.char) *C.char {
	h, ok := lookup(handle)
	if !ok {
		return C.CString("[ERROR] Invalid handle.")
	}
	return C.CString(h.run(C.GoString(command)))
}

//export tabdb_free
func tabdb_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func main() {}

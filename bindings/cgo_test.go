//go:build cgo

package main

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nickyhof/TabDB"
)

func TestHandleConcurrentCalls(t *testing.T) {
	instance, err := TabDB.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open instance: %v", err)
	}
	id := register(instance)
	defer tabdb_close(id)

	h, ok := lookup(id)
	if !ok {
		t.Fatal("Expected registered handle")
	}
	for _, command := range []string{"CREATE DATABASE a;", "CREATE DATABASE b;", "USE a;", "CREATE TABLE t (n);", "USE b;", "CREATE TABLE t (n);"} {
		if got := h.run(command); got != "[OK]" {
			t.Fatalf("%s: %s", command, got)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			database := "a"
			if i%2 == 1 {
				database = "b"
			}
			if got := h.run(fmt.Sprintf("USE %s;", database)); got != "[OK]" {
				errs <- got
			}
			if got := h.run(fmt.Sprintf("INSERT INTO t VALUES (%d);", i)); got != "[OK]" {
				errs <- got
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("Unexpected response %s", e)
	}

	total := 0
	for _, database := range []string{"a", "b"} {
		h.run("USE " + database + ";")
		response := h.run("SELECT * FROM t;")
		total += strings.Count(response, "\n") - 2
	}
	if total != 20 {
		t.Errorf("Expected 20 rows across both databases, got %d", total)
	}
}

func TestLookupClosedHandle(t *testing.T) {
	instance, err := TabDB.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open instance: %v", err)
	}
	id := register(instance)
	tabdb_close(id)

	if _, ok := lookup(id); ok {
		t.Error("Expected closed handle to be gone")
	}
}

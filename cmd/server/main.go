package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nickyhof/TabDB"
	"github.com/nickyhof/TabDB/core"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	port := flag.Int("port", 8888, "TCP port to listen on")
	baseDir := flag.String("baseDir", "databases", "Data directory (memory if empty)")
	gitUrl := flag.String("gitUrl", "", "Git URL to clone the data directory from")
	tlsCert := flag.String("tlsCert", "", "TLS certificate file (enables TLS with -tlsKey)")
	tlsKey := flag.String("tlsKey", "", "TLS private key file")
	jwtSecret := flag.String("jwtSecret", "", "Shared secret for JWT authentication (enables AUTH)")
	jwtIssuer := flag.String("jwtIssuer", "", "Expected JWT issuer")
	jwtAudience := flag.String("jwtAudience", "", "Expected JWT audience")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("TabDB Server v%s\n", Version)
		return
	}

	var instance *TabDB.Instance
	var err error
	if *baseDir == "" {
		log.Println("Using memory persistence")
		instance, err = TabDB.OpenMemory()
	} else {
		log.Printf("Using file persistence: %s", *baseDir)
		instance, err = TabDB.OpenFile(*baseDir, *gitUrl)
	}
	if err != nil {
		log.Fatalf("Failed to initialize persistence: %v", err)
	}

	var server *Server
	if *jwtSecret != "" {
		log.Println("JWT authentication enabled")
		server = NewServerWithAuth(instance, &AuthConfig{
			Enabled:   true,
			JWTSecret: *jwtSecret,
			Issuer:    *jwtIssuer,
			Audience:  *jwtAudience,
		})
	} else {
		server = NewServer(instance, core.Identity{
			Name:  "TabDB Server",
			Email: "server@tabdb.local",
		})
	}

	addr := fmt.Sprintf(":%d", *port)
	if *tlsCert != "" && *tlsKey != "" {
		err = server.StartTLS(addr, *tlsCert, *tlsKey)
	} else {
		err = server.Start(addr)
	}
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	fmt.Println()
	fmt.Printf("TabDB Server v%s\n", Version)
	fmt.Printf("Listening on port %d\n", *port)
	fmt.Println("Send one command per line, 'quit' to disconnect")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	server.Stop()
	log.Println("Server stopped")
}

package main

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/nickyhof/TabDB"
	"github.com/nickyhof/TabDB/core"
)

// EndOfTransmission follows every response so clients know where it ends.
const EndOfTransmission = "\n\x04\n"

// Server is a TCP server that runs one command per line against TabDB.
type Server struct {
	listener   net.Listener
	instance   *TabDB.Instance
	identity   core.Identity
	authConfig *AuthConfig
	tlsEnabled bool
	done       chan struct{}
	wg         sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a server whose commits are all authored by identity.
func NewServer(instance *TabDB.Instance, identity core.Identity) *Server {
	return &Server{
		instance: instance,
		identity: identity,
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
}

// NewServerWithAuth creates a server that requires every connection to send
// AUTH JWT <token> first. Commits are authored by the token's identity.
func NewServerWithAuth(instance *TabDB.Instance, authConfig *AuthConfig) *Server {
	server := NewServer(instance, core.Identity{})
	server.authConfig = authConfig
	return server
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	log.Printf("TabDB server listening on %s", listener.Addr())

	go s.acceptLoop()
	return nil
}

// StartTLS is Start with TLS using the given certificate and key files.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.listener = listener
	s.tlsEnabled = true

	log.Printf("TabDB server listening on %s (TLS)", listener.Addr())

	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every open connection, then waits for
// their handlers to return.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

func (s *Server) authEnabled() bool {
	return s.authConfig != nil && s.authConfig.Enabled
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	log.Printf("Client connected: %s", conn.RemoteAddr())

	state := &ConnectionState{}
	if !s.authEnabled() {
		state.authenticate(s.instance, s.identity)
	}

	reader := bufio.NewReader(conn)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				select {
				case <-s.done:
				default:
					log.Printf("Read error from %s: %v", conn.RemoteAddr(), err)
				}
			}
			return
		}

		command := strings.TrimSpace(line)
		if command == "" {
			continue
		}
		if strings.EqualFold(command, "quit") || strings.EqualFold(command, "exit") {
			log.Printf("Client disconnected: %s", conn.RemoteAddr())
			return
		}

		response := s.handleCommand(command, state)
		if _, err := io.WriteString(conn, response+EndOfTransmission); err != nil {
			log.Printf("Write error to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) handleCommand(command string, state *ConnectionState) string {
	if isAuthCommand(command) {
		return s.handleAuth(command, state)
	}
	if !state.IsAuthenticated() {
		return "[ERROR] Authentication required."
	}
	return state.engine.Handle(command)
}

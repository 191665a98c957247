package main

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/TabDB"
	"github.com/nickyhof/TabDB/core"
)

func newTestInstance(t *testing.T) *TabDB.Instance {
	t.Helper()
	instance, err := TabDB.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to create instance: %v", err)
	}
	return instance
}

func setupTestServer(t *testing.T) (*Server, *TabDB.Instance) {
	t.Helper()
	instance := newTestInstance(t)
	server := NewServer(instance, core.Identity{Name: "test", Email: "test@test.com"})
	if err := server.Start(":0"); err != nil { // :0 picks a free port
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })
	return server, instance
}

func setupAuthTestServer(t *testing.T, secret string) (*Server, *TabDB.Instance) {
	t.Helper()
	instance := newTestInstance(t)
	server := NewServerWithAuth(instance, &AuthConfig{Enabled: true, JWTSecret: secret})
	if err := server.Start(":0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })
	return server, instance
}

type client struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

// send writes one command and reads back the response up to the EOT line.
func (c *client) send(command string) string {
	c.t.Helper()
	c.conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write([]byte(command + "\n")); err != nil {
		c.t.Fatalf("Failed to send %q: %v", command, err)
	}

	var lines []string
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			c.t.Fatalf("Failed to read response to %q: %v", command, err)
		}
		line = strings.TrimSuffix(line, "\n")
		if line == "\x04" {
			return strings.Join(lines, "\n")
		}
		lines = append(lines, line)
	}
}

func (c *client) expect(command, want string) {
	c.t.Helper()
	if got := c.send(command); got != want {
		c.t.Errorf("%s\n got: %q\nwant: %q", command, got, want)
	}
}

func TestServerStartStop(t *testing.T) {
	server, _ := setupTestServer(t)

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
	if server.TLSEnabled() {
		t.Error("Expected TLS to be disabled")
	}
}

func TestServerResponseFraming(t *testing.T) {
	server, _ := setupTestServer(t)

	conn, err := net.DialTimeout("tcp", server.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("CREATE DATABASE framing;\n")); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	want := "[OK]\n\x04\n"
	buf := make([]byte, len(want))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(buf) != want {
		t.Errorf("Expected %q, got %q", want, buf)
	}
}

func TestServerSession(t *testing.T) {
	server, _ := setupTestServer(t)
	c := dial(t, server.Addr())

	c.expect("CREATE DATABASE markbook;", "[OK]")
	c.expect("USE markbook;", "[OK]")
	c.expect("CREATE TABLE marks (name, mark, pass);", "[OK]")
	c.expect("INSERT INTO marks VALUES ('Steve', 65, TRUE);", "[OK]")
	c.expect("INSERT INTO marks VALUES ('Bob', 35, FALSE);", "[OK]")
	c.expect("SELECT * FROM marks WHERE pass == TRUE;", "[OK]\nid\tname\tmark\tpass\n1\tSteve\t65\tTRUE\n")
	c.expect("SELECT * FROM marks", `[ERROR] Expected ";" to terminate the query. Found "marks" instead.`)
	c.expect("SELECT * FROM crew;", `[ERROR] The table "crew" does not exist.`)
}

func TestServerConnectionsHaveOwnSelection(t *testing.T) {
	server, _ := setupTestServer(t)
	first := dial(t, server.Addr())
	second := dial(t, server.Addr())

	first.expect("CREATE DATABASE shared;", "[OK]")
	first.expect("USE shared;", "[OK]")
	first.expect("CREATE TABLE t (a);", "[OK]")

	second.expect("INSERT INTO t VALUES (1);", "[ERROR] You have not selected a [DatabaseName] to use yet.")
	second.expect("USE shared;", "[OK]")
	second.expect("INSERT INTO t VALUES (1);", "[OK]")

	first.expect("SELECT * FROM t;", "[OK]\nid\ta\n1\t1\n")
}

func TestServerSkipsBlankLinesAndQuits(t *testing.T) {
	server, _ := setupTestServer(t)
	c := dial(t, server.Addr())

	if _, err := c.conn.Write([]byte("\n   \n")); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	c.expect("CREATE DATABASE blank;", "[OK]")

	if _, err := c.conn.Write([]byte("quit\n")); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.reader.ReadByte(); err == nil {
		t.Error("Expected the server to close the connection")
	}
}

func TestIdentityInCommitsUnauthenticated(t *testing.T) {
	server, instance := setupTestServer(t)
	c := dial(t, server.Addr())

	c.expect("CREATE DATABASE ident;", "[OK]")
	c.expect("USE ident;", "[OK]")
	c.expect("CREATE TABLE t (a);", "[OK]")

	txn := instance.Persistence.LatestTransaction()
	if txn.Author != "test <test@test.com>" {
		t.Errorf("Expected commit author 'test <test@test.com>', got '%s'", txn.Author)
	}
	if txn.Message != "CREATE TABLE t (a);" {
		t.Errorf("Expected the command as commit message, got '%s'", txn.Message)
	}
}

func TestAuthRequired(t *testing.T) {
	server, _ := setupAuthTestServer(t, "test-secret")
	c := dial(t, server.Addr())

	c.expect("CREATE DATABASE testdb;", "[ERROR] Authentication required.")
}

func TestAuthWithValidJWT(t *testing.T) {
	secret := "test-secret"
	server, instance := setupAuthTestServer(t, secret)
	c := dial(t, server.Addr())

	token := createTestJWT(t, secret, "Test User", "test@example.com", time.Hour)
	c.expect("AUTH JWT "+token, "[OK]\nTest User <test@example.com>\n")

	c.expect("CREATE DATABASE authtest;", "[OK]")
	c.expect("USE authtest;", "[OK]")
	c.expect("CREATE TABLE t (a);", "[OK]")

	txn := instance.Persistence.LatestTransaction()
	if txn.Author != "Test User <test@example.com>" {
		t.Errorf("Expected commit author from token, got '%s'", txn.Author)
	}
}

func TestAuthWithInvalidJWT(t *testing.T) {
	server, _ := setupAuthTestServer(t, "test-secret")
	c := dial(t, server.Addr())

	wrongToken := createTestJWT(t, "wrong-secret", "Test User", "test@example.com", time.Hour)
	if got := c.send("AUTH JWT " + wrongToken); !strings.HasPrefix(got, "[ERROR] Invalid token") {
		t.Errorf("Expected invalid token error, got: %s", got)
	}
	c.expect("CREATE DATABASE testdb;", "[ERROR] Authentication required.")
}

func TestAuthWithExpiredJWT(t *testing.T) {
	secret := "test-secret"
	server, _ := setupAuthTestServer(t, secret)
	c := dial(t, server.Addr())

	token := createTestJWT(t, secret, "Test User", "test@example.com", -time.Minute)
	if got := c.send("AUTH JWT " + token); !strings.HasPrefix(got, "[ERROR]") {
		t.Errorf("Expected expired token to be rejected, got: %s", got)
	}
}

func TestParseAuthCommand(t *testing.T) {
	tests := []struct {
		line    string
		token   string
		wantErr bool
	}{
		{"AUTH JWT abc", "abc", false},
		{"auth jwt abc", "abc", false},
		{"AUTH BASIC abc", "", true},
		{"AUTH JWT", "", true},
		{"AUTH JWT a b", "", true},
	}

	for _, tt := range tests {
		_, token, err := parseAuthCommand(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAuthCommand(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			continue
		}
		if token != tt.token {
			t.Errorf("parseAuthCommand(%q) token = %q, want %q", tt.line, token, tt.token)
		}
	}
}

func createTestJWT(t *testing.T, secret, name, email string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name":  name,
		"email": email,
		"exp":   time.Now().Add(ttl).Unix(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to create test JWT: %v", err)
	}
	return tokenString
}

// generateTestCertificate creates a self-signed certificate for testing
func generateTestCertificate(t *testing.T, certFile, keyFile string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate private key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
		DNSNames:     []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatalf("Failed to write cert file: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
}

func TestTLSServerConnection(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	generateTestCertificate(t, certFile, keyFile)

	server := NewServer(newTestInstance(t), core.Identity{Name: "test", Email: "test@test.com"})
	if err := server.StartTLS("127.0.0.1:0", certFile, keyFile); err != nil {
		t.Fatalf("Failed to start TLS server: %v", err)
	}
	defer server.Stop()

	if !server.TLSEnabled() {
		t.Error("Expected TLS to be enabled")
	}

	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("Failed to read cert: %v", err)
	}
	certPool := x509.NewCertPool()
	certPool.AppendCertsFromPEM(certPEM)

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), &tls.Config{
		RootCAs:    certPool,
		ServerName: "localhost",
	})
	if err != nil {
		t.Fatalf("Failed to connect with TLS: %v", err)
	}
	defer conn.Close()

	c := &client{t: t, conn: conn, reader: bufio.NewReader(conn)}
	c.expect("CREATE DATABASE secure;", "[OK]")
}

func TestTLSServerInvalidCert(t *testing.T) {
	server := NewServer(newTestInstance(t), core.Identity{})
	if err := server.StartTLS(":0", "missing-cert.pem", "missing-key.pem"); err == nil {
		server.Stop()
		t.Error("Expected error for missing certificate files")
	}
}

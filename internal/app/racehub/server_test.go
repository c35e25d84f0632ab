package racehub

import (
	"net"
	"path/filepath"
	"testing"
)

func testConfig(t *testing.T, addr string) Config {
	t.Helper()
	return Config{
		Addr:   addr,
		Token:  "test-token",
		DBPath: filepath.Join(t.TempDir(), "racehub.db"),
	}
}

// TestNewWiresRuntime verifies construction binds the listener and opens
// storage without touching the Discord gateway.
func TestNewWiresRuntime(t *testing.T) {
	server, err := New(testConfig(t, "127.0.0.1:0"))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer server.Close()

	if server.Addr() == "" {
		t.Fatal("expected a bound listener address")
	}
	if server.store == nil || server.session == nil || server.bot == nil {
		t.Fatal("expected store, session and bot to be wired")
	}
}

// TestNewAddrInUse verifies New reports an error when the address is occupied.
func TestNewAddrInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	if _, err := New(testConfig(t, listener.Addr().String())); err == nil {
		t.Fatal("expected error when the address is already in use")
	}
}

func TestCloseIsNilSafe(t *testing.T) {
	var server *Server
	server.Close()
}

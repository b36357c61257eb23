package svcauth

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/remotedesk/core/internal/userstore"
	"github.com/remotedesk/core/internal/wire"
)

func pipeConn(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	type result struct {
		c net.Conn
		e error
	}
	ch := make(chan result, 1)
	go func() {
		c, e := net.Dial("tcp", ln.Addr().String())
		ch <- result{c, e}
	}()

	server, err = ln.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	r := <-ch
	if r.e != nil {
		t.Fatalf("Dial: %v", r.e)
	}
	return r.c, server
}

func TestAuthenticateSuccess(t *testing.T) {
	store, _ := userstore.Open(filepath.Join(t.TempDir(), "users.db"), time.Hour)
	store.Register("alice", "pw", "alice@x", "")
	token, err := store.Authenticate("alice", "pw")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	client, server := pipeConn(t)
	defer client.Close()
	defer server.Close()

	go wire.WriteFrame(client, []byte(token))

	u, err := Authenticate(server, store, time.Second)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("Username = %q, want alice", u.Username)
	}

	var resp handshakeResponse
	if err := wire.ReadJSON(client, wire.MaxAuthFrameSize, &resp); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success ack, got %+v", resp)
	}
}

func TestAuthenticateUnknownTokenRejected(t *testing.T) {
	store, _ := userstore.Open(filepath.Join(t.TempDir(), "users.db"), time.Hour)

	client, server := pipeConn(t)
	defer client.Close()
	defer server.Close()

	go wire.WriteFrame(client, []byte("not-a-real-token"))

	_, err := Authenticate(server, store, time.Second)
	if err == nil {
		t.Fatal("expected an error for an unknown token")
	}

	var resp handshakeResponse
	if err := wire.ReadJSON(client, wire.MaxAuthFrameSize, &resp); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if resp.Success {
		t.Fatal("expected a failure ack")
	}
}

func TestAuthenticateOversizedTokenRejected(t *testing.T) {
	store, _ := userstore.Open(filepath.Join(t.TempDir(), "users.db"), time.Hour)

	client, server := pipeConn(t)
	defer client.Close()
	defer server.Close()

	go wire.WriteFrame(client, make([]byte, 2000))

	_, err := Authenticate(server, store, time.Second)
	if err == nil {
		t.Fatal("expected a protocol error for an oversized token frame")
	}
}

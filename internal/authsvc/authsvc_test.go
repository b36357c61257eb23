package authsvc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/remotedesk/core/internal/userstore"
	"github.com/remotedesk/core/internal/wire"
)

func newTestServer(t *testing.T) (net.Listener, func()) {
	t.Helper()
	store, err := userstore.Open(filepath.Join(t.TempDir(), "users.db"), time.Hour)
	if err != nil {
		t.Fatalf("userstore.Open: %v", err)
	}

	srv := New(store, nil, 4, 10*time.Second)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, ln)

	return ln, func() {
		cancel()
		ln.Close()
		srv.Shutdown(context.Background())
	}
}

func roundTrip(t *testing.T, addr string, req map[string]any) response {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := wire.WriteJSON(conn, req); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var resp response
	if err := wire.ReadJSON(conn, wire.MaxAuthFrameSize, &resp); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return resp
}

func TestRegisterLoginValidateEndToEnd(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()
	addr := ln.Addr().String()

	reg := roundTrip(t, addr, map[string]any{
		"action": "register", "username": "alice", "password": "pw", "email": "alice@x",
	})
	if !reg.Success {
		t.Fatalf("register failed: %+v", reg)
	}

	login := roundTrip(t, addr, map[string]any{
		"action": "login", "username": "alice", "password": "pw",
	})
	if !login.Success || login.Token == "" {
		t.Fatalf("login failed: %+v", login)
	}

	validate := roundTrip(t, addr, map[string]any{
		"action": "validate", "token": login.Token,
	})
	if !validate.Success || validate.User == nil || validate.User.Username != "alice" {
		t.Fatalf("validate failed: %+v", validate)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()
	addr := ln.Addr().String()

	roundTrip(t, addr, map[string]any{
		"action": "register", "username": "alice", "password": "pw", "email": "alice@x",
	})
	second := roundTrip(t, addr, map[string]any{
		"action": "register", "username": "bob", "password": "pw", "email": "alice@x",
	})
	if second.Success {
		t.Fatal("duplicate email registration should fail")
	}
	if second.Message != "Email already exists" {
		t.Fatalf("message = %q, want %q", second.Message, "Email already exists")
	}
}

func TestRegisterMissingFieldsRejected(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()
	addr := ln.Addr().String()

	resp := roundTrip(t, addr, map[string]any{
		"action": "register", "username": "alice", "password": "pw",
	})
	if resp.Success {
		t.Fatal("register without an email should fail")
	}
	if resp.Message != "Username, password, and email are required" {
		t.Fatalf("message = %q, want the required-fields message", resp.Message)
	}

	// The rejected registration must not have been persisted as a user.
	login := roundTrip(t, addr, map[string]any{
		"action": "login", "username": "alice", "password": "pw",
	})
	if login.Success {
		t.Fatal("a rejected registration must never create a user that can authenticate")
	}
}

func TestLoginMissingFieldsRejected(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()

	resp := roundTrip(t, ln.Addr().String(), map[string]any{
		"action": "login", "username": "alice",
	})
	if resp.Success {
		t.Fatal("login without a password should fail")
	}
	if resp.Message != "Username and password are required" {
		t.Fatalf("message = %q, want the required-fields message", resp.Message)
	}
}

func TestConnectionLimitShedsExcessConnections(t *testing.T) {
	store, err := userstore.Open(filepath.Join(t.TempDir(), "users.db"), time.Hour)
	if err != nil {
		t.Fatalf("userstore.Open: %v", err)
	}
	srv := New(store, nil, 1, 10*time.Second)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)
	defer ln.Close()

	// The first connection holds the only slot by never sending its
	// request; the server sits in its read until the timeout.
	holder, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial holder: %v", err)
	}
	defer holder.Close()
	time.Sleep(100 * time.Millisecond)

	// The second connection finds no free slot and is closed without a
	// response.
	shed, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial shed: %v", err)
	}
	defer shed.Close()

	shed.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if n, err := shed.Read(buf); n != 0 || err == nil {
		t.Fatalf("expected the shed connection to be closed, got n=%d err=%v", n, err)
	}
}

func TestUnknownActionRejected(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()

	resp := roundTrip(t, ln.Addr().String(), map[string]any{"action": "frobnicate"})
	if resp.Success {
		t.Fatal("unknown action should not succeed")
	}
}

func TestLogoutIdempotence(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()
	addr := ln.Addr().String()

	roundTrip(t, addr, map[string]any{
		"action": "register", "username": "alice", "password": "pw", "email": "alice@x",
	})
	login := roundTrip(t, addr, map[string]any{
		"action": "login", "username": "alice", "password": "pw",
	})

	first := roundTrip(t, addr, map[string]any{"action": "logout", "token": login.Token})
	second := roundTrip(t, addr, map[string]any{"action": "logout", "token": login.Token})

	if !first.Success {
		t.Fatalf("first logout should succeed: %+v", first)
	}
	if second.Success {
		t.Fatal("second logout should fail, never succeed twice")
	}
}

func TestMalformedRequestGetsParseError(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	wire.WriteFrame(conn, []byte("{not json"))

	var resp response
	if err := wire.ReadJSON(conn, wire.MaxAuthFrameSize, &resp); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if resp.Success {
		t.Fatal("malformed JSON should not succeed")
	}
}

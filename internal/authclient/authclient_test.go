package authclient

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/remotedesk/core/internal/authsvc"
	"github.com/remotedesk/core/internal/userstore"
)

func newTestServer(t *testing.T) (net.Listener, func()) {
	t.Helper()
	store, err := userstore.Open(filepath.Join(t.TempDir(), "users.db"), time.Hour)
	if err != nil {
		t.Fatalf("userstore.Open: %v", err)
	}
	srv := authsvc.New(store, nil, 4, 10*time.Second)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, ln)
	return ln, func() {
		cancel()
		ln.Close()
	}
}

func TestRegisterLoginValidate(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()
	addr := ln.Addr().String()

	reg, err := Register(addr, "alice", "pw", "alice@x", "", time.Second)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !reg.Success {
		t.Fatalf("Register failed: %+v", reg)
	}

	login, err := Login(addr, "alice", "pw", time.Second)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !login.Success || login.Token == "" {
		t.Fatalf("Login failed: %+v", login)
	}

	val, err := Validate(addr, login.Token, time.Second)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !val.Success || val.User == nil || val.User.Username != "alice" {
		t.Fatalf("Validate failed: %+v", val)
	}
}

func TestLogoutIdempotence(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()
	addr := ln.Addr().String()

	Register(addr, "bob", "pw", "bob@x", "", time.Second)
	login, err := Login(addr, "bob", "pw", time.Second)
	if err != nil || !login.Success {
		t.Fatalf("Login: %v, %+v", err, login)
	}

	first, err := Logout(addr, login.Token, time.Second)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	second, err := Logout(addr, login.Token, time.Second)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !first.Success {
		t.Fatalf("expected first logout to succeed, got %+v", first)
	}
	if second.Success {
		t.Fatal("expected second logout on the same token to fail, never succeed twice")
	}
}

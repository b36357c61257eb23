package inputclient

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/remotedesk/core/internal/coordmap"
	"github.com/remotedesk/core/internal/inputserver"
	"github.com/remotedesk/core/internal/inputsink"
	"github.com/remotedesk/core/internal/userstore"
)

func newConnectedClient(t *testing.T) (*Client, *inputsink.Recorded, func()) {
	t.Helper()
	store, err := userstore.Open(filepath.Join(t.TempDir(), "users.db"), time.Hour)
	if err != nil {
		t.Fatalf("userstore.Open: %v", err)
	}
	store.Register("alice", "pw", "alice@x", "")
	token, err := store.Authenticate("alice", "pw")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	sink := &inputsink.Recorded{}
	srv := inputserver.New(store, sink, nil, time.Second, 200*time.Millisecond)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, ln)

	client, err := Connect(ln.Addr().String(), token, time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	client.SetGeometry(
		coordmap.Viewport{X: 0, Y: 0, Width: 100, Height: 100},
		coordmap.Display{Width: 100, Height: 100},
	)

	return client, sink, func() {
		client.Close()
		cancel()
		ln.Close()
	}
}

func waitForCalls(t *testing.T, sink *inputsink.Recorded, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(sink.Calls) < n && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(sink.Calls) < n {
		t.Fatalf("got %d calls, want at least %d: %+v", len(sink.Calls), n, sink.Calls)
	}
}

func TestPointerMoveForwarded(t *testing.T) {
	client, sink, stop := newConnectedClient(t)
	defer stop()

	client.HandlePointer(PointerEvent{Type: PointerMove, X: 50, Y: 50})
	waitForCalls(t, sink, 1)
	if sink.Calls[0].Method != "move" || sink.Calls[0].X != 50 || sink.Calls[0].Y != 50 {
		t.Fatalf("unexpected call: %+v", sink.Calls[0])
	}
}

func TestPointerOutsideViewportDropped(t *testing.T) {
	client, sink, stop := newConnectedClient(t)
	defer stop()

	client.HandlePointer(PointerEvent{Type: PointerMove, X: 500, Y: 500})
	time.Sleep(100 * time.Millisecond)
	if len(sink.Calls) != 0 {
		t.Fatalf("expected an out-of-viewport sample to be dropped, got %+v", sink.Calls)
	}
}

func TestKeyPressIdempotentWhileHeld(t *testing.T) {
	client, sink, stop := newConnectedClient(t)
	defer stop()

	client.HandleKey(KeyEvent{Type: KeyDown, Key: "a", Printable: true})
	client.HandleKey(KeyEvent{Type: KeyDown, Key: "a", Printable: true})
	client.HandleKey(KeyEvent{Type: KeyDown, Key: "a", Printable: true})

	waitForCalls(t, sink, 1)
	time.Sleep(100 * time.Millisecond)
	if len(sink.Calls) != 1 {
		t.Fatalf("expected exactly one key_press for repeated down events, got %d: %+v", len(sink.Calls), sink.Calls)
	}
	if sink.Calls[0].Method != "key_press" || sink.Calls[0].Key != "a" {
		t.Fatalf("unexpected call: %+v", sink.Calls[0])
	}

	client.HandleKey(KeyEvent{Type: KeyUp, Key: "a", Printable: true})
	waitForCalls(t, sink, 2)
	if sink.Calls[1].Method != "key_release" {
		t.Fatalf("unexpected call: %+v", sink.Calls[1])
	}
}

func TestTabTogglesModeAndIsNeverForwarded(t *testing.T) {
	client, sink, stop := newConnectedClient(t)
	defer stop()

	if client.Mode() != ModeTyping {
		t.Fatal("expected to start in typing mode")
	}
	client.HandleKey(KeyEvent{Type: KeyDown, Key: "Tab"})
	if client.Mode() != ModeCommand {
		t.Fatal("expected Tab to toggle into command mode")
	}

	time.Sleep(100 * time.Millisecond)
	if len(sink.Calls) != 0 {
		t.Fatalf("expected Tab to never be forwarded, got %+v", sink.Calls)
	}
}

func TestCommandModeConsumesReservedKeys(t *testing.T) {
	client, sink, stop := newConnectedClient(t)
	defer stop()

	client.HandleKey(KeyEvent{Type: KeyDown, Key: "Tab"}) // enter command mode

	client.HandleKey(KeyEvent{Type: KeyDown, Key: "u"})
	if client.UIOffsetY() != -5 {
		t.Fatalf("UIOffsetY = %d, want -5", client.UIOffsetY())
	}
	client.HandleKey(KeyEvent{Type: KeyDown, Key: "d"})
	if client.UIOffsetY() != 0 {
		t.Fatalf("UIOffsetY = %d, want 0", client.UIOffsetY())
	}
	// Releases of reserved keys must not leak to the wire either.
	client.HandleKey(KeyEvent{Type: KeyUp, Key: "u"})
	client.HandleKey(KeyEvent{Type: KeyUp, Key: "d"})

	wasForwarding := client.Forwarding()
	client.HandleKey(KeyEvent{Type: KeyDown, Key: "c"})
	if client.Forwarding() == wasForwarding {
		t.Fatal("expected 'c' to toggle forwarding")
	}

	time.Sleep(100 * time.Millisecond)
	if len(sink.Calls) != 0 {
		t.Fatalf("expected reserved command-mode keys to never reach the sink, got %+v", sink.Calls)
	}

	client.HandleKey(KeyEvent{Type: KeyDown, Key: "q"})
	time.Sleep(100 * time.Millisecond)
	if client.Connected() {
		t.Fatal("expected 'q' to disconnect the channel")
	}
}

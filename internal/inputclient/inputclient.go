// Package inputclient implements the client side of the input channel:
// the token handshake, the pointer/key event sources, the typing/command
// keyboard-mode toggle, the held-key re-entrancy guard, and the
// coordinate transform that turns local events into wire commands.
package inputclient

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/remotedesk/core/internal/coordmap"
	"github.com/remotedesk/core/internal/logging"
	"github.com/remotedesk/core/internal/wire"
)

var log = logging.L("inputclient")

// KeyboardMode is one of the two modes Tab toggles between.
type KeyboardMode int

const (
	// ModeTyping forwards every key (other than Tab) to the server.
	ModeTyping KeyboardMode = iota
	// ModeCommand consumes {q, c, u, d} locally instead of forwarding them.
	ModeCommand
)

// PointerEventType discriminates the pointer source's callback payload.
type PointerEventType int

const (
	PointerMove PointerEventType = iota
	PointerDown
	PointerUp
	PointerScroll
)

// PointerEvent carries one local-viewport pointer sample.
type PointerEvent struct {
	Type   PointerEventType
	X, Y   int
	DX, DY int
	Button string // "left" or "right", for Down/Up
}

// PointerSource is the capability boundary around OS pointer capture.
// The actual OS binding is outside this repository's scope, mirroring
// ScreenSource/InputSink; a real implementation plugs in here.
type PointerSource interface {
	Listen(ctx context.Context, handle func(PointerEvent)) error
}

// KeyEventType discriminates the key source's callback payload.
type KeyEventType int

const (
	KeyDown KeyEventType = iota
	KeyUp
)

// KeyEvent carries one local key transition. Key is the raw key name or
// character as reported by the OS binding, before normalization.
type KeyEvent struct {
	Type      KeyEventType
	Key       string
	Printable bool
}

// KeySource is the capability boundary around OS keyboard capture.
type KeySource interface {
	Listen(ctx context.Context, handle func(KeyEvent)) error
}

// Client is a connected, authenticated input-channel session that
// transforms local pointer/key events into wire commands.
type Client struct {
	conn net.Conn

	viewportMu sync.RWMutex
	viewport   coordmap.Viewport
	display    coordmap.Display

	stateMu    sync.Mutex
	mode       KeyboardMode
	uiOffsetY  int
	forwarding bool
	held       map[string]bool
	connected  bool
}

type handshakeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Connect dials addr and performs the token handshake. On failure the
// connection is closed and the error returned.
func Connect(addr, token string, dialTimeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("inputclient: dial: %w", err)
	}

	if err := wire.WriteFrame(conn, []byte(token)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("inputclient: write token: %w", err)
	}

	var resp handshakeResponse
	if err := wire.ReadJSON(conn, wire.MaxAuthFrameSize, &resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("inputclient: read handshake response: %w", err)
	}
	if !resp.Success {
		conn.Close()
		return nil, fmt.Errorf("inputclient: handshake rejected: %s", resp.Message)
	}

	return &Client{
		conn:       conn,
		mode:       ModeTyping,
		forwarding: true,
		held:       make(map[string]bool),
		connected:  true,
	}, nil
}

// SetGeometry updates the viewport/server-display pair used to map
// pointer samples. Safe to call concurrently with event handling.
func (c *Client) SetGeometry(v coordmap.Viewport, d coordmap.Display) {
	c.viewportMu.Lock()
	defer c.viewportMu.Unlock()
	c.viewport = v
	c.display = d
}

// Close closes the underlying connection. Disconnect requests issued via
// the command-mode 'q' key call this internally.
func (c *Client) Close() error {
	c.stateMu.Lock()
	c.connected = false
	c.stateMu.Unlock()
	return c.conn.Close()
}

// Connected reports whether the channel is still open.
func (c *Client) Connected() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.connected
}

// HandlePointer maps and forwards one pointer event, applying the
// current viewport/display geometry and UI offset. Samples outside the
// viewport or inside letterbox/pillarbox padding are dropped, per the
// coordinate mapper's contract.
func (c *Client) HandlePointer(e PointerEvent) {
	c.viewportMu.RLock()
	v, d := c.viewport, c.display
	c.viewportMu.RUnlock()

	c.stateMu.Lock()
	offset := c.uiOffsetY
	c.stateMu.Unlock()

	switch e.Type {
	case PointerMove:
		xs, ys, ok := coordmap.Map(e.X, e.Y, v, d, offset)
		if !ok {
			return
		}
		c.send(fmt.Sprintf("move,%d,%d", xs, ys))
	case PointerDown:
		xs, ys, ok := coordmap.Map(e.X, e.Y, v, d, offset)
		if !ok {
			return
		}
		if e.Button == "right" {
			c.send(fmt.Sprintf("right_click,%d,%d", xs, ys))
		} else {
			c.send(fmt.Sprintf("click,%d,%d", xs, ys))
		}
	case PointerUp:
		// The source protocol has no discrete mouse-up command; click is
		// emitted on down, matching the original client's behavior.
	case PointerScroll:
		c.send(fmt.Sprintf("scroll,%d,%d", e.DX, e.DY))
	}
}

// HandleKey applies the typing/command mode rules, the held-key
// re-entrancy guard, and forwards the resulting command if applicable.
// Tab toggles the mode and is never forwarded. In command mode, q/c/u/d
// are consumed locally.
func (c *Client) HandleKey(e KeyEvent) {
	if e.Key == "Tab" {
		if e.Type == KeyDown {
			c.toggleMode()
		}
		return
	}

	c.stateMu.Lock()
	mode := c.mode
	c.stateMu.Unlock()

	// Reserved command-mode keys never reach the wire, on press or release.
	if mode == ModeCommand {
		switch e.Key {
		case "q", "c", "u", "d":
			if e.Type == KeyDown {
				c.runCommandKey(e.Key)
			}
			return
		}
	}

	// The held set is keyed by the normalized name; the wire carries the
	// raw key, matching what the server-side sink expects.
	normalized := normalizeKey(e.Key, e.Printable)

	switch e.Type {
	case KeyDown:
		c.stateMu.Lock()
		alreadyHeld := c.held[normalized]
		if !alreadyHeld {
			c.held[normalized] = true
		}
		c.stateMu.Unlock()
		if alreadyHeld {
			return
		}
		c.send("key_press," + e.Key)
	case KeyUp:
		c.stateMu.Lock()
		delete(c.held, normalized)
		c.stateMu.Unlock()
		c.send("key_release," + e.Key)
	}
}

func normalizeKey(key string, printable bool) string {
	if printable && len(key) == 1 {
		return "char_" + key
	}
	return "key_" + key
}

func (c *Client) runCommandKey(key string) {
	switch key {
	case "q":
		c.Close()
	case "c":
		c.toggleForwarding()
	case "u":
		c.adjustUIOffset(-5)
	case "d":
		c.adjustUIOffset(5)
	}
}

func (c *Client) toggleMode() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.mode == ModeTyping {
		c.mode = ModeCommand
	} else {
		c.mode = ModeTyping
	}
}

func (c *Client) toggleForwarding() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.forwarding = !c.forwarding
}

func (c *Client) adjustUIOffset(delta int) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.uiOffsetY += delta
}

// send emits cmd as a text frame when forwarding is enabled and the
// channel is connected; it is silently dropped otherwise.
func (c *Client) send(cmd string) {
	c.stateMu.Lock()
	allowed := c.forwarding && c.connected
	c.stateMu.Unlock()
	if !allowed {
		return
	}

	if err := wire.WriteFrame(c.conn, []byte(cmd)); err != nil {
		log.Debug("input command write failed", "error", err)
		c.stateMu.Lock()
		c.connected = false
		c.stateMu.Unlock()
	}
}

// UIOffsetY returns the current vertical UI offset adjusted by the
// command-mode u/d keys.
func (c *Client) UIOffsetY() int {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.uiOffsetY
}

// Forwarding reports whether events are currently being forwarded.
func (c *Client) Forwarding() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.forwarding
}

// Mode returns the current keyboard mode.
func (c *Client) Mode() KeyboardMode {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.mode
}

// Package screenclient implements the client side of the screen channel:
// token handshake, monitor-info ingest, and a JPEG-decode loop that
// delivers frames to a renderer callback while retaining the latest
// decoded frame for other components to read.
package screenclient

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"net"
	"sync"
	"time"

	"github.com/remotedesk/core/internal/logging"
	"github.com/remotedesk/core/internal/wire"
)

var log = logging.L("screenclient")

// MonitorInfo is the server's display resolution, read once right after
// the handshake.
type MonitorInfo struct {
	Width, Height int
}

// Client is a connected, authenticated screen-channel session.
type Client struct {
	conn   net.Conn
	Server MonitorInfo

	mu      sync.RWMutex
	latest  image.Image
	stopped bool
}

type handshakeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Connect dials addr, performs the token handshake, and reads the
// initial monitor-info frame. On any failure the connection is closed
// and the caller receives the error; nothing further is read.
func Connect(addr, token string, dialTimeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("screenclient: dial: %w", err)
	}

	if err := wire.WriteFrame(conn, []byte(token)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("screenclient: write token: %w", err)
	}

	var resp handshakeResponse
	if err := wire.ReadJSON(conn, wire.MaxAuthFrameSize, &resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("screenclient: read handshake response: %w", err)
	}
	if !resp.Success {
		conn.Close()
		return nil, fmt.Errorf("screenclient: handshake rejected: %s", resp.Message)
	}

	monitor, err := readMonitorInfo(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("screenclient: read monitor info: %w", err)
	}

	return &Client{conn: conn, Server: monitor}, nil
}

func readMonitorInfo(conn net.Conn) (MonitorInfo, error) {
	payload, err := wire.ReadFrame(conn, wire.MaxBinaryFrameSize)
	if err != nil {
		return MonitorInfo{}, err
	}
	if len(payload) != 8 {
		return MonitorInfo{}, fmt.Errorf("screenclient: monitor info frame has %d bytes, want 8", len(payload))
	}
	return MonitorInfo{
		Width:  int(binary.BigEndian.Uint32(payload[0:4])),
		Height: int(binary.BigEndian.Uint32(payload[4:8])),
	}, nil
}

// Run reads binary-framed JPEG payloads until ctx is cancelled or a
// read/decode error ends the loop, decoding each and invoking deliver.
// The most recently decoded frame remains readable via Latest after Run
// returns.
func (c *Client) Run(ctx context.Context, deliver func(image.Image)) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		c.conn.Close()
		close(done)
	}()

	var loopErr error
	for {
		payload, err := wire.ReadFrame(c.conn, wire.MaxBinaryFrameSize)
		if err != nil {
			loopErr = fmt.Errorf("screenclient: read frame: %w", err)
			break
		}

		img, err := jpeg.Decode(bytes.NewReader(payload))
		if err != nil {
			loopErr = fmt.Errorf("screenclient: decode frame: %w", err)
			break
		}

		c.mu.Lock()
		c.latest = img
		c.mu.Unlock()

		if deliver != nil {
			deliver(img)
		}
	}

	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		<-done
		return ctx.Err()
	default:
		log.Debug("screen client loop ended", "error", loopErr)
		return loopErr
	}
}

// Latest returns the most recently decoded frame, or nil if none has
// been decoded yet.
func (c *Client) Latest() image.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Stopped reports whether the read loop has ended.
func (c *Client) Stopped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopped
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Package screenserver implements the screen channel: after the token
// handshake, emit one monitor-info frame followed by a stream of
// JPEG-encoded capture frames at a best-effort ~33fps.
package screenserver

import (
	"context"
	"encoding/binary"
	"image"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/remotedesk/core/internal/connlog"
	"github.com/remotedesk/core/internal/frameencoder"
	"github.com/remotedesk/core/internal/logging"
	"github.com/remotedesk/core/internal/screensource"
	"github.com/remotedesk/core/internal/svcauth"
	"github.com/remotedesk/core/internal/userstore"
	"github.com/remotedesk/core/internal/wire"
)

var log = logging.L("screenserver")

// Server is the screen-channel listener. Only one session is served at a
// time: the accept loop is strictly serial, matching the source's
// single-active-viewer design.
type Server struct {
	store            *userstore.Store
	source           screensource.Source
	encoder          frameencoder.Encoder
	connLog          *connlog.Logger
	handshakeTimeout time.Duration
	frameInterval    time.Duration
	scalePercent     int
}

// New creates a screen-channel server. source and encoder are the
// capability-boundary implementations wired in by the caller (platform
// capture backend, JPEG encoder). scalePercent shrinks captures before
// encoding; 100 is identity.
func New(store *userstore.Store, source screensource.Source, encoder frameencoder.Encoder, connLog *connlog.Logger, handshakeTimeout, frameInterval time.Duration, scalePercent int) *Server {
	if scalePercent < 1 || scalePercent > 100 {
		scalePercent = 100
	}
	return &Server{
		store:            store,
		source:           source,
		encoder:          encoder,
		connLog:          connLog,
		handshakeTimeout: handshakeTimeout,
		frameInterval:    frameInterval,
		scalePercent:     scalePercent,
	}
}

// Serve accepts connections on ln one at a time until ctx is cancelled.
// A connection that fails the handshake is closed immediately and the
// loop resumes accepting; only an authenticated connection runs the
// capture loop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()
	clientIP := remoteIP(conn)
	l := log.With("connId", connID, "remote", clientIP)

	user, err := svcauth.Authenticate(conn, s.store, s.handshakeTimeout)
	if err != nil {
		l.Info("screen handshake rejected", "error", err)
		s.record(clientIP, "", "HANDSHAKE_FAILED")
		return
	}
	l = l.With("user", user.Username)
	s.record(clientIP, user.Username, "CONNECTED")
	l.Info("screen session started")

	if err := s.sendMonitorInfo(conn); err != nil {
		l.Warn("monitor info write failed", "error", err)
		return
	}

	s.captureLoop(ctx, conn, l)
	s.record(clientIP, user.Username, "DISCONNECTED")
	l.Info("screen session ended")
}

func (s *Server) sendMonitorInfo(conn net.Conn) error {
	width, height, err := s.source.Bounds()
	if err != nil {
		return err
	}
	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:4], uint32(width))
	binary.BigEndian.PutUint32(payload[4:8], uint32(height))
	return wire.WriteFrame(conn, payload)
}

// captureLoop grabs, encodes, and dispatches frames until a write error,
// a transport error, or ctx cancellation ends the session. No retries
// happen inside a session; the caller returns to accepting on exit.
func (s *Server) captureLoop(ctx context.Context, conn net.Conn, l *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		img, err := s.source.Capture()
		if err != nil {
			l.Warn("capture failed", "error", err)
			return
		}

		if s.scalePercent < 100 {
			img = downscale(img, s.scalePercent)
		}

		payload, err := s.encoder.Encode(img)
		if err != nil {
			l.Warn("encode failed", "error", err)
			return
		}

		if err := wire.WriteFrame(conn, payload); err != nil {
			l.Debug("screen session ending on write error", "error", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.frameInterval):
		}
	}
}

// downscale shrinks img to percent of its size by nearest-neighbor
// sampling. Frames stay small and the JPEG encode gets cheaper; the
// monitor-info frame still reports the unscaled display so input
// coordinates keep their meaning.
func downscale(img image.Image, percent int) image.Image {
	b := img.Bounds()
	w := b.Dx() * percent / 100
	h := b.Dy() * percent / 100
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcY := b.Min.Y + y*b.Dy()/h
		for x := 0; x < w; x++ {
			srcX := b.Min.X + x*b.Dx()/w
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

func (s *Server) record(clientIP, username, status string) {
	if s.connLog == nil {
		return
	}
	if err := s.connLog.Record("SCREEN", username, clientIP, status); err != nil {
		log.Warn("connection log write failed", "error", err)
	}
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

// Package inputserver implements the input channel: after the token
// handshake, read textual input commands and dispatch them to an
// InputSink until disconnect.
package inputserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/remotedesk/core/internal/connlog"
	"github.com/remotedesk/core/internal/inputsink"
	"github.com/remotedesk/core/internal/logging"
	"github.com/remotedesk/core/internal/svcauth"
	"github.com/remotedesk/core/internal/userstore"
	"github.com/remotedesk/core/internal/wire"
)

var log = logging.L("inputserver")

// Server is the input-channel listener. Only one session is served at a
// time, matching the source's single-active-controller design.
type Server struct {
	store            *userstore.Store
	sink             inputsink.Sink
	connLog          *connlog.Logger
	handshakeTimeout time.Duration
	readTimeout      time.Duration
}

// New creates an input-channel server. readTimeout is the 1s liveness
// pulse: a timeout on an individual read is benign and the loop goes
// back to reading.
func New(store *userstore.Store, sink inputsink.Sink, connLog *connlog.Logger, handshakeTimeout, readTimeout time.Duration) *Server {
	return &Server{
		store:            store,
		sink:             sink,
		connLog:          connLog,
		handshakeTimeout: handshakeTimeout,
		readTimeout:      readTimeout,
	}
}

// Serve accepts connections on ln one at a time until ctx is cancelled.
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
		l.Info("input handshake rejected", "error", err)
		s.record(clientIP, "", "HANDSHAKE_FAILED")
		return
	}
	l = l.With("user", user.Username)
	s.record(clientIP, user.Username, "CONNECTED")
	l.Info("input session started")

	s.commandLoop(ctx, conn, l)
	s.record(clientIP, user.Username, "DISCONNECTED")
	l.Info("input session ended")
}

// commandLoop reads and applies commands until disconnect, a protocol
// violation, or ctx cancellation. A read timeout (the liveness pulse) is
// benign and simply loops back; an unknown command is logged and
// dropped without closing the connection, per the handshake-gating and
// unknown-command laws.
func (s *Server) commandLoop(ctx context.Context, conn net.Conn, l *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		payload, err := wire.ReadFrame(conn, wire.MaxCommandFrameSize)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			l.Debug("input session ending on read error", "error", err)
			return
		}
		if len(payload) == 0 {
			l.Debug("empty input command, closing")
			return
		}

		s.applyCommand(string(payload), l)
	}
}

func (s *Server) applyCommand(cmd string, l *slog.Logger) {
	parts := strings.Split(cmd, ",")
	switch parts[0] {
	case "move":
		x, y, ok := parseXY(parts, l)
		if ok {
			if err := s.sink.MouseMove(x, y); err != nil {
				l.Warn("mouse move failed", "error", err)
			}
		}
	case "click":
		x, y, ok := parseXY(parts, l)
		if ok {
			if err := s.sink.MouseClick(x, y, "left"); err != nil {
				l.Warn("mouse click failed", "error", err)
			}
		}
	case "right_click":
		x, y, ok := parseXY(parts, l)
		if ok {
			if err := s.sink.MouseClick(x, y, "right"); err != nil {
				l.Warn("mouse right click failed", "error", err)
			}
		}
	case "scroll":
		dx, dy, ok := parseXY(parts, l)
		if ok {
			if err := s.sink.MouseScroll(dx, dy); err != nil {
				l.Warn("scroll failed", "error", err)
			}
		}
	case "key_press":
		if len(parts) != 2 {
			l.Warn("malformed key_press command", "command", cmd)
			return
		}
		if err := s.sink.KeyPress(parts[1]); err != nil {
			l.Warn("key press failed", "error", err)
		}
	case "key_release":
		if len(parts) != 2 {
			l.Warn("malformed key_release command", "command", cmd)
			return
		}
		if err := s.sink.KeyRelease(parts[1]); err != nil {
			l.Warn("key release failed", "error", err)
		}
	default:
		l.Warn("unknown input command, dropping", "command", cmd)
	}
}

func parseXY(parts []string, l *slog.Logger) (x, y int, ok bool) {
	if len(parts) != 3 {
		l.Warn("malformed coordinate command", "parts", parts)
		return 0, 0, false
	}
	x, errX := strconv.Atoi(parts[1])
	y, errY := strconv.Atoi(parts[2])
	if errX != nil || errY != nil {
		l.Warn("coordinate parse failure, dropping command", "raw", parts)
		return 0, 0, false
	}
	return x, y, true
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (s *Server) record(clientIP, username, status string) {
	if s.connLog == nil {
		return
	}
	if err := s.connLog.Record("INPUT", username, clientIP, status); err != nil {
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

// Package authsvc implements the auth channel: a request/response
// listener handling register, login, logout, and validate over
// length-prefixed JSON frames.
package authsvc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/remotedesk/core/internal/connlog"
	"github.com/remotedesk/core/internal/logging"
	"github.com/remotedesk/core/internal/userstore"
	"github.com/remotedesk/core/internal/wire"
	"golang.org/x/sync/semaphore"
)

var log = logging.L("authsvc")

// request is the auth-channel wire request. Which fields are required
// depends on Action; see spec §6.
type request struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Fullname string `json:"fullname,omitempty"`
	Token    string `json:"token"`
}

// response is the auth-channel wire response.
type response struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Token   string                `json:"token,omitempty"`
	User    *userstore.PublicInfo `json:"user,omitempty"`
}

// Server is the auth listener. A bounded semaphore caps concurrent
// connections; a connection arriving with every slot taken is closed
// immediately so a burst sheds load instead of growing goroutines
// without limit.
type Server struct {
	store       *userstore.Store
	sem         *semaphore.Weighted
	maxConns    int64
	connLog     *connlog.Logger
	readTimeout time.Duration
}

// New creates an auth server handling at most maxConns connections at
// once.
func New(store *userstore.Store, connLog *connlog.Logger, maxConns int, readTimeout time.Duration) *Server {
	if maxConns < 1 {
		maxConns = 1
	}
	return &Server{
		store:       store,
		sem:         semaphore.NewWeighted(int64(maxConns)),
		maxConns:    int64(maxConns),
		connLog:     connLog,
		readTimeout: readTimeout,
	}
}

// Serve accepts connections on ln until ctx is cancelled or Accept
// fails. Each connection takes one semaphore slot for its lifetime; no
// free slot means the connection is closed on the spot.
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

		if !s.sem.TryAcquire(1) {
			log.Warn("auth connection limit reached, rejecting", "remote", conn.RemoteAddr())
			conn.Close()
			continue
		}

		c := conn
		go func() {
			defer s.sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					log.Error("auth connection handler panicked", "panic", r)
				}
			}()
			s.handleConn(c)
		}()
	}
}

// Shutdown waits for in-flight connections to finish by acquiring every
// semaphore slot, giving up when ctx expires. Close the listener first
// so no new connections race the drain.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.sem.Acquire(ctx, s.maxConns); err != nil {
		log.Warn("auth connection drain gave up", "error", err)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()
	clientIP := remoteIP(conn)
	l := log.With("connId", connID, "remote", clientIP)

	conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	payload, err := wire.ReadNonEmptyFrame(conn, wire.MaxAuthFrameSize)
	if err != nil {
		l.Debug("auth read failed", "error", err)
		return
	}

	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.reply(conn, response{Success: false, Message: "Malformed request: " + err.Error()}, "", clientIP, "MALFORMED")
		return
	}

	resp, username, status := s.dispatch(&req)
	s.reply(conn, resp, username, clientIP, status)
}

func (s *Server) dispatch(req *request) (resp response, username, status string) {
	switch req.Action {
	case "register":
		return s.handleRegister(req)
	case "login":
		return s.handleLogin(req)
	case "logout":
		return s.handleLogout(req)
	case "validate":
		return s.handleValidate(req)
	default:
		return response{Success: false, Message: "Unknown action: " + req.Action}, "", "UNKNOWN_ACTION"
	}
}

func (s *Server) handleRegister(req *request) (response, string, string) {
	if req.Username == "" || req.Password == "" || req.Email == "" {
		return response{Success: false, Message: "Username, password, and email are required"}, req.Username, "MISSING_FIELDS"
	}

	err := s.store.Register(req.Username, req.Password, req.Email, req.Fullname)
	switch {
	case err == nil:
		return response{Success: true, Message: "Registration successful"}, req.Username, "SUCCESS"
	case errors.Is(err, userstore.ErrUsernameExists):
		return response{Success: false, Message: "Username already exists"}, req.Username, "USERNAME_EXISTS"
	case errors.Is(err, userstore.ErrEmailExists):
		return response{Success: false, Message: "Email already exists"}, req.Username, "EMAIL_EXISTS"
	default:
		log.Error("register failed", "error", err)
		return response{Success: false, Message: "Server error: " + err.Error()}, req.Username, "STORE_ERROR"
	}
}

func (s *Server) handleLogin(req *request) (response, string, string) {
	if req.Username == "" || req.Password == "" {
		return response{Success: false, Message: "Username and password are required"}, req.Username, "MISSING_FIELDS"
	}

	token, err := s.store.Authenticate(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, userstore.ErrAccountDeactivated):
			return response{Success: false, Message: "Account is deactivated"}, req.Username, "DEACTIVATED"
		case errors.Is(err, userstore.ErrInvalidCredential):
			return response{Success: false, Message: "Invalid username or password"}, req.Username, "BAD_CREDENTIAL"
		default:
			log.Error("login failed", "error", err)
			return response{Success: false, Message: "Server error: " + err.Error()}, req.Username, "STORE_ERROR"
		}
	}

	info, _ := s.store.GetUserInfo(req.Username)
	return response{Success: true, Message: "Login successful", Token: token, User: &info}, req.Username, "SUCCESS"
}

func (s *Server) handleLogout(req *request) (response, string, string) {
	err := s.store.InvalidateSession(req.Token)
	if err != nil {
		return response{Success: false, Message: "Session not found"}, "", "NOT_FOUND"
	}
	return response{Success: true, Message: "Logout successful"}, "", "SUCCESS"
}

func (s *Server) handleValidate(req *request) (response, string, string) {
	u, err := s.store.ValidateSession(req.Token)
	if err != nil {
		switch {
		case errors.Is(err, userstore.ErrSessionExpired):
			return response{Success: false, Message: "Session has expired"}, "", "EXPIRED"
		case errors.Is(err, userstore.ErrSessionInactive):
			return response{Success: false, Message: "Session is inactive"}, "", "INACTIVE"
		case errors.Is(err, userstore.ErrUserNotFound):
			return response{Success: false, Message: "User not found"}, "", "NO_USER"
		default:
			return response{Success: false, Message: "Invalid session token"}, "", "INVALID"
		}
	}
	info := userstore.PublicInfoFor(u)
	return response{Success: true, Message: "Session is valid", User: &info}, u.Username, "SUCCESS"
}

// reply writes the response with a forgiving fallback: if marshaling the
// intended response fails, a minimal error frame is emitted instead.
func (s *Server) reply(conn net.Conn, resp response, username, clientIP, status string) {
	if s.connLog != nil {
		if err := s.connLog.Record("AUTH", username, clientIP, status); err != nil {
			log.Warn("connection log write failed", "error", err)
		}
	}

	if err := wire.WriteJSON(conn, resp); err != nil {
		log.Warn("primary response marshal/write failed, sending fallback", "error", err)
		fallback := response{Success: false, Message: "Server error: " + err.Error()}
		if werr := wire.WriteJSON(conn, fallback); werr != nil {
			log.Warn("fallback response write failed", "error", werr)
		}
	}
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

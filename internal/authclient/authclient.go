// Package authclient implements the client side of the auth channel:
// one request, one response, one connection per call, matching the
// server's per-call connection model.
package authclient

import (
	"fmt"
	"net"
	"time"

	"github.com/remotedesk/core/internal/wire"
)

// PublicUser mirrors userstore.PublicInfo on the wire without importing
// the server-side package from client code.
type PublicUser struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Fullname  string  `json:"fullname,omitempty"`
	CreatedAt string  `json:"created_at"`
	LastLogin *string `json:"last_login,omitempty"`
}

type request struct {
	Action   string `json:"action"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Email    string `json:"email,omitempty"`
	Fullname string `json:"fullname,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Response is the auth-channel response, shared across all four actions.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Token   string      `json:"token,omitempty"`
	User    *PublicUser `json:"user,omitempty"`
}

func call(addr string, timeout time.Duration, req request) (Response, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return Response{}, fmt.Errorf("authclient: dial: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	if err := wire.WriteJSON(conn, req); err != nil {
		return Response{}, fmt.Errorf("authclient: write request: %w", err)
	}

	var resp Response
	if err := wire.ReadJSON(conn, wire.MaxAuthFrameSize, &resp); err != nil {
		return Response{}, fmt.Errorf("authclient: read response: %w", err)
	}
	return resp, nil
}

// Register performs a register action.
func Register(addr, username, password, email, fullname string, timeout time.Duration) (Response, error) {
	return call(addr, timeout, request{Action: "register", Username: username, Password: password, Email: email, Fullname: fullname})
}

// Login performs a login action.
func Login(addr, username, password string, timeout time.Duration) (Response, error) {
	return call(addr, timeout, request{Action: "login", Username: username, Password: password})
}

// Logout performs a logout action.
func Logout(addr, token string, timeout time.Duration) (Response, error) {
	return call(addr, timeout, request{Action: "logout", Token: token})
}

// Validate performs a validate action.
func Validate(addr, token string, timeout time.Duration) (Response, error) {
	return call(addr, timeout, request{Action: "validate", Token: token})
}

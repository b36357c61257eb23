// Package svcauth implements the token handshake shared by the screen
// and input channels: read a hex token, validate it against the user
// store, and report success/failure as a JSON frame before handing the
// connection to the channel's own loop.
package svcauth

import (
	"net"
	"time"

	"github.com/remotedesk/core/internal/userstore"
	"github.com/remotedesk/core/internal/wire"
)

type handshakeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Authenticate performs the channel handshake on conn: read a
// length-prefixed hex token (length 1..MaxCommandFrameSize), validate it,
// and write the JSON ack. On failure the caller should close conn; on
// success it returns the resolved user so the channel loop can bind its
// audit logging to a username.
func Authenticate(conn net.Conn, store *userstore.Store, timeout time.Duration) (*userstore.User, error) {
	conn.SetReadDeadline(time.Now().Add(timeout))

	tokenBytes, err := wire.ReadNonEmptyFrame(conn, wire.MaxCommandFrameSize)
	if err != nil {
		return nil, err
	}

	u, verr := store.ValidateSession(string(tokenBytes))
	if verr != nil {
		wire.WriteJSON(conn, handshakeResponse{Success: false, Message: verr.Error()})
		return nil, verr
	}

	if err := wire.WriteJSON(conn, handshakeResponse{Success: true, Message: "Authenticated"}); err != nil {
		return nil, err
	}
	return u, nil
}

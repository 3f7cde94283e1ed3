package wsclient

import (
	"errors"
	"io"
	"net"

	"github.com/gorilla/websocket"
)

// IsSocketFault reports whether err came from the connection itself (dial,
// handshake, read, write or close) rather than from local bookkeeping such
// as a full send buffer.
func IsSocketFault(err error) bool {
	if err == nil {
		return false
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, websocket.ErrBadHandshake) ||
		errors.Is(err, websocket.ErrCloseSent) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// Package transport carries count vectors between ranks.
//
// The coordinator (rank 0) owns a SURVEYOR socket; every other rank dials it
// with a RESPONDENT socket. The socket interfaces keep the survey logic
// independent of mangos so that it can be exercised over inproc:// in tests.
package transport

import (
	"errors"
	"io"
	"time"
)

// ErrSocketClosed is returned by Recv once the socket has been closed.
var ErrSocketClosed = errors.New("socket closed")

// Socket is a messaging socket that can send and receive whole messages.
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// ListenSocket is a socket that binds to an address.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// DialSocket is a socket that connects to a remote address.
type DialSocket interface {
	Socket
	Dial(addr string) error
}

// SurveySocket is a SURVEYOR socket with a configurable survey window.
type SurveySocket interface {
	ListenSocket
	SetSurveyTime(d time.Duration) error
}

// SocketFactory creates the sockets of the survey pattern.
type SocketFactory interface {
	NewSurveyorSocket() (SurveySocket, error)
	NewRespondentSocket() (DialSocket, error)
}

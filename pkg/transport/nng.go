package transport

import (
	"errors"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/respondent"
	"go.nanomsg.org/mangos/v3/protocol/surveyor"

	// Register all transports (tcp, ipc, inproc, ws, tls+tcp)
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// nngSocket wraps a mangos.Socket.
type nngSocket struct {
	sock mangos.Socket
}

func (s *nngSocket) Send(data []byte) error {
	err := s.sock.Send(data)
	if errors.Is(err, mangos.ErrClosed) {
		return ErrSocketClosed
	}
	return err
}

func (s *nngSocket) Recv() ([]byte, error) {
	msg, err := s.sock.Recv()
	if errors.Is(err, mangos.ErrClosed) {
		return nil, ErrSocketClosed
	}
	return msg, err
}

func (s *nngSocket) Close() error {
	return s.sock.Close()
}

func (s *nngSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (s *nngSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSendDeadline, d)
}

func (s *nngSocket) Listen(addr string) error {
	return s.sock.Listen(addr)
}

// Dial connects in the background so that ranks may start before the
// coordinator is listening.
func (s *nngSocket) Dial(addr string) error {
	return s.sock.DialOptions(addr, map[string]interface{}{
		mangos.OptionDialAsynch: true,
	})
}

type nngSurveySocket struct {
	nngSocket
}

func (s *nngSurveySocket) SetSurveyTime(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSurveyTime, d)
}

// NNGSocketFactory creates mangos sockets.
type NNGSocketFactory struct{}

// NewNNGSocketFactory creates a new NNG socket factory.
func NewNNGSocketFactory() *NNGSocketFactory {
	return &NNGSocketFactory{}
}

func (f *NNGSocketFactory) NewSurveyorSocket() (SurveySocket, error) {
	sock, err := surveyor.NewSocket()
	if err != nil {
		return nil, err
	}
	return &nngSurveySocket{nngSocket{sock: sock}}, nil
}

func (f *NNGSocketFactory) NewRespondentSocket() (DialSocket, error) {
	sock, err := respondent.NewSocket()
	if err != nil {
		return nil, err
	}
	return &nngSocket{sock: sock}, nil
}

// Ensure NNGSocketFactory implements SocketFactory
var _ SocketFactory = (*NNGSocketFactory)(nil)

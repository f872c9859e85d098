package can

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	canpkg "go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// SendTimeout bounds a non-blocking send attempt (spec.md §4.10:
// "Non-blocking send with 100 ms timeout").
const SendTimeout = 100 * time.Millisecond

// Frame is a thin, transport-agnostic view of a CAN frame.
type Frame struct {
	ID   uint32
	Data [8]byte
}

// Transport sends and receives raw CAN frames. Two implementations exist:
// MockTransport (log-only, for development/test) and SocketCANTransport
// (backed by go.einride.tech/can's socketcan package).
type Transport interface {
	Send(ctx context.Context, f Frame) error
	Recv(ctx context.Context) (Frame, error)
	Close() error
}

// MockTransport logs every frame and considers it sent, per spec.md
// §4.10: "If CAN is in mock mode the frame is logged and considered
// sent."
type MockTransport struct {
	recv chan Frame
}

// NewMockTransport returns a Transport that never touches real hardware.
func NewMockTransport() *MockTransport {
	return &MockTransport{recv: make(chan Frame, 16)}
}

func (m *MockTransport) Send(ctx context.Context, f Frame) error {
	log.Printf("can(mock): tx id=0x%03x data=% x", f.ID, f.Data)
	return nil
}

func (m *MockTransport) Recv(ctx context.Context) (Frame, error) {
	select {
	case f := <-m.recv:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// InjectForTest feeds a frame into the mock's receive channel, for tests
// simulating an inbound ACK or status frame.
func (m *MockTransport) InjectForTest(f Frame) {
	m.recv <- f
}

func (m *MockTransport) Close() error { return nil }

// SocketCANTransport sends and receives over a real Linux SocketCAN
// interface via go.einride.tech/can.
type SocketCANTransport struct {
	conn net.Conn
	tx   *socketcan.Transmitter
	rx   *socketcan.Receiver
}

// DialSocketCAN opens a SocketCAN interface (e.g. "can0").
func DialSocketCAN(ctx context.Context, iface string) (*SocketCANTransport, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("can: dial %s: %w", iface, err)
	}
	return &SocketCANTransport{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
		rx:   socketcan.NewReceiver(conn),
	}, nil
}

func (s *SocketCANTransport) Send(ctx context.Context, f Frame) error {
	frame := canpkg.Frame{ID: f.ID, Length: 8, Data: f.Data}
	return s.tx.TransmitFrame(ctx, frame)
}

func (s *SocketCANTransport) Recv(ctx context.Context) (Frame, error) {
	if !s.rx.Receive() {
		if err := s.rx.Err(); err != nil {
			return Frame{}, err
		}
		return Frame{}, fmt.Errorf("can: receiver closed")
	}
	frame := s.rx.Frame()
	return Frame{ID: frame.ID, Data: frame.Data}, nil
}

func (s *SocketCANTransport) Close() error {
	return s.conn.Close()
}

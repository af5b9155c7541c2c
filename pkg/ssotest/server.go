// Package ssotest runs an in-process service endpoint over net.Pipe so
// client code can be exercised without a network.
package ssotest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/ZentaChain/ntlink/pkg/protocol"
)

// Reply is what a handler sends back. A nil *Reply means no response.
type Reply struct {
	RetCode  int32
	Extra    string
	Data     []byte
	Compress bool
}

// HandlerFunc answers one request
type HandlerFunc func(req *protocol.Request) *Reply

// Server decodes client frames and answers them through registered handlers.
// Requests for commands with no handler are recorded and left unanswered.
type Server struct {
	t testing.TB

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	d2Key    []byte
	uin      int64
	conns    []net.Conn
	requests []*protocol.Request
	dials    int
	refuse   bool
	received chan *protocol.Request

	writeMu sync.Mutex
}

// New creates a server whose connections are closed at test cleanup
func New(t testing.TB) *Server {
	s := &Server{
		t:        t,
		handlers: make(map[string]HandlerFunc),
		received: make(chan *protocol.Request, 256),
	}
	t.Cleanup(s.DropConnections)
	return s
}

// Handle registers fn for command
func (s *Server) Handle(command string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[command] = fn
}

// SetD2Key sets the key used to open and seal EncryptD2Key frames
func (s *Server) SetD2Key(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d2Key = append([]byte(nil), key...)
}

// SetUin sets the uin written into response frames
func (s *Server) SetUin(uin int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uin = uin
}

// Refuse makes subsequent dials fail
func (s *Server) Refuse(refuse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuse = refuse
}

// Dial matches network.Config.Dial
func (s *Server) Dial(ctx context.Context, address string) (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuse {
		return nil, errors.New("ssotest: connection refused")
	}
	client, server := net.Pipe()
	s.conns = append(s.conns, server)
	s.dials++
	go s.serve(server)
	return client, nil
}

// Dials returns how many connections were opened
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// Requests returns every request decoded so far
func (s *Server) Requests() []*protocol.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*protocol.Request(nil), s.requests...)
}

// Received yields requests as they are decoded
func (s *Server) Received() <-chan *protocol.Request {
	return s.received
}

// DropConnections closes every open server-side connection
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Push writes an unsolicited packet to the newest connection
func (s *Server) Push(pkt *protocol.SsoPacket, enc protocol.EncryptType) error {
	s.mu.Lock()
	if len(s.conns) == 0 {
		s.mu.Unlock()
		return errors.New("ssotest: no connection")
	}
	conn := s.conns[len(s.conns)-1]
	s.mu.Unlock()

	return s.write(conn, pkt, enc, false)
}

// Respond answers req directly, for tests that hold responses back
func (s *Server) Respond(req *protocol.Request, reply *Reply) error {
	s.mu.Lock()
	if len(s.conns) == 0 {
		s.mu.Unlock()
		return errors.New("ssotest: no connection")
	}
	conn := s.conns[len(s.conns)-1]
	s.mu.Unlock()

	pkt := protocol.NewResponsePacket(req.Packet.Command(), req.Packet.Sequence(), reply.RetCode, reply.Extra, reply.Data)
	return s.write(conn, pkt, req.Encrypt, reply.Compress)
}

func (s *Server) serve(conn net.Conn) {
	for {
		frame, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}

		s.mu.Lock()
		key := s.d2Key
		s.mu.Unlock()

		req, err := protocol.DecodeRequest(frame, key)
		if err != nil {
			s.t.Logf("ssotest: decode: %v", err)
			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		handler := s.handlers[req.Packet.Command()]
		s.mu.Unlock()

		select {
		case s.received <- req:
		default:
		}

		if handler == nil {
			continue
		}
		reply := handler(req)
		if reply == nil {
			continue
		}

		pkt := protocol.NewResponsePacket(req.Packet.Command(), req.Packet.Sequence(), reply.RetCode, reply.Extra, reply.Data)
		if err := s.write(conn, pkt, req.Encrypt, reply.Compress); err != nil {
			return
		}
	}
}

func (s *Server) write(conn net.Conn, pkt *protocol.SsoPacket, enc protocol.EncryptType, compress bool) error {
	s.mu.Lock()
	key, uin := s.d2Key, s.uin
	s.mu.Unlock()

	frame, err := protocol.EncodeResponse(pkt, uin, enc, key, compress)
	if err != nil {
		return fmt.Errorf("ssotest: encode %s: %w", pkt.Command(), err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return protocol.WriteFrame(conn, frame)
}

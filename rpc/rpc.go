// Package rpc layers a request/reply call on top of the pub/sub transport.
//
// A service listens on rpc/<service>/<method>; each request names a unique
// reply topic the response is published to. Envelopes are JSON: params and
// results stay schemaless so services define their own shapes.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"telemesh/transport"
)

var (
	ErrDuplicateMethod = errors.New("method already registered")
	ErrRemote          = errors.New("remote error")
)

// DefaultCallTimeout bounds Call when the caller's context has no deadline.
const DefaultCallTimeout = 5 * time.Second

type request struct {
	ID      string          `json:"id"`
	ReplyTo string          `json:"reply_to"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Handler processes one request. A returned error travels back to the
// caller as the response's error field.
type Handler func(params json.RawMessage) (any, error)

// Server routes incoming requests for one service to registered method
// handlers.
type Server struct {
	ps      transport.PubSub
	service string
	log     *slog.Logger

	mu        sync.Mutex
	methods   map[string]func()
	closeOnce sync.Once
}

func NewServer(ps transport.PubSub, service string) *Server {
	return &Server{
		ps:      ps,
		service: service,
		log:     slog.Default().With("component", "rpc", "service", service),
		methods: make(map[string]func()),
	}
}

// Handle registers a method and starts serving it. Handlers run on the
// delivery goroutine of their method topic; a slow handler delays only its
// own method.
func (s *Server) Handle(method string, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.methods[method]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, method)
	}

	topic := fmt.Sprintf("rpc/%s/%s", s.service, method)
	ch, cancel, err := s.ps.Subscribe(topic)
	if err != nil {
		return err
	}
	s.methods[method] = cancel

	go func() {
		for msg := range ch {
			s.serve(method, h, msg.Payload)
		}
	}()
	return nil
}

func (s *Server) serve(method string, h Handler, payload []byte) {
	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.log.Warn("dropping malformed request", "method", method, "error", err)
		return
	}
	if req.ReplyTo == "" {
		s.log.Warn("dropping request without reply topic", "method", method, "id", req.ID)
		return
	}

	resp := response{ID: req.ID}
	result, err := h(req.Params)
	if err != nil {
		resp.Error = err.Error()
	} else if raw, err := json.Marshal(result); err != nil {
		resp.Error = err.Error()
	} else {
		resp.Result = raw
	}

	out, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn("encoding response failed", "method", method, "error", err)
		return
	}
	if err := s.ps.Publish(req.ReplyTo, out); err != nil {
		s.log.Warn("publishing response failed", "method", method, "error", err)
	}
}

// Close cancels all method subscriptions. Idempotent, never fails.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, cancel := range s.methods {
			cancel()
		}
		s.methods = make(map[string]func())
	})
}

// Client issues calls against rpc services over the shared transport.
type Client struct {
	ps transport.PubSub
}

func NewClient(ps transport.PubSub) *Client {
	return &Client{ps: ps}
}

// Call publishes one request and waits for its reply. When ctx carries no
// deadline, DefaultCallTimeout applies. A handler-side failure comes back
// wrapped in ErrRemote.
func (c *Client) Call(ctx context.Context, service, method string, params any) (json.RawMessage, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
		defer cancel()
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}

	id := uuid.NewString()
	topic := fmt.Sprintf("rpc/%s/%s", service, method)
	replyTo := fmt.Sprintf("%s/reply/%s", topic, id)

	// Subscribe before publishing so the reply cannot slip past us.
	ch, cancel, err := c.ps.Subscribe(replyTo)
	if err != nil {
		return nil, err
	}
	defer cancel()

	req, err := json.Marshal(request{ID: id, ReplyTo: replyTo, Params: raw})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if err := c.ps.Publish(topic, req); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil, errors.New("reply subscription closed")
			}
			var resp response
			if err := json.Unmarshal(msg.Payload, &resp); err != nil {
				continue
			}
			if resp.ID != id {
				continue
			}
			if resp.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
			}
			return resp.Result, nil
		}
	}
}

// Package nodetest provides an in-process node speaking the JSON-RPC over
// websocket subset pulsar uses, for tests that need a running node.
package nodetest

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handler answers one method call.
type Handler func(params []json.RawMessage) (any, *Error)

// Server is a fake node listening on 127.0.0.1. Methods without a handler
// answer "Method not found".
type Server struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	handlers map[string]Handler
	heads    []any
	calls    map[string]int
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		handlers: make(map[string]Handler),
		calls:    make(map[string]int),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.server.Close)
	return s
}

// URL returns the websocket URL of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

// Port returns the local port the server listens on.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.server.Listener.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// Handle registers h for method, replacing any previous handler.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Result makes method always return v.
func (s *Server) Result(method string, v any) {
	s.Handle(method, func([]json.RawMessage) (any, *Error) { return v, nil })
}

// SetHeads sets the headers announced to chain_subscribeNewHeads.
func (s *Server) SetHeads(heads ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heads = heads
}

// Calls returns how often method was called.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(v any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.WriteJSON(v)
	}

	for {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		s.mu.Lock()
		s.calls[req.Method]++
		h, ok := s.handlers[req.Method]
		heads := append([]any(nil), s.heads...)
		s.mu.Unlock()

		if req.Method == "chain_subscribeNewHeads" {
			// Notifications go out before the response, as a busy node may do.
			for _, head := range heads {
				send(map[string]any{
					"jsonrpc": "2.0",
					"method":  "chain_newHead",
					"params":  map[string]any{"subscription": "sub-1", "result": head},
				})
			}
			send(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "sub-1"})
			continue
		}

		if !ok {
			send(map[string]any{"jsonrpc": "2.0", "id": req.ID,
				"error": Error{Code: -32601, Message: "Method not found"}})
			continue
		}
		res, rpcErr := h(req.Params)
		if rpcErr != nil {
			send(map[string]any{"jsonrpc": "2.0", "id": req.ID, "error": rpcErr})
			continue
		}
		send(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": res})
	}
}

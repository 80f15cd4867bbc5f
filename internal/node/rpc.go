package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	subscriptionBuffer = 64
	maxEarlyNotices    = 128
	writeTimeout       = 10 * time.Second
)

// ErrClientClosed is returned for calls made after the connection ended.
var ErrClientClosed = errors.New("rpc client closed")

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type message struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	Method string          `json:"method"`
	Params *struct {
		Subscription json.RawMessage `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type response struct {
	result json.RawMessage
	err    error
}

// Client is a JSON-RPC 2.0 client over a single websocket connection. It is
// safe for concurrent use.
type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan response
	subs    map[string]*Subscription
	early   map[string][]json.RawMessage
	err     error

	closed chan struct{}
}

// Dial connects to the node RPC endpoint (e.g. ws://127.0.0.1:9944).
func Dial(ctx context.Context, url string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to node rpc %s: %w", url, err)
	}
	conn.SetReadLimit(64 << 20)

	c := &Client{
		conn:    conn,
		logger:  logger.With(zap.String("component", "rpc")),
		pending: make(map[uint64]chan response),
		subs:    make(map[string]*Subscription),
		early:   make(map[string][]json.RawMessage),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close ends the connection. Pending calls fail and subscriptions close.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.closed
	return err
}

// Done is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} { return c.closed }

// Call invokes method and decodes the result into result, which may be nil.
func (c *Client) Call(ctx context.Context, method string, result any, params ...any) error {
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	ch := make(chan response, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	req := request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := c.write(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.err != nil {
			return nil, fmt.Errorf("%s: %w", method, resp.err)
		}
		return resp.result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Client) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *Client) readLoop() {
	var err error
	for {
		var msg message
		if err = c.conn.ReadJSON(&msg); err != nil {
			break
		}
		c.dispatch(&msg)
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		err = nil
	}
	c.shutdown(err)
}

func (c *Client) dispatch(msg *message) {
	if msg.ID != nil {
		c.mu.Lock()
		ch, ok := c.pending[*msg.ID]
		delete(c.pending, *msg.ID)
		c.mu.Unlock()
		if !ok {
			return
		}
		if msg.Error != nil {
			ch <- response{err: msg.Error}
			return
		}
		ch <- response{result: msg.Result}
		return
	}

	if msg.Params == nil || msg.Method == "" {
		c.logger.Debug("ignoring unexpected message")
		return
	}
	id := subscriptionID(msg.Params.Subscription)

	c.mu.Lock()
	sub, ok := c.subs[id]
	if !ok {
		// The notification raced the subscribe response.
		if len(c.early[id]) < maxEarlyNotices {
			c.early[id] = append(c.early[id], msg.Params.Result)
		}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	sub.deliver(msg.Params.Result)
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	if err == nil {
		err = ErrClientClosed
	} else {
		err = fmt.Errorf("%w: %w", ErrClientClosed, err)
	}
	c.err = err
	pending := c.pending
	c.pending = make(map[uint64]chan response)
	subs := c.subs
	c.subs = make(map[string]*Subscription)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- response{err: err}
	}
	for _, sub := range subs {
		sub.close(err)
	}
	close(c.closed)
}

// Subscription receives notifications for one subscription id.
type Subscription struct {
	id          string
	unsubscribe string
	client      *Client
	logger      *zap.Logger

	mu     sync.Mutex
	ch     chan json.RawMessage
	err    error
	closed bool
}

// Subscribe calls method and routes the notifications for the returned id to
// the subscription. unsubscribeMethod is used by Unsubscribe.
func (c *Client) Subscribe(ctx context.Context, method, unsubscribeMethod string, params ...any) (*Subscription, error) {
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	id := subscriptionID(raw)
	if id == "" {
		return nil, fmt.Errorf("%s: empty subscription id", method)
	}

	sub := &Subscription{
		id:          id,
		unsubscribe: unsubscribeMethod,
		client:      c,
		logger:      c.logger.With(zap.String("subscription", method)),
		ch:          make(chan json.RawMessage, subscriptionBuffer),
	}

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.subs[id] = sub
	early := c.early[id]
	delete(c.early, id)
	c.mu.Unlock()

	for _, n := range early {
		sub.deliver(n)
	}
	return sub, nil
}

// C returns the notification channel. It is closed when the subscription
// ends; Err then reports why.
func (s *Subscription) C() <-chan json.RawMessage { return s.ch }

// Err returns the reason the subscription ended, or nil while it is active or
// after a clean Unsubscribe.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Unsubscribe stops the subscription on the node and closes C.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	s.client.mu.Lock()
	delete(s.client.subs, s.id)
	s.client.mu.Unlock()
	s.close(nil)

	if s.unsubscribe == "" {
		return nil
	}
	var ok bool
	if err := s.client.Call(ctx, s.unsubscribe, &ok, s.id); err != nil && !errors.Is(err, ErrClientClosed) {
		return err
	}
	return nil
}

func (s *Subscription) deliver(n json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- n:
	default:
		s.logger.Warn("subscription buffer full, dropping notification")
	}
}

func (s *Subscription) close(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}

// subscriptionID normalizes ids sent either as strings or as numbers.
func subscriptionID(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 10 * time.Second

	maxMessageSize = 1 << 20
)

// WSConn adapts a gorilla websocket to Conn and keeps it alive with pings.
type WSConn struct {
	ws           *websocket.Conn
	pingInterval time.Duration
	logger       *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// NewWSConn wraps ws. A positive pingInterval starts the keepalive loop;
// the peer then has pingInterval plus a grace period to answer.
func NewWSConn(ws *websocket.Conn, pingInterval time.Duration, logger *zap.Logger) *WSConn {
	c := &WSConn{
		ws:           ws,
		pingInterval: pingInterval,
		logger:       logger,
		done:         make(chan struct{}),
	}

	ws.SetReadLimit(maxMessageSize)
	if pingInterval > 0 {
		c.extendReadDeadline()
		ws.SetPongHandler(func(string) error {
			c.extendReadDeadline()
			return nil
		})
		go c.pingLoop()
	}
	return c
}

func (c *WSConn) extendReadDeadline() {
	if c.pingInterval > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.pingInterval + pongWait))
	}
}

func (c *WSConn) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("Ping failed", zap.Error(err))
				return
			}
		}
	}
}

// ReadMessage blocks for the next text or binary frame. Cancelling ctx
// unblocks it; the connection is unusable afterwards.
func (c *WSConn) ReadMessage(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, classify(err)
		}
		c.extendReadDeadline()
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *WSConn) WriteMessage(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.ws.SetWriteDeadline(deadline)

	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return classify(err)
	}
	return nil
}

// Close sends a normal close frame and releases the socket. It is safe to
// call more than once.
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

func classify(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) || errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return err
}

// WSDialer dials the relay websocket endpoint.
type WSDialer struct {
	URL              string
	Query            url.Values // merged into the URL's own query
	Header           http.Header
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	Logger           *zap.Logger
}

func (d *WSDialer) Dial(ctx context.Context) (Conn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}
	q := u.Query()
	for k, vs := range d.Query {
		q[k] = vs
	}
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}

	ws, resp, err := dialer.DialContext(ctx, u.String(), d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w (status %d)", RedactURL(u), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", RedactURL(u), err)
	}

	return NewWSConn(ws, d.PingInterval, d.Logger), nil
}

// RedactURL returns u without its query string, which may carry a token.
func RedactURL(u *url.URL) string {
	cp := *u
	cp.RawQuery = ""
	cp.User = nil
	return cp.String()
}

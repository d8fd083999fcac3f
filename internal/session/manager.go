package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/dispatch"
	"github.com/Odwa2003/Phone-Controller/internal/models"
	"github.com/Odwa2003/Phone-Controller/internal/transport"
)

// ErrAuthRejected is returned when the relay refuses the registration.
var ErrAuthRejected = errors.New("relay rejected authentication")

// Dispatcher handles one inbound frame.
type Dispatcher interface {
	Dispatch(ctx context.Context, raw []byte, control dispatch.ControlHandler) *models.Envelope
}

type Options struct {
	Identity string // pair id; empty uses the legacy auth frame
	Token    string

	AuthAck     bool // wait for the relay to acknowledge registration
	AuthTimeout time.Duration

	ReconnectFloor   time.Duration
	ReconnectCeiling time.Duration
	ReconnectFactor  float64

	// Sleep waits out the reconnect delay; nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnState, when set, observes every state transition.
	OnState func(State)
}

// Manager owns the session and its reconnect loop.
type Manager struct {
	dialer     transport.Dialer
	dispatcher Dispatcher
	events     transport.EventSink
	opts       Options
	logger     *zap.Logger

	backoff *Backoff

	mu      sync.Mutex
	session Session
}

func NewManager(dialer transport.Dialer, dispatcher Dispatcher, events transport.EventSink, opts Options, logger *zap.Logger) *Manager {
	if opts.ReconnectFloor <= 0 {
		opts.ReconnectFloor = 5 * time.Second
	}
	if opts.ReconnectCeiling <= 0 {
		opts.ReconnectCeiling = 60 * time.Second
	}
	if opts.ReconnectFactor <= 0 {
		opts.ReconnectFactor = 1.5
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = 10 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if events == nil {
		events = transport.NopSink{}
	}

	return &Manager{
		dialer:     dialer,
		dispatcher: dispatcher,
		events:     events,
		opts:       opts,
		logger:     logger,
		backoff:    NewBackoff(opts.ReconnectFloor, opts.ReconnectCeiling, opts.ReconnectFactor),
		session: Session{
			Identity:       opts.Identity,
			State:          Disconnected,
			ReconnectDelay: opts.ReconnectFloor,
		},
	}
}

// Snapshot returns a copy of the current session record.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Run connects and reconnects until ctx is cancelled. It returns nil on
// shutdown; transport failures are never returned.
func (m *Manager) Run(ctx context.Context) error {
	for {
		err := m.connectOnce(ctx)
		m.disconnect(err)

		if ctx.Err() != nil {
			return nil
		}

		delay := m.backoff.Next()
		m.mu.Lock()
		m.session.ReconnectDelay = delay
		m.mu.Unlock()

		m.logger.Warn("Disconnected from relay, retrying",
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := m.opts.Sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

func (m *Manager) connectOnce(ctx context.Context) error {
	connID := uuid.NewString()
	m.mu.Lock()
	m.session.ConnectionID = connID
	m.mu.Unlock()
	m.setState(Connecting)

	conn, err := m.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	c := &connection{m: m, conn: conn, id: connID}

	m.setState(AwaitingAuth)
	if err := c.register(ctx); err != nil {
		return err
	}
	if m.opts.AuthAck {
		if err := c.awaitAck(ctx); err != nil {
			return err
		}
	}
	m.ready()

	return c.receive(ctx)
}

func (m *Manager) ready() {
	m.backoff.Reset()
	m.mu.Lock()
	m.session.Authenticated = true
	m.session.ReconnectDelay = m.opts.ReconnectFloor
	m.mu.Unlock()
	m.setState(Ready)
	m.logger.Info("Session ready", zap.String("identity", m.opts.Identity))
}

// disconnect resets the session to its initial state.
func (m *Manager) disconnect(cause error) {
	m.mu.Lock()
	wasReady := m.session.State == Ready
	m.session = Session{
		Identity:       m.opts.Identity,
		State:          m.session.State,
		ReconnectDelay: m.session.ReconnectDelay,
	}
	m.mu.Unlock()

	if wasReady {
		m.logger.Info("Session closed", zap.Error(cause))
	}
	m.setState(Disconnected)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.session.State
	m.session.State = s
	connID := m.session.ConnectionID
	m.mu.Unlock()

	if prev == s {
		return
	}

	m.logger.Debug("Session state changed", zap.Stringer("from", prev), zap.Stringer("to", s))
	m.events.Publish(models.Event{
		Kind:         models.EventSession,
		Identity:     m.opts.Identity,
		ConnectionID: connID,
		State:        s.String(),
		Timestamp:    time.Now().UTC(),
	})
	if m.opts.OnState != nil {
		m.opts.OnState(s)
	}
}

func (m *Manager) setPartner(connected bool) {
	m.mu.Lock()
	changed := m.session.PartnerConnected != connected
	m.session.PartnerConnected = connected
	m.mu.Unlock()

	if changed {
		m.logger.Info("Phone presence changed", zap.Bool("connected", connected))
	}
}

// connection is one dial attempt. It answers reserved frames for the dispatcher.
type connection struct {
	m    *Manager
	conn transport.Conn
	id   string

	fatal error // set by a relay error frame
}

func (c *connection) register(ctx context.Context) error {
	var frame any
	if c.m.opts.Identity != "" {
		frame = models.RegisterFrame{
			Type:   models.FrameRegister,
			Role:   "pc",
			PairID: c.m.opts.Identity,
			Token:  c.m.opts.Token,
		}
	} else {
		frame = models.AuthFrame{Type: models.FrameAuth, Token: c.m.opts.Token}
	}

	if err := c.send(ctx, frame); err != nil {
		return fmt.Errorf("failed to send registration: %w", err)
	}
	c.m.logger.Info("Registered with relay",
		zap.String("identity", c.m.opts.Identity),
		zap.String("connection_id", c.id))
	return nil
}

// awaitAck reads frames until the relay acknowledges the registration.
// Commands arriving first are answered as not ready.
func (c *connection) awaitAck(ctx context.Context) error {
	ackCtx, cancel := context.WithTimeout(ctx, c.m.opts.AuthTimeout)
	defer cancel()

	for {
		raw, err := c.conn.ReadMessage(ackCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("no registration acknowledgement within %s", c.m.opts.AuthTimeout)
			}
			return err
		}

		var ack models.AuthAck
		if err := json.Unmarshal(raw, &ack); err != nil {
			c.m.logger.Warn("Ignoring invalid frame before registration", zap.Error(err))
			continue
		}

		switch ack.Type {
		case models.FrameRegistered, models.FrameAuthOK:
			return nil
		case models.FrameAuthResponse:
			if ack.OK != nil && *ack.OK {
				return nil
			}
			return ErrAuthRejected
		}

		if models.IsReserved(ack.Type) {
			if env := c.HandleControl(ctx, models.Frame{Type: ack.Type, Raw: raw}); env != nil {
				if err := c.send(ctx, env); err != nil {
					return err
				}
			}
			if c.fatal != nil {
				return c.fatal
			}
			continue
		}

		env := models.Failed(models.ErrMsgSessionNotReady)
		var frame models.Frame
		if json.Unmarshal(raw, &frame) == nil {
			env.Seq = frame.Seq
		}
		if err := c.send(ctx, env); err != nil {
			return err
		}
	}
}

// receive processes frames strictly in order until the connection ends.
func (c *connection) receive(ctx context.Context) error {
	for {
		raw, err := c.conn.ReadMessage(ctx)
		if err != nil {
			return err
		}

		env := c.m.dispatcher.Dispatch(ctx, raw, c)
		if env != nil {
			if err := c.send(ctx, env); err != nil {
				return fmt.Errorf("failed to send response: %w", err)
			}
		}
		if c.fatal != nil {
			return c.fatal
		}
	}
}

func (c *connection) send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	return c.conn.WriteMessage(ctx, data)
}

// HandleControl answers relay-level frames.
func (c *connection) HandleControl(_ context.Context, frame models.Frame) *models.Envelope {
	switch frame.Type {
	case models.FrameAuth:
		var req models.AuthFrame
		_ = json.Unmarshal(frame.Raw, &req)
		ok := req.Token == "" || req.Token == c.m.opts.Token
		if !ok {
			c.m.logger.Warn("Relay auth request with wrong token")
			return &models.Envelope{OK: false, Type: models.FrameAuthResponse, Auth: &ok, Error: models.ErrMsgAuthFailed}
		}
		return &models.Envelope{OK: true, Type: models.FrameAuthResponse, Auth: &ok}

	case models.FrameRelayStatus:
		var status models.RelayStatus
		if err := json.Unmarshal(frame.Raw, &status); err == nil && status.PhoneConnected != nil {
			c.m.setPartner(*status.PhoneConnected)
		}

	case models.FramePartnerConnected:
		c.m.setPartner(true)

	case models.FramePartnerDisconnected:
		c.m.setPartner(false)

	case models.FrameError:
		var relayErr models.RelayError
		_ = json.Unmarshal(frame.Raw, &relayErr)
		msg := relayErr.Message
		if msg == "" {
			msg = relayErr.Error
		}
		c.m.logger.Error("Relay reported an error", zap.String("message", msg))
		c.fatal = fmt.Errorf("relay error: %s", msg)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

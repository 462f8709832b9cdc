package server

import (
	"errors"
	"sync"
	"time"

	"market-streamer/src/helpers"
	"market-streamer/src/logger"
	"market-streamer/src/metrics"
	"market-streamer/src/models"
	"market-streamer/src/protocol"
	"market-streamer/src/registry"
	"market-streamer/src/simulation"
)

var ErrHubClosed = errors.New("hub is closed")

// Conn is one client session as seen by the hub.
type Conn interface {
	ID() string
	// Send queues msg without blocking; false means it could not be queued.
	Send(msg models.Outbound) bool
	Close()
}

// -----------------------------------------------------------------------------
// Connection state
// -----------------------------------------------------------------------------

type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateSubscribed
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// session.turn serialises everything queued for one connection: a request
// and its replies form one turn, and scheduled deliveries wait for it.
type session struct {
	conn  Conn
	state ConnState
	turn  sync.Mutex
}

// -----------------------------------------------------------------------------
// Hub
// -----------------------------------------------------------------------------

// Hub is the protocol surface: it admits connections, applies their
// subscribe/unsubscribe requests to the registry and delivers messages.
type Hub struct {
	Registry *registry.Registry
	Engine   *simulation.Engine
	Codec    *protocol.Codec
	Logger   *logger.Logger
	Metrics  *metrics.Metrics

	rejectUnknown bool
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
}

func NewHub(
	reg *registry.Registry,
	engine *simulation.Engine,
	cfg models.MStreamingConfig,
	m *metrics.Metrics,
	log *logger.Logger,
) *Hub {
	return &Hub{
		Registry:      reg,
		Engine:        engine,
		Codec:         protocol.NewCodec(),
		Logger:        log,
		Metrics:       m,
		rejectUnknown: cfg.RejectUnknownTypes,
		now:           time.Now,
		sessions:      make(map[string]*session),
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Connect registers c and emits the "connected" status.
func (h *Hub) Connect(c Conn) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	s := &session{conn: c, state: StateConnecting}
	s.turn.Lock()
	defer s.turn.Unlock()
	h.sessions[c.ID()] = s
	h.Registry.RegisterConnection(c.ID())
	h.mu.Unlock()

	h.Metrics.Connections.Inc()
	h.setState(c.ID(), StateConnected)
	h.send(c, models.NewStatusMessage(models.StatusConnected, nil))
	h.Logger.Debug("Client %s connected", c.ID())
	return nil
}

// Disconnect removes c from the hub and the registry. Returns false if c
// was already gone.
func (h *Hub) Disconnect(c Conn) bool {
	h.mu.Lock()
	s, ok := h.sessions[c.ID()]
	if ok {
		delete(h.sessions, c.ID())
		s.state = StateDisconnected
	}
	h.mu.Unlock()

	if !ok {
		return false
	}

	h.Registry.RemoveConnection(c.ID())
	h.Metrics.Connections.Dec()
	c.Close()
	h.Logger.Debug("Client %s disconnected", c.ID())
	return true
}

// Close stops admitting connections and disconnects every session.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]Conn, 0, len(h.sessions))
	for _, s := range h.sessions {
		conns = append(conns, s.conn)
	}
	h.mu.Unlock()

	for _, c := range conns {
		h.Disconnect(c)
	}
	h.Logger.Info("Hub closed (%d sessions released)", len(conns))
}

func (h *Hub) IsClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// Count returns the number of live sessions
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// State returns the protocol state of connection id
func (h *Hub) State(id string) ConnState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.sessions[id]; ok {
		return s.state
	}
	return StateDisconnected
}

// lockTurn takes the session turn of c. The returned func releases it; it is
// a no-op when c has no session.
func (h *Hub) lockTurn(c Conn) func() {
	h.mu.RLock()
	s, ok := h.sessions[c.ID()]
	h.mu.RUnlock()
	if !ok {
		return func() {}
	}
	s.turn.Lock()
	return s.turn.Unlock
}

func (h *Hub) setState(id string, st ConnState) {
	h.mu.Lock()
	if s, ok := h.sessions[id]; ok {
		s.state = st
	}
	h.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Delivery
// -----------------------------------------------------------------------------

// Deliver implements interfaces.IDeliverer for the scheduler.
func (h *Hub) Deliver(id string, msg models.Outbound) bool {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	s.turn.Lock()
	defer s.turn.Unlock()
	return h.send(s.conn, msg)
}

// send queues msg for c. A full buffer disconnects c so the cycle never waits
// on a slow consumer.
func (h *Hub) send(c Conn, msg models.Outbound) bool {
	if c.Send(msg) {
		h.Metrics.MessagesSent.WithLabelValues(msg.MessageType()).Inc()
		return true
	}

	if h.Disconnect(c) {
		h.Metrics.SlowConsumers.Inc()
		h.Logger.Warning("Client %s dropped: send buffer full", c.ID())
	}
	return false
}

// -----------------------------------------------------------------------------
// Inbound dispatch
// -----------------------------------------------------------------------------

// HandleMessage decodes one frame from c and dispatches it. Any failure is
// reported to c alone.
func (h *Hub) HandleMessage(c Conn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.Logger.Error("Panic while handling message from %s: %v", c.ID(), r)
			h.send(c, models.NewErrorMessage(models.CodeInternal, "internal error while handling message"))
		}
	}()

	msg, err := h.Codec.Decode(raw)
	if err != nil {
		h.reject(c, err)
		return
	}

	switch m := msg.(type) {
	case models.SubscribeRequest:
		h.handleSubscribe(c, m)
	case models.UnsubscribeRequest:
		h.handleUnsubscribe(c, m)
	case models.UnknownMessage:
		h.handleUnknown(c, m)
	}
}

func (h *Hub) handleSubscribe(c Conn, req models.SubscribeRequest) {
	defer h.lockTurn(c)()

	added, current, err := h.Registry.Subscribe(c.ID(), req.Symbols)
	if err != nil {
		h.reject(c, err)
		return
	}

	h.setState(c.ID(), StateSubscribed)
	h.send(c, models.NewStatusMessage(models.StatusSubscribed, current))

	if len(added) == 0 {
		return
	}

	// First tick goes out right away instead of waiting a full interval.
	ticks := h.Engine.GenerateTicks(added)
	h.Metrics.TicksGenerated.Add(float64(len(ticks)))
	h.send(c, models.NewTicksMessage(ticks, h.now().UnixMilli(), 0))
}

func (h *Hub) handleUnsubscribe(c Conn, req models.UnsubscribeRequest) {
	defer h.lockTurn(c)()

	_, remaining, err := h.Registry.Unsubscribe(c.ID(), req.Symbols)
	if err != nil {
		h.reject(c, err)
		return
	}

	h.setState(c.ID(), StateSubscribed)
	h.send(c, models.NewStatusMessage(models.StatusSubscribed, remaining))
}

func (h *Hub) handleUnknown(c Conn, m models.UnknownMessage) {
	if !h.rejectUnknown {
		h.Logger.Debug("Ignoring message type %q from %s", m.Type, c.ID())
		return
	}
	h.send(c, models.NewErrorMessage(models.CodeUnknownType, "unsupported message type: "+m.Type))
}

func (h *Hub) reject(c Conn, err error) {
	var verr *helpers.ValidationError
	var perr *helpers.ProtocolError

	switch {
	case errors.As(err, &verr):
		h.Metrics.ValidationErrors.Inc()
		h.send(c, models.NewErrorMessage(models.CodeValidation, verr.Error()))
	case errors.As(err, &perr):
		h.send(c, models.NewErrorMessage(perr.Code, perr.Message))
	case errors.Is(err, registry.ErrConnectionNotRegistered):
		h.send(c, models.NewErrorMessage(models.CodeInternal, "connection is not registered"))
	default:
		h.Logger.Error("Unexpected error for %s: %v", c.ID(), err)
		h.send(c, models.NewErrorMessage(models.CodeInternal, "internal error while handling message"))
	}
}

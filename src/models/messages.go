package models

// -----------------------------------------------------------------------------
// Message type tags
// -----------------------------------------------------------------------------

const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"

	TypeStatus    = "status"
	TypeTicks     = "ticks"
	TypeHeartbeat = "heartbeat"
	TypeError     = "error"
)

// Status literals. StatusSubscribed is also sent after an unsubscribe,
// even when no symbols remain.
const (
	StatusConnected  = "connected"
	StatusSubscribed = "subscribed"
	StatusError      = "error"
)

// Error codes carried by ErrorMessage.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeUnknownType    = "UNKNOWN_MESSAGE_TYPE"
	CodeInternal       = "INTERNAL_ERROR"
)

// -----------------------------------------------------------------------------
// Inbound (client -> server)
// -----------------------------------------------------------------------------

// Inbound is implemented by every decoded client message.
type Inbound interface {
	MessageType() string
}

// MEnvelope is decoded first to find the message tag.
type MEnvelope struct {
	Type string `json:"type"`
}

type SubscribeRequest struct {
	Type    string   `json:"type" validate:"required,eq=subscribe"`
	Symbols []string `json:"symbols" validate:"required,min=1,max=50,dive,min=1,max=10"`
}

func (SubscribeRequest) MessageType() string { return TypeSubscribe }

type UnsubscribeRequest struct {
	Type    string   `json:"type" validate:"required,eq=unsubscribe"`
	Symbols []string `json:"symbols" validate:"required,min=1,max=50,dive,min=1,max=10"`
}

func (UnsubscribeRequest) MessageType() string { return TypeUnsubscribe }

// UnknownMessage carries a tag that has no handler.
type UnknownMessage struct {
	Type string
}

func (m UnknownMessage) MessageType() string { return m.Type }

// -----------------------------------------------------------------------------
// Outbound (server -> client)
// -----------------------------------------------------------------------------

// Outbound is implemented by every message the server emits.
type Outbound interface {
	MessageType() string
}

type StatusMessage struct {
	Type              string   `json:"type"`
	Status            string   `json:"status"`
	SubscribedSymbols []string `json:"subscribedSymbols"`
	Message           string   `json:"message,omitempty"`
}

func (StatusMessage) MessageType() string { return TypeStatus }

func NewStatusMessage(status string, symbols []string) StatusMessage {
	if symbols == nil {
		symbols = []string{}
	}
	return StatusMessage{Type: TypeStatus, Status: status, SubscribedSymbols: symbols}
}

// NewStatusErrorMessage reports a session-level failure, such as a refused
// connection.
func NewStatusErrorMessage(message string) StatusMessage {
	msg := NewStatusMessage(StatusError, nil)
	msg.Message = message
	return msg
}

type TicksMessage struct {
	Type       string     `json:"type"`
	Ticks      []TickData `json:"ticks"`
	ServerTime int64      `json:"serverTime"`
	Interval   int64      `json:"interval,omitempty"`
}

func (TicksMessage) MessageType() string { return TypeTicks }

// NewTicksMessage builds a tick update; interval is in milliseconds and
// omitted from the wire when zero.
func NewTicksMessage(ticks []TickData, serverTime, interval int64) TicksMessage {
	return TicksMessage{Type: TypeTicks, Ticks: ticks, ServerTime: serverTime, Interval: interval}
}

type HeartbeatMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
}

func (HeartbeatMessage) MessageType() string { return TypeHeartbeat }

func NewHeartbeatMessage(serverTime int64) HeartbeatMessage {
	return HeartbeatMessage{Type: TypeHeartbeat, ServerTime: serverTime}
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ErrorMessage) MessageType() string { return TypeError }

func NewErrorMessage(code, message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: code, Message: message}
}

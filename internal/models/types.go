package models

import "encoding/json"

// Frame is the minimal view of any inbound message, used to route it
// before the type-specific payload is decoded.
type Frame struct {
	Type string          `json:"type"`
	Seq  uint64          `json:"seq,omitempty"`
	Raw  json.RawMessage `json:"-"`
}

// RegisterFrame is sent by the agent right after the relay connection opens.
type RegisterFrame struct {
	Type   string `json:"type"` // "register" or "auth"
	Role   string `json:"role,omitempty"`
	PairID string `json:"pairId,omitempty"`
	Token  string `json:"token"`
}

// AuthFrame is an authentication request, either from the relay to the agent
// or from a phone to the directly-listening server.
type AuthFrame struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

// RelayStatus reports whether the paired phone is attached to the relay.
type RelayStatus struct {
	Type           string `json:"type"`
	PhoneConnected *bool  `json:"phone_connected,omitempty"`
}

// RelayError is an explicit error frame from the relay; it ends the session.
type RelayError struct {
	Type    string `json:"type"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// AuthAck is the relay's acknowledgement of a register/auth frame.
type AuthAck struct {
	Type string `json:"type"`
	OK   *bool  `json:"ok,omitempty"`
	Auth *bool  `json:"auth,omitempty"`
}

// Envelope is the response sent back for every inbound command frame.
type Envelope struct {
	OK           bool                `json:"ok"`
	Type         string              `json:"type,omitempty"`
	Auth         *bool               `json:"auth,omitempty"`
	Error        string              `json:"error,omitempty"`
	Message      string              `json:"message,omitempty"`
	Command      string              `json:"command,omitempty"`
	Seq          uint64              `json:"seq,omitempty"`
	Results      []*Envelope         `json:"results,omitempty"`
	AICommands   []TranslatedCommand `json:"ai_commands,omitempty"`
	CommandCount *int                `json:"command_count,omitempty"`
	OriginalText string              `json:"original_text,omitempty"`
	AIProcessed  *bool               `json:"ai_processed,omitempty"`
}

// OK builds a successful envelope with an optional message.
func OK(message string) *Envelope {
	return &Envelope{OK: true, Message: message}
}

// Failed builds an error envelope.
func Failed(message string) *Envelope {
	return &Envelope{OK: false, Error: message}
}

// TranslatedCommand is one command produced from a natural-language input.
type TranslatedCommand struct {
	Command     Command `json:"command"`
	Confidence  float64 `json:"confidence"`
	AIProcessed bool    `json:"ai_processed"`
}

// Translation is the ordered result of translating one utterance.
type Translation struct {
	Original    string              `json:"original_text"`
	Commands    []TranslatedCommand `json:"commands"`
	AIProcessed bool                `json:"ai_processed"`
}

// Frame types that never reach the registry.
const (
	FrameAuth                = "auth"
	FrameAuthResponse        = "auth_response"
	FrameAuthOK              = "auth_ok"
	FrameRegister            = "register"
	FrameRegistered          = "registered"
	FrameRelayStatus         = "relay_status"
	FramePartnerConnected    = "partner_connected"
	FramePartnerDisconnected = "partner_disconnected"
	FrameError               = "error"
)

// IsReserved reports whether a frame type is handled by the session layer.
func IsReserved(frameType string) bool {
	switch frameType {
	case FrameAuth, FrameRelayStatus, FramePartnerConnected, FramePartnerDisconnected, FrameError:
		return true
	}
	return false
}

// Response error messages that clients match on.
const (
	ErrMsgInvalidJSON     = "Invalid JSON"
	ErrMsgNotObject       = "Payload must be a JSON object"
	ErrMsgUnknownType     = "Unknown command type: %s"
	ErrMsgFailsafe        = "Failsafe triggered"
	ErrMsgNoText          = "No text provided"
	ErrMsgSessionNotReady = "Session not ready"
	ErrMsgAuthFailed      = "Authentication failed"
	ErrMsgAuthRequired    = "Authentication required"
)

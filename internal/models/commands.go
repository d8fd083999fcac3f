package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Command type names accepted on the wire. Aliases decode into the same variant.
const (
	TypeClick            = "click"
	TypeMouseClick       = "mouse_click"
	TypeDoubleClick      = "double_click"
	TypeMouseDoubleClick = "mouse_double_click"
	TypeMove             = "move"
	TypeMouseMove        = "mouse_move"
	TypeType             = "type"
	TypeKeyboardType     = "keyboard_type"
	TypeScroll           = "scroll"
	TypeMouseScroll      = "mouse_scroll"
	TypeKey              = "key"
	TypeKeyboardPress    = "keyboard_press"
	TypePressKey         = "press_key"
	TypeHotkey           = "hotkey"
	TypeKeyboardHotkey   = "keyboard_hotkey"
	TypeOpenApp          = "open_app"
	TypeLaunchApp        = "launch_app"
	TypeNavigateURL      = "navigate_url"
	TypeSystemCommand    = "system_command"
	TypeAICommand        = "ai_command"
)

// Mouse buttons.
const (
	ButtonLeft   = "left"
	ButtonMiddle = "middle"
	ButtonRight  = "right"
)

// System actions. This set is closed.
const (
	ActionLock     = "lock"
	ActionSleep    = "sleep"
	ActionShutdown = "shutdown"
	ActionRestart  = "restart"
)

// Scroll directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Command is one decoded command variant.
type Command interface {
	CommandType() string
	Sequence() uint64
	Validate() error
}

// Header is embedded in every variant.
type Header struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`
}

func (h Header) CommandType() string { return h.Type }
func (h Header) Sequence() uint64    { return h.Seq }

// NewHeader returns a header for the given command type.
func NewHeader(commandType string) Header {
	return Header{Type: commandType}
}

type Click struct {
	Header
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Button string   `json:"button,omitempty"`
}

func (c *Click) Validate() error {
	if (c.X == nil) != (c.Y == nil) {
		return Faultf(FaultValidation, "%s requires both x and y", c.Type)
	}
	return validateButton(c.Button)
}

// ButtonOrDefault returns the requested button, left when unset.
func (c *Click) ButtonOrDefault() string {
	if c.Button == "" {
		return ButtonLeft
	}
	return strings.ToLower(c.Button)
}

type DoubleClick struct {
	Header
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

func (c *DoubleClick) Validate() error {
	if (c.X == nil) != (c.Y == nil) {
		return Faultf(FaultValidation, "%s requires both x and y", c.Type)
	}
	return nil
}

type Move struct {
	Header
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Duration *float64 `json:"duration,omitempty"` // seconds
}

func (m *Move) Validate() error {
	if m.X == nil || m.Y == nil {
		return Faultf(FaultValidation, "%s requires x and y", m.Type)
	}
	if m.Duration != nil && *m.Duration < 0 {
		return Faultf(FaultValidation, "duration must not be negative")
	}
	return nil
}

type TypeText struct {
	Header
	Text     string   `json:"text"`
	Interval *float64 `json:"interval,omitempty"` // seconds between keystrokes
}

func (t *TypeText) Validate() error {
	if t.Text == "" {
		return Faultf(FaultValidation, ErrMsgNoText)
	}
	if t.Interval != nil && *t.Interval < 0 {
		return Faultf(FaultValidation, "interval must not be negative")
	}
	return nil
}

type Scroll struct {
	Header
	Clicks    *int   `json:"clicks,omitempty"`
	Direction string `json:"direction,omitempty"`
}

func (s *Scroll) Validate() error {
	switch strings.ToLower(s.Direction) {
	case "", DirectionUp, DirectionDown:
		return nil
	}
	return Faultf(FaultValidation, "Invalid scroll direction: %s", s.Direction)
}

type KeyPress struct {
	Header
	Key string `json:"key"`
}

func (k *KeyPress) Validate() error {
	if strings.TrimSpace(k.Key) == "" {
		return Faultf(FaultValidation, "key is required")
	}
	return nil
}

type Hotkey struct {
	Header
	Keys []string `json:"keys"`
}

func (h *Hotkey) Validate() error {
	if len(h.Keys) == 0 {
		return Faultf(FaultValidation, "keys is required")
	}
	for _, k := range h.Keys {
		if strings.TrimSpace(k) == "" {
			return Faultf(FaultValidation, "keys must not contain empty entries")
		}
	}
	return nil
}

type OpenApp struct {
	Header
	Target string `json:"target,omitempty"`
	App    string `json:"app,omitempty"` // launch_app spelling
}

func (o *OpenApp) Validate() error {
	if strings.TrimSpace(o.Name()) == "" {
		return Faultf(FaultValidation, "target is required")
	}
	return nil
}

// Name returns the requested application, whichever field carried it.
func (o *OpenApp) Name() string {
	if o.Target != "" {
		return o.Target
	}
	return o.App
}

type NavigateURL struct {
	Header
	Target string `json:"target"`
}

func (n *NavigateURL) Validate() error {
	if strings.TrimSpace(n.Target) == "" {
		return Faultf(FaultValidation, "target is required")
	}
	return nil
}

type SystemCommand struct {
	Header
	Action string `json:"action"`
}

func (s *SystemCommand) Validate() error {
	if !IsSystemAction(s.Action) {
		return Faultf(FaultValidation, "Unknown system action: %s", s.Action)
	}
	return nil
}

// IsSystemAction reports whether action belongs to the closed action set.
func IsSystemAction(action string) bool {
	switch action {
	case ActionLock, ActionSleep, ActionShutdown, ActionRestart:
		return true
	}
	return false
}

type AICommand struct {
	Header
	Text string `json:"text"`
}

func (a *AICommand) Validate() error {
	if strings.TrimSpace(a.Text) == "" {
		return Faultf(FaultValidation, ErrMsgNoText)
	}
	return nil
}

var variants = map[string]func() Command{
	TypeClick:            func() Command { return &Click{} },
	TypeMouseClick:       func() Command { return &Click{} },
	TypeDoubleClick:      func() Command { return &DoubleClick{} },
	TypeMouseDoubleClick: func() Command { return &DoubleClick{} },
	TypeMove:             func() Command { return &Move{} },
	TypeMouseMove:        func() Command { return &Move{} },
	TypeType:             func() Command { return &TypeText{} },
	TypeKeyboardType:     func() Command { return &TypeText{} },
	TypeScroll:           func() Command { return &Scroll{} },
	TypeMouseScroll:      func() Command { return &Scroll{} },
	TypeKey:              func() Command { return &KeyPress{} },
	TypeKeyboardPress:    func() Command { return &KeyPress{} },
	TypePressKey:         func() Command { return &KeyPress{} },
	TypeHotkey:           func() Command { return &Hotkey{} },
	TypeKeyboardHotkey:   func() Command { return &Hotkey{} },
	TypeOpenApp:          func() Command { return &OpenApp{} },
	TypeLaunchApp:        func() Command { return &OpenApp{} },
	TypeNavigateURL:      func() Command { return &NavigateURL{} },
	TypeSystemCommand:    func() Command { return &SystemCommand{} },
	TypeAICommand:        func() Command { return &AICommand{} },
}

// DecodeCommand strictly decodes raw into its variant and validates it.
// Unknown fields are rejected.
func DecodeCommand(raw []byte) (Command, error) {
	var hdr Header
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, Faultf(FaultDecode, ErrMsgInvalidJSON)
	}

	newVariant, ok := variants[hdr.Type]
	if !ok {
		return nil, Faultf(FaultValidation, ErrMsgUnknownType, hdr.Type)
	}

	cmd := newVariant()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cmd); err != nil {
		return nil, payloadFault(hdr.Type, err)
	}

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// EncodeCommand returns the wire form of cmd.
func EncodeCommand(cmd Command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s command: %w", cmd.CommandType(), err)
	}
	return data, nil
}

// payloadFault rewords a decoder error without echoing decoder internals.
func payloadFault(commandType string, err error) *Fault {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return Faultf(FaultValidation, "Invalid %s payload: field %s must be %s", commandType, typeErr.Field, jsonKind(typeErr.Type))
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return Faultf(FaultValidation, "Invalid %s payload: unexpected field %s", commandType, strings.Trim(field, `"`))
	}
	return Faultf(FaultValidation, "Invalid %s payload", commandType)
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64, reflect.Uint64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Slice:
		return "a list"
	}
	return "a " + t.Kind().String()
}

func validateButton(button string) error {
	switch strings.ToLower(button) {
	case "", ButtonLeft, ButtonMiddle, ButtonRight:
		return nil
	}
	return Faultf(FaultValidation, "Invalid button: %s", button)
}

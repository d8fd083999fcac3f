package models

import (
	"errors"
	"fmt"
)

// FaultKind classifies an error that is reported back to the operator.
type FaultKind string

const (
	FaultDecode     FaultKind = "decode"
	FaultValidation FaultKind = "validation"
	FaultHandler    FaultKind = "handler"
	FaultAuth       FaultKind = "auth"
)

// Fault is an error whose message is safe to send over the wire.
type Fault struct {
	Kind FaultKind
	Msg  string
}

func (f *Fault) Error() string { return f.Msg }

// Faultf builds a Fault with a formatted message.
func Faultf(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// AsFault extracts a Fault from err, if any.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

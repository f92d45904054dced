// Package gunerr defines the typed error taxonomy shared across the Gun
// core. Callers should branch on Kind with gunerr.Is (or errors.As to
// *Error) rather than matching on error strings.
package gunerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the categories the core promises to
// signal to callers. See spec §7 for the full propagation policy.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidData
	KindInvalidSoul
	KindNotFound
	KindStorage
	KindNetwork
	KindCrypto
	KindVerificationFailed
	KindEncryption
	KindDecryption
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInvalidData:
		return "invalid_data"
	case KindInvalidSoul:
		return "invalid_soul"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindNetwork:
		return "network"
	case KindCrypto:
		return "crypto"
	case KindVerificationFailed:
		return "verification_failed"
	case KindEncryption:
		return "encryption"
	case KindDecryption:
		return "decryption"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// category without parsing strings.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a *Error with no wrapped cause.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap annotates err with a Kind and operation name. Returns nil if err is
// nil, so it is safe to use as `return gunerr.Wrap(..., err)`.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

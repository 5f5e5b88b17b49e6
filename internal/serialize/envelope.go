// Package serialize implements the discriminated-union JSON envelope the
// storage and monitoring layers exchange, grounded on
// edera/serializable.py's {"?": className, "!": payload} contract.
package serialize

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire shape every serialized value is wrapped in.
type Envelope struct {
	Class   string          `json:"?"`
	Payload json.RawMessage `json:"!"`
}

// Wrap marshals value and tags it with class.
func Wrap(class string, value any) (string, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("serialize %s: %w", class, err)
	}
	env := Envelope{Class: class, Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("serialize envelope for %s: %w", class, err)
	}
	return string(data), nil
}

// Unwrap parses an envelope and reports its class tag plus raw payload,
// letting the caller dispatch to the right concrete type.
func Unwrap(data string) (class string, payload json.RawMessage, err error) {
	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return "", nil, fmt.Errorf("parse envelope: %w", err)
	}
	return env.Class, env.Payload, nil
}

// Into unwraps data, checks the class tag matches want, and unmarshals
// the payload into out.
func Into(data string, want string, out any) error {
	class, payload, err := Unwrap(data)
	if err != nil {
		return err
	}
	if class != want {
		return fmt.Errorf("expected class %q, got %q", want, class)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", want, err)
	}
	return nil
}

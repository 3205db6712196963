// Package domain contains core concepts of the relay.
// This file defines the structured envelope carried by text frames.
package domain

import (
	"bytes"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// GroupName is a lazily materialized broadcast topic.
type GroupName string

// Envelope is the wire shape of text frames:
//
//	{ "group": "<string, optional>", "data": <any JSON value> }
//
// An absent or empty group means global broadcast.
type Envelope struct {
	Group GroupName       `json:"group,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ParseEnvelope decodes a text payload. The payload must be valid UTF-8 and
// a JSON object, and "group", when present, must be a string.
// Keys are matched exactly: "Group" or "GROUP" are ordinary fields.
func ParseEnvelope(payload []byte) (Envelope, error) {
	if !utf8.Valid(payload) {
		return Envelope{}, fmt.Errorf("%w: invalid UTF-8", errors.ErrMalformedEnvelope)
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, fmt.Errorf("%w: not a JSON object", errors.ErrMalformedEnvelope)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}

	var env Envelope
	if raw, ok := fields["group"]; ok {
		var group *string
		if err := json.Unmarshal(raw, &group); err != nil {
			return Envelope{}, fmt.Errorf("%w: group: %v", errors.ErrMalformedEnvelope, err)
		}
		if group != nil {
			env.Group = GroupName(*group)
		}
	}
	if raw, ok := fields["data"]; ok {
		env.Data = raw
	}
	return env, nil
}

// IsGrouped reports whether the envelope targets a group rather than everyone.
func (e Envelope) IsGrouped() bool {
	return e.Group != ""
}

// Encode returns the envelope as a text payload.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

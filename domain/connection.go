// Package domain contains core concepts of the relay.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/google/uuid"

// ConnID identifies one live connection for its whole lifetime.
type ConnID string

func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

func (id ConnID) String() string {
	return string(id)
}

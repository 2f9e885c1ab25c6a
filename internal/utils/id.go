package utils

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewConnectionID returns a unique identifier for a websocket connection.
func NewConnectionID() string {
	return uuid.NewString()
}

// NewSessionID returns a sortable unique identifier for a retrospective session.
func NewSessionID() string {
	return ksuid.New().String()
}

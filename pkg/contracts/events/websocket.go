// Package events contains the websocket message contracts pushed to admin
// browsers.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Connection messages
	MessageTypeConnect   MessageType = "connect"
	MessageTypeHeartbeat MessageType = "heartbeat"

	// Bulk job messages mirror domain.JobEvent types
	MessageTypeBulkStarted   MessageType = "bulk:started"
	MessageTypeBulkProgress  MessageType = "bulk:progress"
	MessageTypeBulkCompleted MessageType = "bulk:completed"
	MessageTypeBulkAborted   MessageType = "bulk:aborted"
)

// Message is the frame sent to every connected client
type Message struct {
	Type      MessageType `json:"type"`
	JobID     string      `json:"job_id,omitempty"`
	Status    string      `json:"status,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// ConnectData is the payload of the connect message
type ConnectData struct {
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Version  string `json:"version"`
}

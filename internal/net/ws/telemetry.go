package ws

import "sync/atomic"

// Counters tracks connection and traffic totals for the health endpoint.
// All fields are monotonic except activeConnections.
type Counters struct {
	activeConnections atomic.Int64
	totalConnections  atomic.Uint64
	messagesReceived  atomic.Uint64
	messagesSent      atomic.Uint64
	bytesSent         atomic.Uint64
	invalidMessages   atomic.Uint64
}

// CountersSnapshot is the JSON shape served by the health endpoint.
type CountersSnapshot struct {
	ActiveConnections int64  `json:"activeConnections"`
	TotalConnections  uint64 `json:"totalConnections"`
	MessagesReceived  uint64 `json:"messagesReceived"`
	MessagesSent      uint64 `json:"messagesSent"`
	BytesSent         uint64 `json:"bytesSent"`
	InvalidMessages   uint64 `json:"invalidMessages"`
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) RecordConnect() {
	c.activeConnections.Add(1)
	c.totalConnections.Add(1)
}

func (c *Counters) RecordDisconnect() {
	c.activeConnections.Add(-1)
}

func (c *Counters) RecordReceive() {
	c.messagesReceived.Add(1)
}

func (c *Counters) RecordSend(bytes int) {
	c.messagesSent.Add(1)
	if bytes > 0 {
		c.bytesSent.Add(uint64(bytes))
	}
}

func (c *Counters) RecordInvalid() {
	c.invalidMessages.Add(1)
}

func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		ActiveConnections: c.activeConnections.Load(),
		TotalConnections:  c.totalConnections.Load(),
		MessagesReceived:  c.messagesReceived.Load(),
		MessagesSent:      c.messagesSent.Load(),
		BytesSent:         c.bytesSent.Load(),
		InvalidMessages:   c.invalidMessages.Load(),
	}
}

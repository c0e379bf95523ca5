package api

import "time"

// Direction tells whether a line travelled to or from a server.
type Direction int

const (
	// Inbound is a line received from the server (its stdout).
	Inbound Direction = iota
	// Outbound is a line written to the server (its stdin).
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}
	return "inbound"
}

// UsageSnapshot holds accumulated traffic counters for one server.
//
// Token counts are estimates derived from byte counts, not the output of a
// real tokenizer.
type UsageSnapshot struct {
	ServerID    string    `json:"serverId" yaml:"serverId"`
	BytesIn     uint64    `json:"bytesIn" yaml:"bytesIn"`
	BytesOut    uint64    `json:"bytesOut" yaml:"bytesOut"`
	TotalBytes  uint64    `json:"totalBytes" yaml:"totalBytes"`
	TokensIn    uint64    `json:"tokensIn" yaml:"tokensIn"`
	TokensOut   uint64    `json:"tokensOut" yaml:"tokensOut"`
	TotalTokens uint64    `json:"totalTokens" yaml:"totalTokens"`
	MessagesIn  uint64    `json:"messagesIn" yaml:"messagesIn"`
	MessagesOut uint64    `json:"messagesOut" yaml:"messagesOut"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// LogStream names the standard stream a log line came from.
type LogStream string

const (
	StreamStdout LogStream = "stdout"
	StreamStderr LogStream = "stderr"
)

// LogEvent is published for every line a supervised server writes.
type LogEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Stream    LogStream `json:"stream"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

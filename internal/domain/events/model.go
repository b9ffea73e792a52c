package events

import (
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// Header identifies the schema of a persisted event log. Readers check
// it before trusting the data; the merger refuses logs whose headers
// are not compatible.
type Header struct {
	Version int     `json:"version"`
	LogType LogType `json:"logType"`
}

// NewHeader builds a header for the given log type and version.
func NewHeader(logType LogType, version int) Header {
	return Header{Version: version, LogType: logType}
}

// DefaultHeader is the header new catalog logs are created with.
func DefaultHeader() Header {
	return NewHeader(LogTypeCatalog, CurrentLogVersion)
}

// Compatible reports whether two logs may be merged: same log type,
// both versions inside the supported range.
func Compatible(a, b Header) bool {
	if a.LogType != b.LogType {
		return false
	}
	return supportedVersion(a.Version) && supportedVersion(b.Version)
}

func supportedVersion(v int) bool {
	return v >= MinCompatibleLogVersion && v <= CurrentLogVersion
}

// Event records a single catalog mutation. Events are immutable once
// written; the payload stays opaque to the log layer and is only
// decoded by the mutation that consumes it.
type Event struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	TargetID  string          `json:"targetId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`

	// Origin names the producer (device or import) that recorded the
	// event. Diagnostic only; it never influences ordering or identity.
	Origin string `json:"origin,omitempty"`
}

// DecodePayload unmarshals the event payload into v.
func (e Event) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Log couples a header with its ordered event sequence. The persisted
// document is {"header": {...}, "data": [...]}.
//
// Invariants: no two events share an ID, and the sequence is totally
// ordered by (CreatedAt, ID).
type Log struct {
	Header Header  `json:"header"`
	Events []Event `json:"data"`
}

// Less is the canonical event order: creation time first, ID as the
// tie-break so independently-clocked producers still sort identically.
func Less(a, b Event) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortEvents orders evs by (CreatedAt, ID) in place.
func SortEvents(evs []Event) {
	sort.Slice(evs, func(i, j int) bool {
		return Less(evs[i], evs[j])
	})
}

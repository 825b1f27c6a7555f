// Package realtime carries row change notifications from the data gateway to
// subscribed stores.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType tags a change notification
type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
	// All matches every event type in a subscription filter
	All EventType = "*"
)

// ChangeEvent describes one committed row change. New is set for INSERT and
// UPDATE, Old for DELETE.
type ChangeEvent struct {
	Table           string          `json:"table"`
	Type            EventType       `json:"type"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// NewChangeEvent marshals the row into the slot matching the event type
func NewChangeEvent(table string, typ EventType, row any) (ChangeEvent, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("failed to marshal %s row: %w", table, err)
	}

	ev := ChangeEvent{Table: table, Type: typ, CommitTimestamp: time.Now().UTC()}
	if typ == Delete {
		ev.Old = data
	} else {
		ev.New = data
	}
	return ev, nil
}

// Decode unmarshals the row carried by the event into dst
func (e ChangeEvent) Decode(dst any) error {
	raw := e.New
	if e.Type == Delete {
		raw = e.Old
	}
	if len(raw) == 0 {
		return fmt.Errorf("%s event on %s carries no row", e.Type, e.Table)
	}
	return json.Unmarshal(raw, dst)
}

// Matches reports whether the event passes filter
func (f EventType) Matches(typ EventType) bool {
	return f == All || f == "" || f == typ
}

func channelName(table string) string {
	return "realtime:" + table
}

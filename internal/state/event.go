package state

import (
	"time"

	"github.com/fivemdb/fivemdb/internal/db"
	"github.com/rs/xid"
)

type EventType string

const (
	RowCreated EventType = "row.created"
	RowUpdated EventType = "row.updated"
	RowDeleted EventType = "row.deleted"
)

// Event describes one successful write. Key is the key the row was
// addressed by, Row is absent for deletes.
type Event struct {
	ID    string    `json:"id"`
	Type  EventType `json:"type"`
	Table string    `json:"table"`
	Key   any       `json:"key,omitempty"`
	Row   db.Row    `json:"row,omitempty"`
	At    time.Time `json:"at"`
}

func NewEvent(eventType EventType, table string, key any, row db.Row) Event {
	return Event{
		ID:    xid.New().String(),
		Type:  eventType,
		Table: table,
		Key:   key,
		Row:   row,
		At:    time.Now().UTC(),
	}
}

package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// Common errors
var (
	ErrItemNotFound  = errors.New("item not found")
	ErrItemExists    = errors.New("item already exists")
	ErrNotAuthorized = errors.New("user not authorized")
	ErrWrongChannel  = errors.New("wrong command channel")
)

// MessageRef is the identifier of a long-lived status message. An empty ref
// serializes as JSON null. Unmarshalling accepts null, a string id or a bare
// number, so data files written by earlier versions of the bot still load.
type MessageRef string

// IsZero reports whether the ref points at nothing.
func (r MessageRef) IsZero() bool {
	return r == ""
}

func (r MessageRef) MarshalJSON() ([]byte, error) {
	if r == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

func (r *MessageRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = MessageRef(s)
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return err
	}
	*r = MessageRef(strconv.FormatUint(n, 10))
	return nil
}

// StatusMessageRefs holds the ids of the two permanent status messages.
type StatusMessageRefs struct {
	Bank        MessageRef `json:"banque"`
	Merchandise MessageRef `json:"marchandises"`
}

// LedgerDocument is the single persisted record: both money balances, the
// merchandise stock map and the status message ids. The JSON field names are
// the historical on-disk layout and must not change.
type LedgerDocument struct {
	Clean          int64             `json:"propre"`
	Dirty          int64             `json:"sale"`
	Merchandise    map[string]int64  `json:"marchandises"`
	StatusMessages StatusMessageRefs `json:"status_message_ids"`
}

// NewLedgerDocument returns the all-zero document written on first run.
func NewLedgerDocument() *LedgerDocument {
	return &LedgerDocument{
		Merchandise: make(map[string]int64),
	}
}

// Clone returns a deep copy. Mutations are applied to a clone and swapped in
// only after a successful save, so memory and disk never diverge.
func (d *LedgerDocument) Clone() *LedgerDocument {
	c := *d
	c.Merchandise = make(map[string]int64, len(d.Merchandise))
	for name, qty := range d.Merchandise {
		c.Merchandise[name] = qty
	}
	return &c
}

// Equal reports whether two documents hold the same state.
func (d *LedgerDocument) Equal(other *LedgerDocument) bool {
	if d.Clean != other.Clean || d.Dirty != other.Dirty {
		return false
	}
	if d.StatusMessages != other.StatusMessages {
		return false
	}
	if len(d.Merchandise) != len(other.Merchandise) {
		return false
	}
	for name, qty := range d.Merchandise {
		got, ok := other.Merchandise[name]
		if !ok || got != qty {
			return false
		}
	}
	return true
}

// RefreshResult describes the outcome of one status surface refresh.
type RefreshResult string

const (
	RefreshRefreshed RefreshResult = "refreshed"
	RefreshRecreated RefreshResult = "recreated"
	RefreshFailed    RefreshResult = "failed"
)

// HistoryEntry is one committed mutation, recorded as a flat line in the
// history channel (and in the journal table when the postgres backend is on).
type HistoryEntry struct {
	At     time.Time
	Actor  string
	Action string
	// GuildID scopes the entry to the guild the command came from.
	GuildID string
}

// Line renders the entry the way it is posted to the history channel.
func (e HistoryEntry) Line() string {
	return "[" + e.At.UTC().Format(time.RFC3339) + "] " + e.Actor + " " + e.Action
}

package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"artgrid/core/types"
	"artgrid/storage"
)

const (
	prefixRecord = "journal/evt/"
	keySeq       = "journal/seq"
)

// Record is one persisted ledger event. Sequence numbers start at 1 and are
// strictly increasing with no gaps, so folding over Replay in order
// reconstructs every derived view the ledger maintains.
type Record struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Journal is an append-only, replayable event log over a key-value store.
type Journal struct {
	db storage.Database
}

// New opens a journal over the supplied database.
func New(db storage.Database) *Journal {
	return &Journal{db: db}
}

func recordKey(seq uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append([]byte(prefixRecord), buf[:]...)
}

// Len returns the sequence number of the newest record, which equals the
// number of records appended.
func (j *Journal) Len() (uint64, error) {
	raw, err := j.db.Get([]byte(keySeq))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("journal: malformed sequence counter")
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Append persists the event and returns its sequence number.
func (j *Journal) Append(evt *types.Event) (uint64, error) {
	if evt == nil {
		return 0, fmt.Errorf("journal: nil event")
	}
	seq, err := j.Len()
	if err != nil {
		return 0, err
	}
	seq++
	record := Record{Sequence: seq, Type: evt.Type, Attributes: evt.Attributes}
	raw, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("journal: encode record: %w", err)
	}
	if err := j.db.Put(recordKey(seq), raw); err != nil {
		return 0, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := j.db.Put([]byte(keySeq), buf[:]); err != nil {
		return 0, err
	}
	return seq, nil
}

// Replay folds fn over every record in sequence order. A non-nil error from
// fn stops the replay and is returned.
func (j *Journal) Replay(fn func(Record) error) error {
	var fnErr error
	err := j.db.IteratePrefix([]byte(prefixRecord), func(key, value []byte) bool {
		var record Record
		if err := json.Unmarshal(value, &record); err != nil {
			fnErr = fmt.Errorf("journal: decode record at %q: %w", key, err)
			return false
		}
		if err := fn(record); err != nil {
			fnErr = err
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	return fnErr
}

// Range returns up to limit records with sequence numbers strictly greater
// than after. A limit of 0 means no cap.
func (j *Journal) Range(after uint64, limit int) ([]Record, error) {
	var out []Record
	var iterErr error
	err := j.db.IteratePrefix([]byte(prefixRecord), func(key, value []byte) bool {
		var record Record
		if err := json.Unmarshal(value, &record); err != nil {
			iterErr = fmt.Errorf("journal: decode record at %q: %w", key, err)
			return false
		}
		if record.Sequence <= after {
			return true
		}
		out = append(out, record)
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	return out, iterErr
}

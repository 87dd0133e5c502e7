// Package outbox persists engine events before they leave the process.
// An event moves NEW -> SENT -> ACKED; only acked events may be
// truncated. Delivery jobs scan pending events in seq order, so the
// downstream sees the same ordering the engine emitted.
package outbox

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

// Entry is one persisted event envelope. Seq is the global event
// sequence for the pair, Payload the serialized event.
type Entry struct {
	Seq     uint64
	State   State
	Payload []byte
}

type Outbox struct {
	db *pebble.DB
}

func Open(path string) (*Outbox, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	return &Outbox{db: db}, nil
}

func entryKey(seq uint64) []byte {
	key := make([]byte, 2+8)
	copy(key, "e:")
	binary.BigEndian.PutUint64(key[2:], seq)
	return key
}

func encodeEntry(state State, payload []byte) []byte {
	buf := make([]byte, 1+len(payload))
	buf[0] = byte(state)
	copy(buf[1:], payload)
	return buf
}

// Append stores a new event in state NEW. The write is synced; an
// event is only visible to the caller after it is durable.
func (o *Outbox) Append(seq uint64, payload []byte) error {
	return o.db.Set(entryKey(seq), encodeEntry(StateNew, payload), pebble.Sync)
}

// ScanPending returns up to limit entries that are not yet acked, in
// ascending seq order.
func (o *Outbox) ScanPending(limit int) ([]Entry, error) {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("e:"),
		UpperBound: []byte("e;"), // ';' is ':'+1
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Entry
	for iter.First(); iter.Valid() && len(out) < limit; iter.Next() {
		val := iter.Value()
		if len(val) < 1 {
			continue
		}
		state := State(val[0])
		if state == StateAcked {
			continue
		}
		payload := make([]byte, len(val)-1)
		copy(payload, val[1:])
		out = append(out, Entry{
			Seq:     binary.BigEndian.Uint64(iter.Key()[2:]),
			State:   state,
			Payload: payload,
		})
	}
	return out, iter.Error()
}

// MaxSeq returns the highest sequence currently stored, acked or not.
// Zero means the outbox is empty. Publishers must resume their
// sequence above this value so pending entries are never overwritten.
func (o *Outbox) MaxSeq() (uint64, error) {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("e:"),
		UpperBound: []byte("e;"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return binary.BigEndian.Uint64(iter.Key()[2:]), iter.Error()
}

func (o *Outbox) markState(seq uint64, state State) error {
	val, closer, err := o.db.Get(entryKey(seq))
	if err != nil {
		return err
	}
	payload := make([]byte, len(val)-1)
	copy(payload, val[1:])
	closer.Close()
	return o.db.Set(entryKey(seq), encodeEntry(state, payload), pebble.Sync)
}

func (o *Outbox) MarkSent(seq uint64) error  { return o.markState(seq, StateSent) }
func (o *Outbox) MarkAcked(seq uint64) error { return o.markState(seq, StateAcked) }

// TruncateAckedUpTo deletes acked entries with seq <= upTo. Entries
// still pending are kept regardless of seq.
func (o *Outbox) TruncateAckedUpTo(upTo uint64) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("e:"),
		UpperBound: []byte("e;"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	batch := o.db.NewBatch()
	for iter.First(); iter.Valid(); iter.Next() {
		seq := binary.BigEndian.Uint64(iter.Key()[2:])
		if seq > upTo {
			break
		}
		val := iter.Value()
		if len(val) >= 1 && State(val[0]) == StateAcked {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			_ = batch.Delete(key, nil)
		}
	}
	if err := iter.Error(); err != nil {
		batch.Close()
		return err
	}
	return o.db.Apply(batch, pebble.Sync)
}

func (o *Outbox) Close() error { return o.db.Close() }

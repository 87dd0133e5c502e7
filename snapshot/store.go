package snapshot

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Store is the byte sink/source snapshots go through. The core fixes
// only the byte layout; the medium behind a Store is replaceable.
type Store interface {
	Write(pair string, data []byte) error
	Read(pair string) ([]byte, bool, error)
	Close() error
}

// PebbleStore keeps one snapshot blob per pair under
// "snapshot:<pair>", overwritten atomically on each write.
type PebbleStore struct {
	db *pebble.DB
}

func OpenPebble(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func key(pair string) []byte { return []byte("snapshot:" + pair) }

func (s *PebbleStore) Write(pair string, data []byte) error {
	return s.db.Set(key(pair), data, pebble.Sync)
}

func (s *PebbleStore) Read(pair string) ([]byte, bool, error) {
	val, closer, err := s.db.Get(key(pair))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

// Pairs lists every pair with a stored snapshot.
func (s *PebbleStore) Pairs() ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("snapshot:"),
		UpperBound: []byte("snapshot;"), // ';' is ':'+1
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var pairs []string
	for iter.First(); iter.Valid(); iter.Next() {
		pairs = append(pairs, string(iter.Key()[len("snapshot:"):]))
	}
	return pairs, iter.Error()
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// Package journal persists every market event to a local Pebble store so
// the event stream survives restarts and can be replayed in order.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/efreitasn/matchcore/internal/domain"
)

// Journal is an append-only, per-pair event log backed by Pebble.
// Keys are e/<BASE-QUOTE>/<seq as 8 big-endian bytes>, so iteration
// order is Seq order. Values are JSON-encoded domain.Event.
type Journal struct {
	db *pebble.DB
}

// Open opens or creates a journal in dir.
func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dir, err)
	}
	return &Journal{db: db}, nil
}

// Close flushes and closes the underlying store.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Publish writes a batch atomically and syncs it before returning.
func (j *Journal) Publish(events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	b := j.db.NewBatch()
	defer b.Close()

	for _, e := range events {
		val, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %s#%d: %w", e.Pair, e.Seq, err)
		}
		if err := b.Set(eventKey(e.Pair, e.Seq), val, nil); err != nil {
			return fmt.Errorf("stage event %s#%d: %w", e.Pair, e.Seq, err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit %d events: %w", len(events), err)
	}
	return nil
}

// ErrStop can be returned by a Replay callback to end iteration early
// without an error.
var ErrStop = errors.New("stop")

// Replay calls fn for every journaled event of pair with Seq greater
// than after, in Seq order.
func (j *Journal) Replay(pair domain.TradingPair, after uint64, fn func(domain.Event) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: eventKey(pair, after+1),
		UpperBound: prefixEnd(pair),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var e domain.Event
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		if err := fn(e); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return iter.Error()
}

// LastSeq returns the highest journaled Seq for pair, or 0.
func (j *Journal) LastSeq(pair domain.TradingPair) (uint64, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix(pair),
		UpperBound: prefixEnd(pair),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseSeq(iter.Key())
}

func prefix(pair domain.TradingPair) []byte {
	return []byte("e/" + pair.Slug() + "/")
}

// prefixEnd is the first key after every key of pair ('0' follows '/').
func prefixEnd(pair domain.TradingPair) []byte {
	return []byte("e/" + pair.Slug() + "0")
}

func eventKey(pair domain.TradingPair, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(prefix(pair), seq)
}

func parseSeq(key []byte) (uint64, error) {
	if len(key) < 8 {
		return 0, fmt.Errorf("malformed journal key %q", key)
	}
	return binary.BigEndian.Uint64(key[len(key)-8:]), nil
}

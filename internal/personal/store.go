// Package personal implements the long-term personalized score store: a
// bounded, access-ordered map from caller-chosen keys to frequency and
// recency records, serialized as JSON for external persistence.
package personal

import (
	"bytes"
	"container/list"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
)

// DefaultCapacity is the number of keys kept before LRU eviction starts.
const DefaultCapacity = 2000

const (
	recencyWeight   = 1.5
	recencyHalfDays = 7.0
	scoreScale      = 100.0
	millisPerDay    = float64(24 * time.Hour / time.Millisecond)
)

// Record is the stored state of one key.
type Record struct {
	Score      int   `json:"s"`
	LastAccess int64 `json:"t"`
}

type entry struct {
	key     string
	record  Record
	recent  *list.Element
	arrival *list.Element
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	capacity int
	recent   *list.List // front is most recently touched
	arrival  *list.List // first-seen order, used by ExportJSON
	items    map[string]*entry
	changed  bool

	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity overrides DefaultCapacity. Values below one are ignored.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics reports entry counts and evictions to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		capacity: DefaultCapacity,
		recent:   list.New(),
		arrival:  list.New(),
		items:    make(map[string]*entry),
		now:      time.Now,
		logger:   slog.Default().With("component", "score-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capacity returns the maximum number of keys.
func (s *Store) Capacity() int {
	return s.capacity
}

// Set stores score and access time for key, replacing any existing record.
func (s *Store) Set(key string, score int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(key, Record{Score: score, LastAccess: at.UnixMilli()})
	s.changed = true
	s.reportLocked()
}

// Promote adds one to key's score and stamps the current time, creating the
// record if needed.
func (s *Store) Promote(key string) Record {
	return s.PromoteBy(key, 1)
}

// PromoteBy adds delta to key's score and stamps the current time.
func (s *Store) PromoteBy(key string, delta int) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := Record{LastAccess: s.now().UnixMilli()}
	if e, ok := s.items[key]; ok {
		rec.Score = e.record.Score
	}
	rec.Score += delta
	s.putLocked(key, rec)
	s.changed = true
	s.reportLocked()
	return rec
}

// Get returns key's record and marks it as recently used.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok {
		return Record{}, false
	}
	s.recent.MoveToFront(e.recent)
	return e.record, true
}

// Remove deletes key and reports whether it existed.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok {
		return false
	}
	s.removeLocked(e)
	s.changed = true
	s.reportLocked()
	return true
}

// EffectiveScore combines frequency and recency for key:
// round(100 × (ln(1+score) + 1.5/(1 + days/7))). Unknown keys score 0.
func (s *Store) EffectiveScore(key string) int {
	rec, ok := s.Get(key)
	if !ok {
		return 0
	}
	return Effective(rec, s.now())
}

// Effective evaluates the decay formula for rec at instant now. Access times
// in the future count as zero days.
func Effective(rec Record, now time.Time) int {
	days := float64(now.UnixMilli()-rec.LastAccess) / millisPerDay
	if days < 0 {
		days = 0
	}
	score := float64(rec.Score)
	if score < 0 {
		score = 0
	}
	frequency := math.Log1p(score)
	recency := recencyWeight / (1 + days/recencyHalfDays)
	return int(math.Round(scoreScale * (frequency + recency)))
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Keys returns keys in first-seen order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.items))
	for el := s.arrival.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(string))
	}
	return keys
}

// Clear removes every key.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) > 0 {
		s.changed = true
	}
	s.recent.Init()
	s.arrival.Init()
	s.items = make(map[string]*entry)
	s.reportLocked()
}

// Changed reports whether the store was modified since the last MarkSaved or
// ImportJSON.
func (s *Store) Changed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// MarkSaved clears the modification flag.
func (s *Store) MarkSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed = false
}

// MarkDirty sets the modification flag, typically after a failed save.
func (s *Store) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed = true
}

// ExportJSON encodes every record as {"key":{"s":score,"t":millis}} with
// keys in first-seen order.
func (s *Store) ExportJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for el := s.arrival.Front(); el != nil; el = el.Next() {
		key := el.Value.(string)
		k, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", key, err)
		}
		v, err := json.Marshal(s.items[key].record)
		if err != nil {
			return nil, fmt.Errorf("encoding record %q: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type keyedRecord struct {
	key    string
	record Record
}

// ImportJSON replaces the store's contents with data. On any parse error the
// store is left untouched and the error wraps ErrMalformedScores.
func (s *Store) ImportJSON(data []byte) error {
	parsed, err := parseSnapshot(data)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrMalformedScores, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent.Init()
	s.arrival.Init()
	s.items = make(map[string]*entry, len(parsed))
	for _, kr := range parsed {
		s.putLocked(kr.key, kr.record)
	}
	s.changed = false
	s.reportLocked()
	s.logger.Info("score snapshot imported", "keys", len(s.items))
	return nil
}

func parseSnapshot(data []byte) ([]keyedRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var out []keyedRecord
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("record %q: %w", key, err)
		}
		out = append(out, keyedRecord{key: key, record: rec})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after snapshot")
	}
	return out, nil
}

func (s *Store) putLocked(key string, rec Record) {
	if e, ok := s.items[key]; ok {
		e.record = rec
		s.recent.MoveToFront(e.recent)
		return
	}
	e := &entry{key: key, record: rec}
	e.recent = s.recent.PushFront(e)
	e.arrival = s.arrival.PushBack(key)
	s.items[key] = e

	for len(s.items) > s.capacity {
		oldest := s.recent.Back().Value.(*entry)
		s.removeLocked(oldest)
		if s.metrics != nil {
			s.metrics.ScoreEvictionsTotal.Inc()
		}
		s.logger.Debug("score record evicted", "key", oldest.key)
	}
}

func (s *Store) removeLocked(e *entry) {
	s.recent.Remove(e.recent)
	s.arrival.Remove(e.arrival)
	delete(s.items, e.key)
}

func (s *Store) reportLocked() {
	if s.metrics != nil {
		s.metrics.ScoreStoreEntries.Set(float64(len(s.items)))
	}
}

// Package gallery keeps the most recently exported memes, newest first, mirrored to a
// key-value store after every change.
package gallery

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jo-hoe/gomeme/internal/backend/database"
)

const (
	// DefaultCapacity is the number of memes kept before the oldest is evicted.
	DefaultCapacity = 12
	// DefaultKey is the storage key holding the JSON encoded list.
	DefaultKey = "savedMemes"

	pngDataURIPrefix = "data:image/png;base64,"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("meme not found")

// RenderedMeme is one gallery entry. Data is a data URI of the encoded image.
type RenderedMeme struct {
	ID   int64  `json:"id"`
	Data string `json:"data"`
}

// PNG decodes the data URI payload.
func (m RenderedMeme) PNG() ([]byte, error) {
	payload, ok := strings.CutPrefix(m.Data, pngDataURIPrefix)
	if !ok {
		return nil, fmt.Errorf("meme %d is not a base64 PNG data URI", m.ID)
	}
	return base64.StdEncoding.DecodeString(payload)
}

// PNGDataURI encodes PNG bytes the way gallery entries store them.
func PNGDataURI(png []byte) string {
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(png)
}

// Store is not safe for concurrent use; its owner serialises access.
type Store struct {
	db       database.DatabaseService
	key      string
	capacity int
	now      func() time.Time

	memes  []RenderedMeme
	lastID int64
}

// Option configures a Store.
type Option func(*Store)

// WithKey sets the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithCapacity sets the maximum number of entries.
func WithCapacity(capacity int) Option {
	return func(s *Store) { s.capacity = capacity }
}

// WithClock replaces time.Now for id generation.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(db database.DatabaseService, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("gallery requires a database")
	}
	s := &Store{
		db:       db,
		key:      DefaultKey,
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.key == "" {
		return nil, errors.New("gallery key must not be empty")
	}
	if s.capacity < 1 {
		return nil, fmt.Errorf("gallery capacity must be at least 1, got %d", s.capacity)
	}
	return s, nil
}

// LoadAll replaces the in-memory list with the persisted one. A missing, empty or
// malformed value yields an empty gallery; only storage failures are errors.
func (s *Store) LoadAll(ctx context.Context) error {
	s.memes = nil
	s.lastID = 0

	raw, err := s.db.Get(ctx, s.key)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read gallery: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	var memes []RenderedMeme
	if err := json.Unmarshal(raw, &memes); err != nil {
		slog.Warn("gallery data is malformed, starting empty", "key", s.key, "error", err)
		return nil
	}
	if len(memes) > s.capacity {
		memes = memes[:s.capacity]
	}

	s.memes = memes
	for _, m := range memes {
		s.lastID = max(s.lastID, m.ID)
	}
	slog.Info("gallery loaded", "key", s.key, "count", len(memes))
	return nil
}

// List returns a copy of the entries, newest first.
func (s *Store) List() []RenderedMeme {
	out := make([]RenderedMeme, len(s.memes))
	copy(out, s.memes)
	return out
}

// Get returns the entry with id.
func (s *Store) Get(id int64) (RenderedMeme, error) {
	for _, m := range s.memes {
		if m.ID == id {
			return m, nil
		}
	}
	return RenderedMeme{}, ErrNotFound
}

// Save prepends a new entry, evicts the oldest beyond capacity and persists the list.
// ids come from the clock in milliseconds but always exceed every id handed out before.
func (s *Store) Save(ctx context.Context, data string) (RenderedMeme, error) {
	meme := RenderedMeme{ID: s.nextID(), Data: data}

	next := make([]RenderedMeme, 0, min(len(s.memes)+1, s.capacity))
	next = append(next, meme)
	next = append(next, s.memes...)
	if len(next) > s.capacity {
		next = next[:s.capacity]
	}

	if err := s.commit(ctx, next); err != nil {
		return RenderedMeme{}, err
	}
	s.lastID = meme.ID
	slog.Debug("meme saved to gallery", "id", meme.ID, "count", len(s.memes))
	return meme, nil
}

// Delete removes the entry with id. Unknown ids are not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	next := make([]RenderedMeme, 0, len(s.memes))
	for _, m := range s.memes {
		if m.ID != id {
			next = append(next, m)
		}
	}
	return s.commit(ctx, next)
}

func (s *Store) nextID() int64 {
	return max(s.now().UnixMilli(), s.lastID+1)
}

// commit persists next and only then adopts it, so memory and storage agree even
// when the write fails. An empty list removes the key.
func (s *Store) commit(ctx context.Context, next []RenderedMeme) error {
	if len(next) == 0 {
		if err := s.db.Delete(ctx, s.key); err != nil {
			return fmt.Errorf("failed to clear gallery: %w", err)
		}
		s.memes = next
		return nil
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode gallery: %w", err)
	}
	if err := s.db.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("failed to persist gallery: %w", err)
	}
	s.memes = next
	return nil
}

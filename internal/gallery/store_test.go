package gallery

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jo-hoe/gomeme/internal/backend/database"
)

func newTestDB(t *testing.T) database.DatabaseService {
	t.Helper()
	db, err := database.NewDatabase(database.TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// frozenClock returns the same instant on every call, the worst case for time-based ids.
func frozenClock() func() time.Time {
	at := time.UnixMilli(1_700_000_000_000)
	return func() time.Time { return at }
}

func newTestStore(t *testing.T, db database.DatabaseService, opts ...Option) *Store {
	t.Helper()
	store, err := NewStore(db, opts...)
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	if err := store.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	return store
}

func TestNewStore_Validation(t *testing.T) {
	db := newTestDB(t)
	if _, err := NewStore(nil); err == nil {
		t.Error("expected error for nil database")
	}
	if _, err := NewStore(db, WithCapacity(0)); err == nil {
		t.Error("expected error for zero capacity")
	}
	if _, err := NewStore(db, WithKey("")); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestLoadAll_EmptyBackingStore(t *testing.T) {
	store := newTestStore(t, newTestDB(t))
	if got := store.List(); len(got) != 0 {
		t.Fatalf("expected empty gallery, got %d entries", len(got))
	}
}

func TestLoadAll_MalformedDataIsEmpty(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"", "{not json", `{"id":1}`} {
		t.Run(fmt.Sprintf("%q", raw), func(t *testing.T) {
			db := newTestDB(t)
			if err := db.Set(ctx, DefaultKey, []byte(raw)); err != nil {
				t.Fatalf("Set error: %v", err)
			}
			store := newTestStore(t, db)
			if got := store.List(); len(got) != 0 {
				t.Fatalf("expected empty gallery, got %v", got)
			}
		})
	}
}

func TestSave_ThirteenTimesKeepsTwelveNewest(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newTestDB(t), WithClock(frozenClock()))

	var saved []RenderedMeme
	for i := 0; i < 13; i++ {
		meme, err := store.Save(ctx, fmt.Sprintf("data-%d", i))
		if err != nil {
			t.Fatalf("Save #%d error: %v", i, err)
		}
		saved = append(saved, meme)
	}

	list := store.List()
	if len(list) != 12 {
		t.Fatalf("expected 12 entries, got %d", len(list))
	}
	for i, meme := range list {
		want := saved[12-i]
		if meme != want {
			t.Errorf("position %d: expected %+v, got %+v", i, want, meme)
		}
	}
	for _, meme := range list {
		if meme.ID == saved[0].ID {
			t.Error("expected oldest entry to be evicted")
		}
	}
}

func TestSave_IDsStrictlyIncrease(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newTestDB(t), WithClock(frozenClock()))

	var prev int64
	for i := 0; i < 5; i++ {
		meme, err := store.Save(ctx, "x")
		if err != nil {
			t.Fatalf("Save error: %v", err)
		}
		if meme.ID <= prev {
			t.Fatalf("id %d not greater than previous %d", meme.ID, prev)
		}
		prev = meme.ID
	}
}

func TestSave_AtCapacityEvictsSmallestID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newTestDB(t), WithCapacity(3))

	for i := 0; i < 3; i++ {
		if _, err := store.Save(ctx, "x"); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}
	before := store.List()
	smallest := before[len(before)-1].ID

	meme, err := store.Save(ctx, "new")
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	after := store.List()
	if len(after) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(after))
	}
	for _, m := range after {
		if m.ID == smallest {
			t.Errorf("expected smallest id %d to be evicted", smallest)
		}
		if m.ID > meme.ID {
			t.Errorf("new id %d is not the largest (found %d)", meme.ID, m.ID)
		}
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newTestDB(t))

	a, _ := store.Save(ctx, "a")
	b, _ := store.Save(ctx, "b")

	before := store.List()
	if err := store.Delete(ctx, 42); err != nil {
		t.Fatalf("Delete(missing) error: %v", err)
	}
	if !reflect.DeepEqual(before, store.List()) {
		t.Fatal("expected deleting an unknown id to leave the list unchanged")
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if got := store.List(); len(got) != 1 || got[0] != b {
		t.Fatalf("expected only %+v left, got %+v", b, got)
	}
	if _, err := store.Get(a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted id, got %v", err)
	}
}

func TestDelete_LastEntryRemovesKey(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newTestStore(t, db)

	meme, err := store.Save(ctx, "only")
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := store.Delete(ctx, meme.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := db.Get(ctx, DefaultKey); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected gallery key to be removed, got %v", err)
	}
	if reopened := newTestStore(t, db); len(reopened.List()) != 0 {
		t.Fatalf("expected empty gallery after restart, got %+v", reopened.List())
	}
}

func TestLoadAll_RoundTripAcrossRestart(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	open := func() database.DatabaseService {
		db, err := database.NewDatabase(database.TypeRedis, "redis://"+server.Addr())
		if err != nil {
			t.Fatalf("NewDatabase error: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		return db
	}

	first := newTestStore(t, open(), WithClock(frozenClock()))
	for i := 0; i < 4; i++ {
		if _, err := first.Save(ctx, fmt.Sprintf("meme-%d", i)); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}
	if err := first.Delete(ctx, first.List()[1].ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	second := newTestStore(t, open(), WithClock(frozenClock()))
	if !reflect.DeepEqual(first.List(), second.List()) {
		t.Fatalf("restart changed gallery:\n%+v\n%+v", first.List(), second.List())
	}

	// ids keep increasing after a restart even with a frozen clock
	meme, err := second.Save(ctx, "after-restart")
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if meme.ID <= first.List()[0].ID {
		t.Fatalf("id %d after restart is not greater than %d", meme.ID, first.List()[0].ID)
	}
}

func TestLoadAll_TruncatesOversizedList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	if err := db.Set(ctx, DefaultKey, []byte(`[{"id":5,"data":"e"},{"id":4,"data":"d"},{"id":3,"data":"c"}]`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	store := newTestStore(t, db, WithCapacity(2))
	got := store.List()
	if len(got) != 2 || got[0].ID != 5 || got[1].ID != 4 {
		t.Fatalf("expected the two newest entries, got %+v", got)
	}
}

type failingDB struct {
	database.DatabaseService
	failSet bool
}

func (f *failingDB) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.DatabaseService.Set(ctx, key, value)
}

func TestSave_PersistFailureKeepsStateInSync(t *testing.T) {
	ctx := context.Background()
	db := &failingDB{DatabaseService: newTestDB(t)}
	store := newTestStore(t, db)

	kept, err := store.Save(ctx, "kept")
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}

	db.failSet = true
	if _, err := store.Save(ctx, "lost"); err == nil {
		t.Fatal("expected persist error")
	}
	if err := store.Delete(ctx, kept.ID); err == nil {
		t.Fatal("expected persist error on delete")
	}

	if got := store.List(); len(got) != 1 || got[0] != kept {
		t.Fatalf("expected in-memory list to be unchanged, got %+v", got)
	}

	reloaded := newTestStore(t, db)
	if !reflect.DeepEqual(reloaded.List(), store.List()) {
		t.Fatalf("memory and storage disagree: %+v vs %+v", store.List(), reloaded.List())
	}
}

func TestRenderedMeme_PNGRoundTrip(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	meme := RenderedMeme{ID: 1, Data: PNGDataURI(payload)}
	got, err := meme.PNG()
	if err != nil {
		t.Fatalf("PNG error: %v", err)
	}
	if !reflect.DeepEqual(got, payload) {
		t.Fatalf("expected %v, got %v", payload, got)
	}

	if _, err := (RenderedMeme{ID: 2, Data: "data:image/jpeg;base64,AAAA"}).PNG(); err == nil {
		t.Error("expected error for non-PNG data URI")
	}
}

package thumbcache

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/function61/gokit/assert"
	"github.com/function61/kuvasto/pkg/kuvatypes"
	"github.com/function61/kuvasto/pkg/thumbstorage"
	"github.com/function61/kuvasto/pkg/thumbstorage/localfs"
)

func TestLookupMissOnEmptyCache(t *testing.T) {
	store, _ := storeForTesting(t)

	thumb, err := store.Lookup(context.Background(), "test.jpg", "240x240_q85")
	assert.Ok(t, err)
	assert.Assert(t, thumb == nil)
}

func TestInsertThenLookup(t *testing.T) {
	store, storage := storeForTesting(t)

	record := testRecord("test.jpg", "240x240_q85", "thumbs/test.jpg.240x240_q85.jpg")

	assert.Ok(t, storage.Save(context.Background(), record.Path, strings.NewReader("fake jpeg bytes")))
	assert.Ok(t, store.Insert(record))

	thumb, err := store.Lookup(context.Background(), "test.jpg", "240x240_q85")
	assert.Ok(t, err)
	assert.Assert(t, thumb != nil)
	assert.EqualString(t, thumb.Path, "thumbs/test.jpg.240x240_q85.jpg")

	// different options = different record
	thumb, err = store.Lookup(context.Background(), "test.jpg", "240x240_q95")
	assert.Ok(t, err)
	assert.Assert(t, thumb == nil)
}

func TestLookupDegradesToMissWhenDerivativeVanished(t *testing.T) {
	store, _ := storeForTesting(t)

	// record exists but its file was never written to storage
	record := testRecord("test.jpg", "240x240_q85", "thumbs/test.jpg.240x240_q85.jpg")
	assert.Ok(t, store.Insert(record))

	thumb, err := store.Lookup(context.Background(), "test.jpg", "240x240_q85")
	assert.Ok(t, err)
	assert.Assert(t, thumb == nil)
}

func TestInsertIsCreateOrReplace(t *testing.T) {
	store, storage := storeForTesting(t)

	record := testRecord("test.jpg", "240x240_q85", "thumbs/test.jpg.240x240_q85.jpg")
	assert.Ok(t, storage.Save(context.Background(), record.Path, strings.NewReader("content")))

	assert.Ok(t, store.Insert(record))
	assert.Ok(t, store.Insert(record)) // same key again

	count := 0
	assert.Ok(t, store.Each(func(thumb kuvatypes.Thumbnail) error {
		count++
		return nil
	}))

	assert.Assert(t, count == 1)
}

func TestPurgeSource(t *testing.T) {
	store, storage := storeForTesting(t)

	for _, record := range []*kuvatypes.Thumbnail{
		testRecord("a.jpg", "240x240_q85", "thumbs/a.jpg.240x240_q85.jpg"),
		testRecord("a.jpg", "80x80_q85_crop", "thumbs/a.jpg.80x80_q85_crop.jpg"),
		testRecord("b.jpg", "240x240_q85", "thumbs/b.jpg.240x240_q85.jpg"),
	} {
		assert.Ok(t, storage.Save(context.Background(), record.Path, strings.NewReader("content")))
		assert.Ok(t, store.Insert(record))
	}

	purged, err := store.PurgeSource("a.jpg")
	assert.Ok(t, err)
	assert.Assert(t, purged == 2)

	// b.jpg's record untouched
	thumb, err := store.Lookup(context.Background(), "b.jpg", "240x240_q85")
	assert.Ok(t, err)
	assert.Assert(t, thumb != nil)

	thumb, err = store.Lookup(context.Background(), "a.jpg", "240x240_q85")
	assert.Ok(t, err)
	assert.Assert(t, thumb == nil)

	// purging again finds nothing
	purged, err = store.PurgeSource("a.jpg")
	assert.Ok(t, err)
	assert.Assert(t, purged == 0)
}

func TestClear(t *testing.T) {
	store, storage := storeForTesting(t)

	for _, record := range []*kuvatypes.Thumbnail{
		testRecord("a.jpg", "240x240_q85", "thumbs/a.jpg.240x240_q85.jpg"),
		testRecord("b.jpg", "240x240_q85", "thumbs/b.jpg.240x240_q85.jpg"),
	} {
		assert.Ok(t, storage.Save(context.Background(), record.Path, strings.NewReader("content")))
		assert.Ok(t, store.Insert(record))
	}

	purged, err := store.Clear()
	assert.Ok(t, err)
	assert.Assert(t, purged == 2)

	count := 0
	assert.Ok(t, store.Each(func(thumb kuvatypes.Thumbnail) error {
		count++
		return nil
	}))
	assert.Assert(t, count == 0)
}

func TestSweepStale(t *testing.T) {
	store, storage := storeForTesting(t)

	alive := testRecord("alive.jpg", "240x240_q85", "thumbs/alive.jpg.240x240_q85.jpg")
	assert.Ok(t, storage.Save(context.Background(), alive.Path, strings.NewReader("content")))
	assert.Ok(t, store.Insert(alive))

	// stale = record without a backing file
	assert.Ok(t, store.Insert(testRecord("stale.jpg", "240x240_q85", "thumbs/stale.jpg.240x240_q85.jpg")))

	swept, err := store.SweepStale(context.Background())
	assert.Ok(t, err)
	assert.Assert(t, swept == 1)

	count := 0
	assert.Ok(t, store.Each(func(thumb kuvatypes.Thumbnail) error {
		assert.EqualString(t, thumb.SourcePath, "alive.jpg")
		count++
		return nil
	}))
	assert.Assert(t, count == 1)
}

func storeForTesting(t *testing.T) (*Store, thumbstorage.Storage) {
	tempDir := t.TempDir()

	db, err := OpenDatabase(filepath.Join(tempDir, "kuvasto.db"))
	assert.Ok(t, err)
	t.Cleanup(func() { db.Close() })

	storage := localfs.New(filepath.Join(tempDir, "media"), "http://localhost/media", nil)

	store, err := New(db, storage, true, nil)
	assert.Ok(t, err)

	return store, storage
}

func testRecord(sourcePath string, options string, path string) *kuvatypes.Thumbnail {
	return &kuvatypes.Thumbnail{
		SourcePath: sourcePath,
		Options:    options,
		Path:       path,
		Width:      240,
		Height:     180,
		Created:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

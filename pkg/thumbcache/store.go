package thumbcache

import (
	"context"
	"log"
	"sync"

	"github.com/function61/gokit/logex"
	"github.com/function61/kuvasto/pkg/blorm"
	"github.com/function61/kuvasto/pkg/kuvatypes"
	"github.com/function61/kuvasto/pkg/thumbstorage"
	"github.com/golang/groupcache/lru"
	"go.etcd.io/bbolt"
)

const recentRecordsCapacity = 512

// Store maps (source path, canonical options) to thumbnail records. a record is
// only as good as its derivative file: Lookup() re-checks storage, so stale
// metadata degrades to a miss instead of serving a dangling reference.
type Store struct {
	db      *bbolt.DB
	storage thumbstorage.Storage

	// read-through record cache to keep hot lookups off bbolt. purely an
	// optimization - bbolt stays the source of truth.
	recentMu sync.Mutex
	recent   *lru.Cache

	// when on, lookup-time storage errors surface instead of degrading to a miss
	debug bool

	logl *logex.Leveled
}

func New(db *bbolt.DB, storage thumbstorage.Storage, debug bool, logger *log.Logger) (*Store, error) {
	if err := Bootstrap(db); err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		storage: storage,
		recent:  lru.New(recentRecordsCapacity),
		debug:   debug,
		logl:    logex.Levels(logex.NonNil(logger)),
	}, nil
}

// (nil, nil) = miss. a record whose derivative file no longer exists in storage
// reports a miss, and storage trouble degrades to a miss too (unless debug mode).
func (s *Store) Lookup(ctx context.Context, sourcePath string, canonicalOptions string) (*kuvatypes.Thumbnail, error) {
	key := kuvatypes.ThumbnailKey(sourcePath, canonicalOptions)

	thumb := s.recentGet(key)

	if thumb == nil {
		thumb = &kuvatypes.Thumbnail{}

		errRead := s.db.View(func(tx *bbolt.Tx) error {
			return ThumbnailRepository.OpenByPrimaryKey(key, thumb, tx)
		})
		if errRead == blorm.ErrNotFound {
			return nil, nil
		}
		if errRead != nil {
			if s.debug {
				return nil, errRead
			}

			s.logl.Error.Printf("lookup degraded to miss: %v", errRead)
			return nil, nil
		}
	}

	exists, err := s.storage.Exists(ctx, thumb.Path)
	if err != nil {
		if s.debug {
			return nil, err
		}

		s.logl.Error.Printf("lookup %s: storage exists check degraded to miss: %v", thumb.Path, err)
		return nil, nil
	}

	if !exists {
		// derivative vanished from under us - the record is now meaningless
		s.recentDrop(key)
		return nil, nil
	}

	s.recentPut(key, thumb)

	return thumb, nil
}

// create-or-replace: concurrent inserts for the same key cannot produce duplicate
// records, the last writer's metadata just wins (file content is identical anyway
// since generation is deterministic)
func (s *Store) Insert(thumb *kuvatypes.Thumbnail) error {
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return ThumbnailRepository.Update(thumb, tx)
	}); err != nil {
		return err
	}

	s.recentPut(thumb.Key(), thumb)

	return nil
}

func (s *Store) Each(fn func(thumb kuvatypes.Thumbnail) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return ThumbnailRepository.Each(func(record interface{}) error {
			return fn(*record.(*kuvatypes.Thumbnail))
		}, tx)
	})
}

// drops all cached derivatives of one source. returns # of records dropped.
func (s *Store) PurgeSource(sourcePath string) (int, error) {
	purged := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		keys := [][]byte{}

		if err := ThumbnailsBySourceIndex.Query([]byte(sourcePath), blorm.StartFromFirst, func(id []byte) error {
			keys = append(keys, id)
			return nil
		}, tx); err != nil {
			return err
		}

		for _, key := range keys {
			if err := s.deleteByKey(key, tx); err != nil {
				return err
			}

			purged++
		}

		return nil
	})

	return purged, err
}

// drops every record. derivative files are left for the storage owner to clean.
func (s *Store) Clear() (int, error) {
	purged := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		keys := [][]byte{}

		if err := ThumbnailRepository.Each(func(record interface{}) error {
			keys = append(keys, record.(*kuvatypes.Thumbnail).Key())
			return nil
		}, tx); err != nil {
			return err
		}

		for _, key := range keys {
			if err := s.deleteByKey(key, tx); err != nil {
				return err
			}

			purged++
		}

		return nil
	})

	return purged, err
}

// drops records whose derivative file no longer exists in storage. run periodically
// so abandoned metadata doesn't accumulate.
func (s *Store) SweepStale(ctx context.Context) (int, error) {
	stale := [][]byte{}

	if err := s.Each(func(thumb kuvatypes.Thumbnail) error {
		exists, err := s.storage.Exists(ctx, thumb.Path)
		if err != nil {
			return err
		}

		if !exists {
			stale = append(stale, thumb.Key())
		}

		return nil
	}); err != nil {
		return 0, err
	}

	if len(stale) == 0 {
		return 0, nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, key := range stale {
			if err := s.deleteByKey(key, tx); err != nil {
				return err
			}
		}

		return nil
	})

	return len(stale), err
}

func (s *Store) deleteByKey(key []byte, tx *bbolt.Tx) error {
	record := ThumbnailRepository.Alloc()
	if err := ThumbnailRepository.OpenByPrimaryKey(key, record, tx); err != nil {
		return err
	}

	if err := ThumbnailRepository.Delete(record, tx); err != nil {
		return err
	}

	s.recentDrop(key)

	return nil
}

// lru.Cache is not safe for concurrent use

func (s *Store) recentGet(key []byte) *kuvatypes.Thumbnail {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()

	if cached, found := s.recent.Get(string(key)); found {
		return cached.(*kuvatypes.Thumbnail)
	}

	return nil
}

func (s *Store) recentPut(key []byte, thumb *kuvatypes.Thumbnail) {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()

	s.recent.Add(string(key), thumb)
}

func (s *Store) recentDrop(key []byte) {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()

	s.recent.Remove(string(key))
}

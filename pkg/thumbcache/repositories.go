// Persistent thumbnail metadata cache on top of bbolt
package thumbcache

import (
	"github.com/function61/kuvasto/pkg/blorm"
	"github.com/function61/kuvasto/pkg/kuvatypes"
	"go.etcd.io/bbolt"
)

var ThumbnailRepository = blorm.NewSimpleRepo(
	"thumbnails",
	func() interface{} { return &kuvatypes.Thumbnail{} },
	func(record interface{}) []byte { return record.(*kuvatypes.Thumbnail).Key() })

// all derivatives of one source, for per-source purging
var ThumbnailsBySourceIndex = blorm.NewValueIndex("by_source", ThumbnailRepository, func(record interface{}, push func(partition []byte)) {
	push([]byte(record.(*kuvatypes.Thumbnail).SourcePath))
})

func OpenDatabase(dbLocation string) (*bbolt.DB, error) {
	return bbolt.Open(dbLocation, 0700, nil)
}

// safe to call on every open
func Bootstrap(db *bbolt.DB) error {
	return db.Update(func(tx *bbolt.Tx) error {
		return ThumbnailRepository.Bootstrap(tx)
	})
}

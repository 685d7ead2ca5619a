// "Bolt Light ORM" - persists msgpack-serialized structs into bbolt buckets.
// Just enough ORM for kuvasto's thumbnail cache: primary-key access, iteration
// and partitioned secondary indices.
package blorm

import (
	"errors"

	"go.etcd.io/bbolt"
)

var (
	ErrNotFound = errors.New("database: record not found")

	// return from an Each()/Query() callback to stop iteration early. not reported
	// as an error to the API caller.
	StopIteration = errors.New("blorm: stop iteration")

	StartFromFirst = []byte("")

	errNoBucket = errors.New("blorm: bucket not found - repository not bootstrapped?")
)

type Repository interface {
	Bootstrap(tx *bbolt.Tx) error
	OpenByPrimaryKey(id []byte, record interface{}, tx *bbolt.Tx) error
	// create-or-replace. replacing is how "last writer wins" works for records whose
	// content is deterministic anyway.
	Update(record interface{}, tx *bbolt.Tx) error
	Delete(record interface{}, tx *bbolt.Tx) error
	Each(fn func(record interface{}) error, tx *bbolt.Tx) error
	Alloc() interface{}
}

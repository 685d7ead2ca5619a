package blorm

import (
	"github.com/asdine/storm/codec/msgpack"
	"go.etcd.io/bbolt"
)

type SimpleRepository struct {
	bucketName  []byte
	alloc       func() interface{}
	idExtractor func(record interface{}) []byte
	indices     []*valueIndex
}

func NewSimpleRepo(
	bucketName string,
	allocator func() interface{},
	idExtractor func(interface{}) []byte,
) *SimpleRepository {
	return &SimpleRepository{
		bucketName:  []byte(bucketName),
		alloc:       allocator,
		idExtractor: idExtractor,
		indices:     []*valueIndex{},
	}
}

func (r *SimpleRepository) Bootstrap(tx *bbolt.Tx) error {
	_, err := tx.CreateBucketIfNotExists(r.bucketName)
	return err
}

func (r *SimpleRepository) Alloc() interface{} {
	return r.alloc()
}

func (r *SimpleRepository) OpenByPrimaryKey(id []byte, record interface{}, tx *bbolt.Tx) error {
	bucket := tx.Bucket(r.bucketName)
	if bucket == nil {
		return errNoBucket
	}

	data := bucket.Get(id)
	if data == nil {
		return ErrNotFound
	}

	return msgpack.Codec.Unmarshal(data, record)
}

func (r *SimpleRepository) Update(record interface{}, tx *bbolt.Tx) error {
	bucket := tx.Bucket(r.bucketName)
	if bucket == nil {
		return errNoBucket
	}

	id := r.idExtractor(record)

	data, err := msgpack.Codec.Marshal(record)
	if err != nil {
		return err
	}

	// indices can change when a record is replaced, so the old image (if any) has
	// to be consulted for index entries to drop
	oldImage := r.alloc()
	errOpenOld := r.OpenByPrimaryKey(id, oldImage, tx)
	if errOpenOld != nil && errOpenOld != ErrNotFound {
		return errOpenOld
	}

	for _, idx := range r.indices {
		var old interface{}
		if errOpenOld != ErrNotFound {
			old = oldImage
		}

		if err := idx.reindex(old, record, tx); err != nil {
			return err
		}
	}

	return bucket.Put(id, data)
}

func (r *SimpleRepository) Delete(record interface{}, tx *bbolt.Tx) error {
	bucket := tx.Bucket(r.bucketName)
	if bucket == nil {
		return errNoBucket
	}

	id := r.idExtractor(record)

	if bucket.Get(id) == nil { // bucket.Delete() does not error for non-existing keys
		return ErrNotFound
	}

	for _, idx := range r.indices {
		if err := idx.reindex(record, nil, tx); err != nil {
			return err
		}
	}

	return bucket.Delete(id)
}

func (r *SimpleRepository) Each(fn func(record interface{}) error, tx *bbolt.Tx) error {
	bucket := tx.Bucket(r.bucketName)
	if bucket == nil {
		return errNoBucket
	}

	all := bucket.Cursor()
	for key, value := all.First(); key != nil; key, value = all.Next() {
		record := r.alloc()

		if err := msgpack.Codec.Unmarshal(value, record); err != nil {
			return err
		}

		if err := fn(record); err != nil {
			if err == StopIteration {
				return nil
			}

			return err
		}
	}

	return nil
}

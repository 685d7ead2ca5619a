package blorm

import (
	"bytes"

	"go.etcd.io/bbolt"
)

/*	index layout
	============

	one bucket per index ("<repoBucket>:<indexName>"), one nested partition bucket
	per indexed value, entries are (recordId => nil):

	thumbnails:by_source
	  "photos/cat.jpg"
	    ("photos/cat.jpg\x00240x240_q85") = nil
	    ("photos/cat.jpg\x00x120_q85")    = nil
*/

type valueIndex struct {
	repo            *SimpleRepository
	indexBucketName []byte
	memberEvaluator func(record interface{}, push func(partition []byte))
}

// the memberEvaluator pushes zero or more partition values a record should be
// indexed under
func NewValueIndex(
	name string,
	repo *SimpleRepository,
	memberEvaluator func(record interface{}, push func(partition []byte)),
) *valueIndex {
	idx := &valueIndex{
		repo:            repo,
		indexBucketName: []byte(string(repo.bucketName) + ":" + name),
		memberEvaluator: memberEvaluator,
	}

	repo.indices = append(repo.indices, idx)

	return idx
}

// old and/or updated may be nil (creation / deletion)
func (v *valueIndex) reindex(old interface{}, updated interface{}, tx *bbolt.Tx) error {
	oldPartitions := v.partitionsOf(old)
	newPartitions := v.partitionsOf(updated)

	for _, partition := range oldPartitions {
		if !partitionExistsIn(partition, newPartitions) {
			bucket, err := v.partitionBucketForWrite(partition, tx)
			if err != nil {
				return err
			}

			if err := bucket.Delete(v.repo.idExtractor(old)); err != nil {
				return err
			}
		}
	}

	for _, partition := range newPartitions {
		if !partitionExistsIn(partition, oldPartitions) {
			bucket, err := v.partitionBucketForWrite(partition, tx)
			if err != nil {
				return err
			}

			if err := bucket.Put(v.repo.idExtractor(updated), nil); err != nil {
				return err
			}
		}
	}

	return nil
}

// Query rules of Repository.Each() apply (StopIteration supported)
func (v *valueIndex) Query(partition []byte, start []byte, fn func(id []byte) error, tx *bbolt.Tx) error {
	indexBucket := tx.Bucket(v.indexBucketName)
	if indexBucket == nil {
		return nil // index doesn't exist => no matching entries
	}

	partitionBucket := indexBucket.Bucket(partition)
	if partitionBucket == nil {
		return nil // partition doesn't exist => no matching entries
	}

	cursor := partitionBucket.Cursor()

	var id []byte
	if bytes.Equal(start, StartFromFirst) {
		id, _ = cursor.First()
	} else {
		id, _ = cursor.Seek(start)
	}

	for ; id != nil; id, _ = cursor.Next() {
		if err := fn(makeCopy(id)); err != nil {
			if err == StopIteration {
				return nil
			}

			return err
		}
	}

	return nil
}

func (v *valueIndex) partitionsOf(record interface{}) [][]byte {
	if record == nil {
		return nil
	}

	partitions := [][]byte{}
	v.memberEvaluator(record, func(partition []byte) {
		if len(partition) == 0 {
			panic("blorm: cannot index by empty value")
		}

		partitions = append(partitions, partition)
	})

	return partitions
}

func (v *valueIndex) partitionBucketForWrite(partition []byte, tx *bbolt.Tx) (*bbolt.Bucket, error) {
	indexBucket, err := tx.CreateBucketIfNotExists(v.indexBucketName)
	if err != nil {
		return nil, err
	}

	return indexBucket.CreateBucketIfNotExists(partition)
}

func partitionExistsIn(partition []byte, coll [][]byte) bool {
	for _, other := range coll {
		if bytes.Equal(partition, other) {
			return true
		}
	}

	return false
}

// bbolt-returned byte slices are only valid during the transaction
// https://github.com/boltdb/bolt/issues/658#issuecomment-277898467
func makeCopy(from []byte) []byte {
	copied := make([]byte, len(from))
	copy(copied, from)
	return copied
}

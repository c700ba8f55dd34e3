package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // Format version, timestamps, store ID
	JournalBucket = []byte("journal") // One record per completed mutation, keyed by sequence
)

// Config keys
var (
	ConfigVersion = []byte("version")
	ConfigCreated = []byte("created")
	ConfigStoreID = []byte("store_id")
)

const schemaVersion = "1"

var ErrNotInitialized = errors.New("journal not initialized")

// Journal provides BBolt-based history and identity for a store.
type Journal struct {
	db *bolt.DB
}

// Open opens or creates a journal database and makes sure its buckets exist.
// BBolt holds an exclusive file lock, so a second process opening the same
// store waits up to one second and then fails.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.db.Path()
}

// initialize creates the bucket structure and the store identity once.
func (j *Journal) initialize() error {
	return j.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, JournalBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}

		if err := config.Put(ConfigVersion, []byte(schemaVersion)); err != nil {
			return err
		}
		created, err := time.Now().UTC().MarshalBinary()
		if err != nil {
			return err
		}
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigStoreID, []byte(uuid.NewString()))
	})
}

// StoreID returns the random identifier assigned when the store was created.
func (j *Journal) StoreID() (string, error) {
	var storeID string
	err := j.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigStoreID)
		if data == nil {
			return fmt.Errorf("store_id not found")
		}
		storeID = string(data)
		return nil
	})
	return storeID, err
}

// Created returns the store creation time.
func (j *Journal) Created() (time.Time, error) {
	var created time.Time
	err := j.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigCreated)
		if data == nil {
			return fmt.Errorf("created time not found")
		}
		return created.UnmarshalBinary(data)
	})
	return created, err
}

// Append stores a record under the next sequence number and returns it.
func (j *Journal) Append(rec Record) (uint64, error) {
	var seq uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		journal := tx.Bucket(JournalBucket)
		if journal == nil {
			return ErrNotInitialized
		}

		next, err := journal.NextSequence()
		if err != nil {
			return err
		}
		rec.Seq = next
		if rec.At.IsZero() {
			rec.At = time.Now().UTC()
		}

		data, err := rec.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := journal.Put(seqKey(next), data); err != nil {
			return err
		}
		seq = next
		return nil
	})
	return seq, err
}

// Records returns journal records in sequence order. An empty name returns
// every record; otherwise only records that touched name.
func (j *Journal) Records(name string) ([]Record, error) {
	var records []Record
	err := j.db.View(func(tx *bolt.Tx) error {
		journal := tx.Bucket(JournalBucket)
		if journal == nil {
			return ErrNotInitialized
		}
		return journal.ForEach(func(k, v []byte) error {
			var rec Record
			if err := rec.UnmarshalBinary(v); err != nil {
				return fmt.Errorf("failed to decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if name == "" || rec.Touches(name) {
				records = append(records, rec)
			}
			return nil
		})
	})
	return records, err
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// Compact creates a compacted copy of the database, removing unused space.
func (j *Journal) Compact() error {
	srcPath := j.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets, keeping the journal sequence counter
	err = j.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				if err := dstBucket.SetSequence(srcBucket.Sequence()); err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := j.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		os.Remove(tmpPath)
		return errors.Join(fmt.Errorf("failed to backup original: %w", err), j.reopen(srcPath))
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return errors.Join(fmt.Errorf("failed to replace database: %w", err), j.reopen(srcPath))
	}
	os.Remove(backupPath)

	return j.reopen(srcPath)
}

func (j *Journal) reopen(path string) error {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	j.db = db
	return nil
}

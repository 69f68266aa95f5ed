/*
Package resultindex maintains a non-authoritative bbolt index over the
result records living under results/*.json. The filesystem is always the
source of truth -- a result exists if and only if its JSON file exists --
but scanning thousands of files to answer "what's the status of t1" or
"list every secret_detected result this week" doesn't scale. The index
lets taskforge status/doctor answer those questions in O(1)/O(log n)
without re-deriving ground truth, and can always be rebuilt by replaying
results/*.json if it's ever lost or corrupted.
*/
package resultindex

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/taskforge/pkg/tasktype"
)

var bucketResults = []byte("results")

// Index is a bbolt-backed secondary index over task results.
type Index struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the index database under dataDir.
func Open(dataDir string) (*Index, error) {
	dbPath := filepath.Join(dataDir, "resultindex.db")
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("resultindex: open %s: %w", dbPath, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResults)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("resultindex: create bucket: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the index database.
func (idx *Index) Close() error { return idx.db.Close() }

// Put upserts result into the index, keyed by task id.
func (idx *Index) Put(result *tasktype.Result) error {
	return idx.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults)
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		return b.Put([]byte(result.TaskID), data)
	})
}

// Get looks up a result by task id.
func (idx *Index) Get(taskID string) (*tasktype.Result, bool, error) {
	var result tasktype.Result
	found := false
	err := idx.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults)
		data := b.Get([]byte(taskID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &result)
	})
	if err != nil || !found {
		return nil, found, err
	}
	return &result, true, nil
}

// ListByExitPath returns every indexed result with the given exit path.
func (idx *Index) ListByExitPath(exitPath tasktype.ExitPath) ([]*tasktype.Result, error) {
	var matches []*tasktype.Result
	err := idx.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults)
		return b.ForEach(func(k, v []byte) error {
			var result tasktype.Result
			if err := json.Unmarshal(v, &result); err != nil {
				return err
			}
			if result.ExitPath == exitPath {
				matches = append(matches, &result)
			}
			return nil
		})
	})
	return matches, err
}

// Count returns the total number of indexed results.
func (idx *Index) Count() (int, error) {
	n := 0
	err := idx.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults)
		return b.ForEach(func(k, v []byte) error {
			n++
			return nil
		})
	})
	return n, err
}

// Rebuild clears the index and repopulates it from every *.json file in
// resultsDir, restoring the invariant that the index is a pure
// derivative of the filesystem.
func (idx *Index) Rebuild(resultsDir string) (int, error) {
	entries, err := filepathGlobJSON(resultsDir)
	if err != nil {
		return 0, err
	}

	err = idx.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketResults); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketResults)
		if err != nil {
			return err
		}
		for _, path := range entries {
			data, err := readFile(path)
			if err != nil {
				return fmt.Errorf("resultindex: read %s: %w", path, err)
			}
			result, err := tasktype.UnmarshalResult(data)
			if err != nil {
				return fmt.Errorf("resultindex: parse %s: %w", path, err)
			}
			encoded, err := json.Marshal(result)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(result.TaskID), encoded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

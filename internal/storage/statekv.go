package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key prefix scheme — "|" as separator so subsystem names stay unambiguous.
//
//	s|<subsystem> → state blob JSON (trigger, achievement, penalty, army, …)
const prefixState = "s|"

// StateKV is the LevelDB store for opaque per-subsystem state blobs. Each
// subsystem snapshots its own state struct; StateKV only sees JSON.
type StateKV struct {
	db *leveldb.DB
}

// OpenState opens (or creates) the LevelDB directory at path. LevelDB is
// single-writer: a second open of the same path fails.
func OpenState(path string) (*StateKV, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return &StateKV{db: db}, nil
}

// Close releases the database.
func (s *StateKV) Close() error {
	return s.db.Close()
}

// PutState serializes v and stores it under the subsystem name.
// Last write wins.
func (s *StateKV) PutState(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s state: %w", name, err)
	}
	if err := s.db.Put([]byte(prefixState+name), data, nil); err != nil {
		return fmt.Errorf("put %s state: %w", name, err)
	}
	return nil
}

// GetState loads the subsystem's blob into v. Returns false with a nil
// error when no blob has been stored yet.
func (s *StateKV) GetState(name string, v any) (bool, error) {
	data, err := s.db.Get([]byte(prefixState+name), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s state: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s state: %w", name, err)
	}
	return true, nil
}

// StateNames lists every subsystem with a stored blob.
func (s *StateKV) StateNames() ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixState)), nil)
	defer iter.Release()

	var out []string
	for iter.Next() {
		out = append(out, strings.TrimPrefix(string(iter.Key()), prefixState))
	}
	return out, iter.Error()
}

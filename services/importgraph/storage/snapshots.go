// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/importgraph/services/importgraph/graph"
)

// ErrSnapshotNotFound is returned when no snapshot has the requested ID.
var ErrSnapshotNotFound = errors.New("snapshot not found")

const (
	infoKeyPrefix = "snapshot:info:"
	dataKeyPrefix = "snapshot:data:"
)

// SnapshotInfo describes a stored snapshot without its records.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ModuleCount int       `json:"module_count"`
	ImportCount int       `json:"import_count"`
}

// SnapshotStore saves and restores graph snapshots.
//
// Each snapshot is two keys: a small info record used by List and the
// JSON-encoded graph.Snapshot. Both are written in one transaction.
//
// Thread Safety: Safe for concurrent use.
type SnapshotStore struct {
	db  *DB
	now func() time.Time
}

// NewSnapshotStore creates a store on db. The caller keeps ownership of db.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db, now: time.Now}
}

func infoKey(id string) []byte { return []byte(infoKeyPrefix + id) }
func dataKey(id string) []byte { return []byte(dataKeyPrefix + id) }

// Save stores s under a new ID.
//
// Inputs:
//
//	ctx - Checked before the transaction starts.
//	name - Optional human label.
//	s - The snapshot. Must not be nil.
//
// Outputs:
//
//	SnapshotInfo - The stored metadata, including the generated ID.
//	error - Non-nil on encoding or database failure.
func (s *SnapshotStore) Save(ctx context.Context, name string, snap *graph.Snapshot) (SnapshotInfo, error) {
	if snap == nil {
		return SnapshotInfo{}, errors.New("snapshot must not be nil")
	}

	info := SnapshotInfo{
		ID:          uuid.NewString(),
		Name:        name,
		CreatedAt:   s.now().UTC(),
		ModuleCount: len(snap.Modules),
		ImportCount: countPairs(snap.Imports),
	}

	infoData, err := json.Marshal(info)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("encode snapshot info: %w", err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("encode snapshot: %w", err)
	}

	err = s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		if err := txn.Set(infoKey(info.ID), infoData); err != nil {
			return err
		}
		return txn.Set(dataKey(info.ID), data)
	})
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("save snapshot %s: %w", info.ID, err)
	}
	return info, nil
}

// Load returns the snapshot stored under id.
//
// Errors:
//
//	ErrSnapshotNotFound - no snapshot has this id
func (s *SnapshotStore) Load(ctx context.Context, id string) (*graph.Snapshot, error) {
	var snap graph.Snapshot
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(dataKey(id))
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Info returns the metadata of the snapshot stored under id.
//
// Errors:
//
//	ErrSnapshotNotFound - no snapshot has this id
func (s *SnapshotStore) Info(ctx context.Context, id string) (SnapshotInfo, error) {
	var info SnapshotInfo
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(infoKey(id))
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})
	return info, err
}

// Delete removes the snapshot stored under id.
//
// Errors:
//
//	ErrSnapshotNotFound - no snapshot has this id
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	return s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		if _, err := txn.Get(infoKey(id)); err != nil {
			if errors.Is(err, dgbadger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
			}
			return err
		}
		if err := txn.Delete(infoKey(id)); err != nil {
			return err
		}
		return txn.Delete(dataKey(id))
	})
}

// List returns every stored snapshot's metadata, newest first.
func (s *SnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	infos := make([]SnapshotInfo, 0)
	prefix := []byte(infoKeyPrefix)

	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var info SnapshotInfo
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// countPairs counts distinct (importer, imported) pairs in the records.
func countPairs(records []graph.ImportRecord) int {
	seen := make(map[[2]string]struct{}, len(records))
	for _, r := range records {
		seen[[2]string{r.Importer, r.Imported}] = struct{}{}
	}
	return len(seen)
}

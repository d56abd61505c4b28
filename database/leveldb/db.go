// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package leveldb provides a persistent key-value store backed by goleveldb.
package leveldb

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/zap"

	"github.com/crossmesh/xcmpq/database"
	"github.com/crossmesh/xcmpq/utils/logging"
)

const (
	// Name is the name of this database for database switches
	Name = "leveldb"

	// blockCacheSize is the number of bytes to use for block caching in
	// leveldb.
	blockCacheSize = 12 * opt.MiB

	// writeBufferSize is the number of bytes to use for buffers in leveldb.
	writeBufferSize = 12 * opt.MiB

	// handleCap is the number of files descriptors to cap levelDB to use.
	handleCap = 64
)

var _ database.Database = (*Database)(nil)

// Database is a persistent key-value store backed by a leveldb instance on
// disk.
type Database struct {
	log logging.Logger
	db  *leveldb.DB
}

// New returns a wrapped LevelDB object.
func New(file string, log logging.Logger) (*Database, error) {
	db, err := leveldb.OpenFile(file, &opt.Options{
		BlockCacheCapacity:     blockCacheSize,
		OpenFilesCacheCapacity: handleCap,
		WriteBuffer:            writeBufferSize / 2,
	})
	if err != nil {
		return nil, err
	}
	log.Info("opened leveldb",
		zap.String("file", file),
	)
	return &Database{
		log: log,
		db:  db,
	}, nil
}

func (db *Database) Has(key []byte) (bool, error) {
	has, err := db.db.Has(key, nil)
	return has, updateError(err)
}

func (db *Database) Get(key []byte) ([]byte, error) {
	value, err := db.db.Get(key, nil)
	return value, updateError(err)
}

func (db *Database) Put(key, value []byte) error {
	return updateError(db.db.Put(key, value, nil))
}

func (db *Database) Delete(key []byte) error {
	return updateError(db.db.Delete(key, nil))
}

func (db *Database) Close() error {
	return updateError(db.db.Close())
}

// updateError casts leveldb specific errors to their database equivalents.
func updateError(err error) error {
	switch {
	case errors.Is(err, leveldb.ErrClosed):
		return database.ErrClosed
	case errors.Is(err, leveldb.ErrNotFound):
		return database.ErrNotFound
	default:
		return err
	}
}

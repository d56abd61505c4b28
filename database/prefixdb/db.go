// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package prefixdb partitions a database into sub-databases by prefixing all
// keys with a unique value. The queue engine uses it to keep page, signal
// and meta state in one physical store.
package prefixdb

import (
	"sync"

	"github.com/crossmesh/xcmpq/database"
)

var _ database.Database = (*Database)(nil)

// Database prefixes all keys with a byte slice before delegating to an
// underlying database.
//
// Prefixes handed to New must be prefix-free with respect to each other;
// single distinct bytes satisfy that trivially.
type Database struct {
	// All keys in this db begin with this byte slice
	dbPrefix []byte

	// lock needs to be held during Close to guarantee db will not be set to
	// nil concurrently with another operation. All other operations can hold
	// RLock.
	lock sync.RWMutex
	// The underlying storage
	db     database.Database
	closed bool
}

// New returns a new prefixed database.
func New(prefix []byte, db database.Database) *Database {
	if prefixDB, ok := db.(*Database); ok {
		return &Database{
			dbPrefix: append(append([]byte{}, prefixDB.dbPrefix...), prefix...),
			db:       prefixDB.db,
		}
	}
	return &Database{
		dbPrefix: append([]byte{}, prefix...),
		db:       db,
	}
}

// prefix returns a new byte slice of dbPrefix+key. The result is never
// aliased with [key].
func (db *Database) prefix(key []byte) []byte {
	prefixed := make([]byte, 0, len(db.dbPrefix)+len(key))
	prefixed = append(prefixed, db.dbPrefix...)
	return append(prefixed, key...)
}

func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return false, database.ErrClosed
	}
	return db.db.Has(db.prefix(key))
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	return db.db.Get(db.prefix(key))
}

func (db *Database) Put(key, value []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return db.db.Put(db.prefix(key), value)
}

func (db *Database) Delete(key []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return db.db.Delete(db.prefix(key))
}

// Close marks this database as unusable. The underlying database is left
// open; it may back other prefixed partitions.
func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	db.closed = true
	return nil
}

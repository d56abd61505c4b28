// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package database

import (
	"encoding/binary"
	"errors"
)

const (
	Uint16Size = 2 // bytes
	Uint32Size = 4 // bytes
	Uint64Size = 8 // bytes
	BoolSize   = 1 // bytes
	BoolFalse  = 0x00
	BoolTrue   = 0x01
)

var errWrongSize = errors.New("value has unexpected size")

func PutUInt16(db KeyValueWriter, key []byte, val uint16) error {
	return db.Put(key, PackUInt16(val))
}

func GetUInt16(db KeyValueReader, key []byte) (uint16, error) {
	b, err := db.Get(key)
	if err != nil {
		return 0, err
	}
	return ParseUInt16(b)
}

func PackUInt16(val uint16) []byte {
	bytes := make([]byte, Uint16Size)
	binary.BigEndian.PutUint16(bytes, val)
	return bytes
}

func ParseUInt16(b []byte) (uint16, error) {
	if len(b) != Uint16Size {
		return 0, errWrongSize
	}
	return binary.BigEndian.Uint16(b), nil
}

func PutUInt32(db KeyValueWriter, key []byte, val uint32) error {
	return db.Put(key, PackUInt32(val))
}

func GetUInt32(db KeyValueReader, key []byte) (uint32, error) {
	b, err := db.Get(key)
	if err != nil {
		return 0, err
	}
	return ParseUInt32(b)
}

func PackUInt32(val uint32) []byte {
	bytes := make([]byte, Uint32Size)
	binary.BigEndian.PutUint32(bytes, val)
	return bytes
}

func ParseUInt32(b []byte) (uint32, error) {
	if len(b) != Uint32Size {
		return 0, errWrongSize
	}
	return binary.BigEndian.Uint32(b), nil
}

func PutUInt64(db KeyValueWriter, key []byte, val uint64) error {
	return db.Put(key, PackUInt64(val))
}

func GetUInt64(db KeyValueReader, key []byte) (uint64, error) {
	b, err := db.Get(key)
	if err != nil {
		return 0, err
	}
	return ParseUInt64(b)
}

func PackUInt64(val uint64) []byte {
	bytes := make([]byte, Uint64Size)
	binary.BigEndian.PutUint64(bytes, val)
	return bytes
}

func ParseUInt64(b []byte) (uint64, error) {
	if len(b) != Uint64Size {
		return 0, errWrongSize
	}
	return binary.BigEndian.Uint64(b), nil
}

func PutBool(db KeyValueWriter, key []byte, b bool) error {
	if b {
		return db.Put(key, []byte{BoolTrue})
	}
	return db.Put(key, []byte{BoolFalse})
}

func GetBool(db KeyValueReader, key []byte) (bool, error) {
	b, err := db.Get(key)
	switch {
	case err != nil:
		return false, err
	case len(b) != BoolSize:
		return false, errWrongSize
	case b[0] != BoolFalse && b[0] != BoolTrue:
		return false, errWrongSize
	}
	return b[0] == BoolTrue, nil
}

// WithDefault returns the result of [getter] or [def] if the key is unset.
func WithDefault[V any](
	getter func(KeyValueReader, []byte) (V, error),
	db KeyValueReader,
	key []byte,
	def V,
) (V, error) {
	v, err := getter(db, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	return v, err
}

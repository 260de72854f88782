// Package state persists rig snapshots so a deployment can be stopped and
// resumed. Snapshots are gob-encoded and grouped by rig kind.
package state

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Kind groups snapshots of one rig type.
type Kind string

// Snapshot kinds, one per rig.
const (
	KindSeat    Kind = "seat"
	KindSpin    Kind = "spin"
	KindFund    Kind = "fund"
	KindContent Kind = "content"
)

// Kinds lists every known kind.
var Kinds = []Kind{KindSeat, KindSpin, KindFund, KindContent}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Store saves and loads named snapshots. v is a pointer to one of the
// engines' Snapshot types.
type Store interface {
	Put(kind Kind, name string, v interface{}) error
	Get(kind Kind, name string, v interface{}) error
	Names(kind Kind) ([]string, error)
	Delete(kind Kind, name string) error
}

func checkKey(kind Kind, name string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if name == "" {
		return ErrEmptyName
	}
	return nil
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("state: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	if v == nil {
		return fmt.Errorf("%w: target", ErrNilParam)
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("state: decode: %w", err)
	}
	return nil
}

// Package id generates race codes and URL-safe identifiers.
//
// Race codes are 13-character uppercase base32 tokens derived from a time
// seed. Identifiers are UUIDv4 bytes encoded as base32 (RFC 4648) with no
// padding: 26 characters, lowercase, safe for URLs and file paths.
package id

import (
	"encoding/base32"
	"encoding/binary"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRaceCode derives a compact printable race code from a time seed.
//
// The seed's nanosecond instant is mixed through FNV-1a so that adjacent
// seeds do not share prefixes, then encoded as unpadded uppercase base32.
// The function is pure; uniqueness is enforced by the store's primary key.
func NewRaceCode(seed time.Time) string {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], uint64(seed.UnixNano()))

	mixer := fnv.New64a()
	mixer.Write(raw[:])
	binary.LittleEndian.PutUint64(raw[:], mixer.Sum64())

	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
}

// NewID generates a URL-safe identifier using UUIDv4 bytes encoded as base32.
// The identifier is 26 characters long, lowercase, and contains no padding.
func NewID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return strings.ToLower(encoded), nil
}

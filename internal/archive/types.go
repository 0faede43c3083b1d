// Package archive stores inpaint results in a single SQLite file.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrNotFound is returned when a result is not in the archive.
var ErrNotFound = errors.New("result not found")

// Metadata describes an archive.
type Metadata struct {
	Name        string
	Description string
	Version     string
	// Compression is the PNG compression level results were encoded with.
	Compression string
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Version != "" {
		result["version"] = m.Version
	}
	if m.Compression != "" {
		result["compression"] = m.Compression
	}
	result["format"] = "png"

	return result
}

// Entry is one archived result.
type Entry struct {
	CreatedAt time.Time
	// Seed is nil when grain was drawn from a time-seeded source.
	Seed   *int64
	Name   string
	Key    string
	PNG    []byte
	Width  int
	Height int
	Passes int
}

// Info is an Entry without its image payload.
type Info struct {
	CreatedAt time.Time `json:"created_at"`
	Seed      *int64    `json:"seed,omitempty"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Passes    int       `json:"passes"`
	// Size is the stored (compressed) payload size in bytes.
	Size int `json:"size"`
}

// ContentKey identifies an inpaint job by its inputs: the encoded source and
// mask bytes, the pass count, and the seed. The result is 16 hex digits.
func ContentKey(source, mask []byte, passes int, seed *int64) string {
	d := xxhash.New()

	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(source)))
	_, _ = d.Write(n[:])
	_, _ = d.Write(source)
	binary.LittleEndian.PutUint64(n[:], uint64(len(mask)))
	_, _ = d.Write(n[:])
	_, _ = d.Write(mask)

	binary.LittleEndian.PutUint64(n[:], uint64(passes))
	_, _ = d.Write(n[:])
	if seed != nil {
		binary.LittleEndian.PutUint64(n[:], uint64(*seed))
		_, _ = d.Write([]byte{1})
		_, _ = d.Write(n[:])
	} else {
		_, _ = d.Write([]byte{0})
	}

	return fmt.Sprintf("%016x", d.Sum64())
}

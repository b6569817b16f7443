// Package store keeps graph files under short names so the CLI and the
// HTTP server can share them.
//
// This package defines the [Store] interface with two backends:
//   - [FileStore]: a directory of files, for the CLI
//   - [MongoStore]: a MongoDB collection, for multi-instance servers
//
// # Usage
//
//	// CLI
//	s, err := store.NewFileStore("")  // Uses ~/.local/share/spacegraph/graphs/
//
//	// Server
//	s, err := store.NewMongoStore(ctx, "mongodb://localhost:27017", "spacegraph")
//
//	entry, err := s.Put(ctx, "office", data)
//	data, entry, err := s.Get(ctx, "office")
//
// Stored bytes are graph files exactly as written by the io package; the
// store never decodes them.
package store

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/matzehuels/spacegraph/pkg/cache"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
)

// ErrNotFound is returned by [Store.Get] and [Store.Delete] when no graph
// has the name.
var ErrNotFound = errors.New("graph not found")

// Entry describes a stored graph.
type Entry struct {
	Name       string    `json:"name" bson:"_id"`
	Size       int64     `json:"size" bson:"size"`
	Hash       string    `json:"hash" bson:"hash"`
	Compressed bool      `json:"compressed,omitempty" bson:"compressed,omitempty"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// Store is the interface for graph storage backends. Implementations are
// safe for concurrent use.
type Store interface {
	// Put stores data under name, replacing any graph of that name.
	Put(ctx context.Context, name string, data []byte) (Entry, error)

	// Get retrieves a graph and its entry.
	Get(ctx context.Context, name string) ([]byte, Entry, error)

	// List returns every entry in name order.
	List(ctx context.Context) ([]Entry, error)

	// Delete removes a graph.
	Delete(ctx context.Context, name string) error

	// Close releases the backend.
	Close() error
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// newEntry describes data about to be stored.
func newEntry(name string, data []byte) (Entry, error) {
	if err := sgerrors.ValidateMapName(name); err != nil {
		return Entry{}, err
	}
	// names become file names
	if err := sgerrors.ValidatePath(name); err != nil {
		return Entry{}, err
	}
	return Entry{
		Name:       name,
		Size:       int64(len(data)),
		Hash:       cache.Hash(data),
		Compressed: bytes.HasPrefix(data, zstdMagic),
		UpdatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}, nil
}

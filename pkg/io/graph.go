package io

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
)

// Format identifies spacegraph files.
const Format = "spacegraph"

// Version is the file version written by [WriteGraph].
const Version = 1

// GraphExt is the usual extension of graph files.
const GraphExt = ".graph"

// CompressedExt marks zstd-compressed graph files.
const CompressedExt = ".zst"

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Status classifies the outcome of reading a graph file.
type Status int

const (
	StatusOK Status = iota
	StatusNotAGraph
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotAGraph:
		return "not a graph"
	case StatusMalformed:
		return "malformed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type envelope struct {
	Format   string          `json:"format"`
	Version  int             `json:"version"`
	Document json.RawMessage `json:"document"`
}

// WriteOptions configures [WriteGraph].
type WriteOptions struct {
	// Legacy writes attribute columns in name order.
	Legacy bool
	// Compress wraps the output in a zstd frame.
	Compress bool
}

// WriteGraph encodes d to w.
func WriteGraph(w io.Writer, d *document.Document, opts WriteOptions) (err error) {
	if opts.Compress {
		enc, zerr := zstd.NewWriter(w)
		if zerr != nil {
			return fmt.Errorf("zstd: %w", zerr)
		}
		defer func() {
			if cerr := enc.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("zstd: %w", cerr)
			}
		}()
		w = enc
	}

	doc, err := json.Marshal(d.Snapshot(opts.Legacy))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope{Format: Format, Version: Version, Document: doc}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadGraph decodes a graph file from r. The error carries
// ErrCodeNotAGraph or ErrCodeMalformedGraph to match the status.
func ReadGraph(r io.Reader) (*document.Document, Status, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(zstdMagic)); bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, StatusMalformed, sgerrors.Wrap(sgerrors.ErrCodeMalformedGraph, err, "zstd stream")
		}
		defer dec.Close()
		return decodeGraph(dec)
	}
	return decodeGraph(br)
}

func decodeGraph(r io.Reader) (*document.Document, Status, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		var syntax *json.SyntaxError
		var typ *json.UnmarshalTypeError
		if errors.As(err, &syntax) || errors.As(err, &typ) || errors.Is(err, io.EOF) {
			return nil, StatusNotAGraph, sgerrors.Wrap(sgerrors.ErrCodeNotAGraph, err, "not a %s file", Format)
		}
		return nil, StatusMalformed, sgerrors.Wrap(sgerrors.ErrCodeMalformedGraph, err, "read")
	}
	if env.Format != Format {
		return nil, StatusNotAGraph, sgerrors.New(sgerrors.ErrCodeNotAGraph, "format %q is not %q", env.Format, Format)
	}
	if env.Version < 1 || env.Version > Version {
		return nil, StatusMalformed, sgerrors.New(sgerrors.ErrCodeMalformedGraph, "unsupported version %d", env.Version)
	}

	var snap document.Snapshot
	if err := json.Unmarshal(env.Document, &snap); err != nil {
		return nil, StatusMalformed, sgerrors.Wrap(sgerrors.ErrCodeMalformedGraph, err, "decode document")
	}
	d, err := document.FromSnapshot(snap)
	if err != nil {
		return nil, StatusMalformed, sgerrors.Wrap(sgerrors.ErrCodeMalformedGraph, err, "rebuild document")
	}
	return d, StatusOK, nil
}

// IsCompressedPath reports whether path names a compressed graph file.
func IsCompressedPath(path string) bool { return strings.HasSuffix(path, CompressedExt) }

// ImportGraph reads the graph file at path.
func ImportGraph(path string) (*document.Document, Status, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, StatusNotAGraph, sgerrors.Wrap(sgerrors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, StatusNotAGraph, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

// ExportGraph writes d to path, compressing when the path ends in ".zst".
// The file is written next to its destination and renamed into place.
func ExportGraph(d *document.Document, path string, legacy bool) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".spacegraph-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	opts := WriteOptions{Legacy: legacy, Compress: IsCompressedPath(path)}
	if err := WriteGraph(tmp, d, opts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

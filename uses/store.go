// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package uses

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Descriptor describes a cached function definition.
type Descriptor struct {
	Size int64
	Hex  string
}

// IndexFileName is the name of the index file.
const IndexFileName = "index.json"

var _ Storage = (*LocalStore)(nil)

// LocalStore is a content-addressed cache for function definitions.
//
// Blobs live under their sha256 hex, the index maps source locations to
// descriptors.
type LocalStore struct {
	index map[string]Descriptor

	fs afero.Fs

	mu sync.RWMutex
}

// NewLocalStore creates a new store backed by the given filesystem.
func NewLocalStore(fs afero.Fs) (*LocalStore, error) {
	index := make(map[string]Descriptor, 0)

	_, err := fs.Stat(IndexFileName)
	if os.IsNotExist(err) {
		f, err := fs.Create(IndexFileName)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		_, err = f.WriteString("{}")
		if err != nil {
			return nil, err
		}
		return &LocalStore{
			fs:    fs,
			index: index,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	b, err := afero.ReadFile(fs, IndexFileName)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(b, &index); err != nil {
		return nil, err
	}

	return &LocalStore{
		fs:    fs,
		index: index,
	}, nil
}

// id calculates the index key for a location, queries do not participate
func id(uri *url.URL) string {
	clone := *uri
	clone.RawQuery = ""
	return clone.String()
}

// Resolve retrieves a function definition from the store
//
// store: references address blobs directly by their sha256 hex, everything
// else goes through the index.
func (s *LocalStore) Resolve(_ context.Context, uri *url.URL) (io.ReadCloser, error) {
	if uri == nil {
		return nil, fmt.Errorf("uri is nil")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if uri.Scheme == "store" {
		hex := strings.TrimPrefix(uri.Opaque, "sha256:")
		if hex == "" {
			return nil, fmt.Errorf("store reference is missing a digest")
		}
		return s.fs.Open(hex)
	}

	desc, ok := s.index[id(uri)]
	if !ok {
		return nil, fmt.Errorf("descriptor not found")
	}

	f, err := s.fs.Open(desc.Hex)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Store a function definition in the store.
func (s *LocalStore) Store(r io.Reader, uri *url.URL) error {
	if uri == nil {
		return fmt.Errorf("uri is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hasher := sha256.New()

	var buf bytes.Buffer

	mw := io.MultiWriter(hasher, &buf)

	if _, err := io.Copy(mw, r); err != nil {
		return err
	}

	hex := fmt.Sprintf("%x", hasher.Sum(nil))

	if err := afero.WriteFile(s.fs, hex, buf.Bytes(), 0644); err != nil {
		return err
	}

	s.index[id(uri)] = Descriptor{
		Size: int64(buf.Len()),
		Hex:  hex,
	}

	b, err := json.Marshal(s.index)
	if err != nil {
		return err
	}

	return afero.WriteFile(s.fs, IndexFileName, b, 0644)
}

// Exists checks if a function definition exists in the store and has not been corrupted.
func (s *LocalStore) Exists(uri *url.URL) (bool, error) {
	if uri == nil {
		return false, fmt.Errorf("uri is nil")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	desc, ok := s.index[id(uri)]
	if !ok {
		return false, nil
	}

	fi, err := s.fs.Stat(desc.Hex)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("descriptor exists in index, but no corresponding file was found, possible cache corruption: %s", desc.Hex)
		}
		return false, err
	}

	if fi.Size() != desc.Size {
		return false, fmt.Errorf("size mismatch, expected %d, got %d", desc.Size, fi.Size())
	}

	hasher := sha256.New()

	f, err := s.fs.Open(desc.Hex)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if _, err := io.Copy(hasher, f); err != nil {
		return false, err
	}

	if fmt.Sprintf("%x", hasher.Sum(nil)) != desc.Hex {
		return false, errors.New("hash mismatch")
	}

	return true, nil
}

// List returns a copy of the index
func (s *LocalStore) List() map[string]Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.index)
}

// GC removes blobs no longer referenced by the index
func (s *LocalStore) GC() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	referenced := make(map[string]bool, len(s.index))
	for _, desc := range s.index {
		referenced[desc.Hex] = true
	}

	entries, err := afero.ReadDir(s.fs, ".")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == IndexFileName {
			continue
		}
		if referenced[entry.Name()] {
			continue
		}
		if err := s.fs.Remove(entry.Name()); err != nil {
			return err
		}
	}

	return nil
}

package jobs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const defaultFileMode os.FileMode = 0o644

// Store reads and writes the urlwatch jobs file. Writes go through a temp
// file in the same directory that is renamed over the target, so readers
// only ever see a complete file.
type Store struct {
	path   string
	logger *logrus.Logger
	lock   *flock.Flock
	mu     sync.Mutex

	// corrupt is set when the last Load could not parse the file; the next
	// Save keeps a .bak copy before replacing it.
	corrupt atomic.Bool
}

func NewStore(path string, logger *logrus.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
		lock:   flock.New(path + ".lock"),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the registry on disk. A missing file is an empty registry; a
// file that cannot be read or parsed is logged and also yields an empty
// registry. Load never fails.
func (s *Store) Load() *Registry {
	reg, err := s.read()
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"path":  s.path,
			"kind":  types.IOFailure,
			"error": err.Error(),
		}).Error("Failed to read jobs file")
		return NewRegistry()
	}
	return reg
}

// read is Load for writers: an unreadable file is an IOFailure so that a
// mutation never replaces jobs it could not see. Unparsable content still
// yields an empty registry and marks the file for backup.
func (s *Store) read() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warnf("Jobs file not found at %s", s.path)
			return NewRegistry(), nil
		}
		return nil, types.WrapError(types.IOFailure, "load", err, "failed to read %s", s.path)
	}

	records, err := decodeRecords(data)
	if err != nil {
		s.corrupt.Store(true)
		s.logger.WithFields(logrus.Fields{
			"path":  s.path,
			"kind":  types.ParseFailure,
			"error": err.Error(),
		}).Error("Failed to parse jobs file")
		return NewRegistry(), nil
	}

	s.corrupt.Store(false)
	s.logger.Debugf("Loaded %d jobs from %s", len(records), s.path)
	return NewRegistry(records...), nil
}

// Save replaces the jobs file with the full registry.
func (s *Store) Save(reg *Registry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return types.WrapError(types.IOFailure, "save", err, "failed to create directory for %s", s.path)
	}

	data, err := encodeRecords(reg.Records())
	if err != nil {
		return types.WrapError(types.IOFailure, "save", err, "failed to encode jobs")
	}

	mode := defaultFileMode
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
		if s.corrupt.Load() {
			backup := s.path + ".bak"
			if err := os.Rename(s.path, backup); err != nil {
				return types.WrapError(types.IOFailure, "save", err, "failed to back up unparsable %s", s.path)
			}
			s.logger.Warnf("Kept unparsable jobs file as %s", backup)
			s.corrupt.Store(false)
		}
	}

	if err := renameio.WriteFile(s.path, data, mode); err != nil {
		return types.WrapError(types.IOFailure, "save", err, "failed to write %s", s.path)
	}

	s.logger.WithFields(logrus.Fields{
		"path": s.path,
		"jobs": reg.Len(),
	}).Info("Saved jobs file")
	return nil
}

// Update runs load, fn and save while holding an exclusive lock on the jobs
// file, in-process and across processes. Nothing is saved when fn fails.
func (s *Store) Update(fn func(reg *Registry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return types.WrapError(types.IOFailure, "update", err, "failed to create directory for %s", s.path)
	}
	if err := s.lock.Lock(); err != nil {
		return types.WrapError(types.IOFailure, "update", err, "failed to lock %s", s.path)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warnf("Failed to unlock %s: %v", s.path, err)
		}
	}()

	reg, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(reg); err != nil {
		return err
	}
	return s.Save(reg)
}

func decodeRecords(data []byte) ([]*Record, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var records []*Record
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		root := &doc
		if root.Kind == yaml.DocumentNode {
			if len(root.Content) == 0 {
				continue
			}
			root = root.Content[0]
		}
		if isEmptyDocument(root) {
			continue
		}

		rec := &Record{}
		if err := rec.UnmarshalYAML(root); err != nil {
			return nil, fmt.Errorf("document %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func isEmptyDocument(node *yaml.Node) bool {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return true
		case "!!bool":
			return node.Value == "false"
		case "!!int":
			return node.Value == "0"
		case "!!str":
			return node.Value == ""
		}
	case yaml.MappingNode, yaml.SequenceNode:
		return len(node.Content) == 0
	}
	return false
}

func encodeRecords(records []*Record) ([]byte, error) {
	if len(records) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

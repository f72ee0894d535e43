// Package store provides the durable append-only record of finalized
// orders. The store is the one process-wide shared resource: Append holds a
// single critical section around the whole read-count/assign/write cycle so
// concurrent finalizations never observe the same count.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	contractx "github.com/orderai/orderai/agent/contract"
	orderx "github.com/orderai/orderai/agent/order"
)

type FileConfig struct {
	Path string `envconfig:"PATH" split_words:"true" default:"orders.json"`
}

// FileOption customizes FileStore.
type FileOption func(*FileStore)

// WithIndent controls pretty-printing of the orders document.
func WithIndent(indent bool) FileOption {
	return func(s *FileStore) {
		s.indent = indent
	}
}

// FileStore keeps every finalized order in one JSON document. Each append
// reads the whole document, appends in memory, and rewrites it through a
// temp file and rename. Acceptable only under the single-writer mutex held
// for the whole cycle.
type FileStore struct {
	path   string
	indent bool
	mu     sync.Mutex
}

func NewFileStore(cfg FileConfig, opts ...FileOption) (*FileStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("orders file path is required")
	}

	s := &FileStore{
		path:   path,
		indent: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *FileStore) Append(ctx context.Context, build func(count int) orderx.FinalizedOrder) (orderx.FinalizedOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return orderx.FinalizedOrder{}, err
	}

	final := build(len(records))
	records = append(records, final)

	if err := s.write(records); err != nil {
		return orderx.FinalizedOrder{}, err
	}
	return final, nil
}

func (s *FileStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *FileStore) List(ctx context.Context) ([]orderx.FinalizedOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *FileStore) load() ([]orderx.FinalizedOrder, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", contractx.ErrStorage, s.path, err)
	}

	var records []orderx.FinalizedOrder
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", contractx.ErrStorage, s.path, err)
	}
	return records, nil
}

func (s *FileStore) write(records []orderx.FinalizedOrder) error {
	var (
		payload []byte
		err     error
	)
	if s.indent {
		payload, err = json.MarshalIndent(records, "", "  ")
	} else {
		payload, err = json.Marshal(records)
	}
	if err != nil {
		return fmt.Errorf("%w: marshal orders: %v", contractx.ErrStorage, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", contractx.ErrStorage, dir, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", contractx.ErrStorage, tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", contractx.ErrStorage, tmp, err)
	}
	return nil
}

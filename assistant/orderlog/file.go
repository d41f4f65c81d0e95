// Package orderlog persists order records. The file log keeps the whole
// collection in one JSON document and rewrites it in full on every append;
// a Postgres log backed by bun is available for deployments that outgrow
// that.
package orderlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	contractx "github.com/marcovalle/ventia/assistant/contract"
)

type Config struct {
	FilePath    string `envconfig:"FILE_PATH" split_words:"true" default:"data/orders.json"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" split_words:"true"`
}

// FileLog appends records to a single JSON array document. Each append is
// a full read-modify-write of the document.
type FileLog struct {
	mu   sync.Mutex
	path string
}

var _ contractx.OrderLog = (*FileLog)(nil)

func NewFileLog(path string) (*FileLog, error) {
	if path == "" {
		return nil, errors.New("order log file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create order log directory: %w", err)
		}
	}
	return &FileLog{path: path}, nil
}

// Append adds rec to the end of the document, preserving existing entries.
func (l *FileLog) Append(_ context.Context, rec contractx.OrderRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.readAll()
	if err != nil {
		return err
	}
	records = append(records, rec)

	payload, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal order log: %w", err)
	}
	if err := os.WriteFile(l.path, payload, 0o644); err != nil {
		return fmt.Errorf("write order log: %w", err)
	}
	return nil
}

// Records returns the persisted records in append order.
func (l *FileLog) Records() ([]contractx.OrderRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAll()
}

func (l *FileLog) readAll() ([]contractx.OrderRecord, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read order log: %w", err)
	}

	var records []contractx.OrderRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode order log: %w", err)
	}
	return records, nil
}

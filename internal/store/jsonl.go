package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimezsa/admitscrape/internal/models"
)

// JSONLStore appends one JSON object per line. Keys already in the file are
// loaded on open so reruns against the same file skip known records.
type JSONLStore struct {
	path     string
	file     *os.File
	keys     map[string]struct{}
	repaired int64
}

func OpenJSONL(path string) (*JSONLStore, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, fmt.Errorf("%w: %s holds a JSON array, append to a .jsonl file instead", ErrUnsupportedTarget, path)
	}

	repaired, err := repairTornTail(path)
	if err != nil {
		return nil, fmt.Errorf("repair %s: %w", path, err)
	}
	existing, err := ReadFileAllowMissing(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	keys := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		if key, ok := Key(rec); ok {
			keys[key] = struct{}{}
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLStore{path: path, file: file, keys: keys, repaired: repaired}, nil
}

// repairTornTail handles a final line left without its newline by an
// interrupted write. A tail that still decodes gets its newline back; any
// other tail is cut off. It returns the number of bytes removed. Malformed
// lines before the last newline are left for the loader to reject.
func repairTornTail(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) == 0 || data[len(data)-1] == '\n' {
		return 0, nil
	}

	cut := bytes.LastIndexByte(data, '\n') + 1
	tail := bytes.TrimSpace(data[cut:])
	if len(tail) == 0 || (cut == 0 && tail[0] == '[') {
		return 0, nil
	}
	var rec models.AdmissionRecord
	if json.Unmarshal(tail, &rec) == nil {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		if err != nil {
			return 0, err
		}
		if _, err := f.Write([]byte{'\n'}); err != nil {
			f.Close()
			return 0, err
		}
		return 0, f.Close()
	}
	if err := os.Truncate(path, int64(cut)); err != nil {
		return 0, err
	}
	return int64(len(data) - cut), nil
}

func (s *JSONLStore) Append(_ context.Context, rec models.AdmissionRecord) (bool, error) {
	rec, key, err := withKey(rec)
	if err != nil {
		return false, err
	}
	if _, exists := s.keys[key]; exists {
		return false, nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return false, fmt.Errorf("append %s: %w", s.path, err)
	}
	s.keys[key] = struct{}{}
	return true, nil
}

func (s *JSONLStore) Records(_ context.Context) ([]models.AdmissionRecord, error) {
	return ReadFileAllowMissing(s.path)
}

// Len returns the number of distinct keys stored.
func (s *JSONLStore) Len() int {
	return len(s.keys)
}

// Repaired reports how many bytes of a torn final line were dropped on open.
func (s *JSONLStore) Repaired() int64 {
	return s.repaired
}

func (s *JSONLStore) Close() error {
	return s.file.Close()
}

package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimezsa/admitscrape/internal/models"
)

// ReadFile reads records from path. Both a JSON array and JSON Lines are accepted.
func ReadFile(path string) ([]models.AdmissionRecord, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeRecords(data)
}

// ReadFileAllowMissing reads records and treats a missing file as empty.
func ReadFileAllowMissing(path string) ([]models.AdmissionRecord, error) {
	records, err := ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.AdmissionRecord{}, nil
		}
		return nil, err
	}
	return records, nil
}

// WriteFile writes records as a pretty JSON array when path ends in .json,
// and as JSON Lines otherwise.
func WriteFile(path string, records []models.AdmissionRecord) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is required")
	}
	if records == nil {
		records = []models.AdmissionRecord{}
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".json") {
		encoded, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		data = append(encoded, '\n')
	} else {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		data = buf.Bytes()
	}
	return os.WriteFile(path, data, 0o644)
}

func decodeRecords(data []byte) ([]models.AdmissionRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []models.AdmissionRecord{}, nil
	}

	if trimmed[0] == '[' {
		var records []models.AdmissionRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		if records == nil {
			return []models.AdmissionRecord{}, nil
		}
		return records, nil
	}

	records := []models.AdmissionRecord{}
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 64<<10), 4<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec models.AdmissionRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

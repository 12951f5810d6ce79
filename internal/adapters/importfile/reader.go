package importfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"clinic_reviews/internal/domain"
)

var (
	ErrEmptyPath = errors.New("empty path")
	ErrNotList   = errors.New("expected an array of records or an object with a reviews array")
)

// Reader loads hand-authored review files (JSON or YAML).
type Reader struct{}

func New() *Reader { return &Reader{} }

// ReadFile parses path into import records. Elements that are not objects
// are kept with nil Fields so normalization can skip and count them.
func (Reader) ReadFile(path string) (domain.Batch, error) {
	if strings.TrimSpace(path) == "" {
		return domain.Batch{}, &domain.ImportFileError{Path: path, Err: ErrEmptyPath}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Batch{}, &domain.ImportFileError{Path: path, Err: err}
	}

	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return domain.Batch{}, &domain.ImportFileError{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}

	items, err := recordList(stringKeys(doc))
	if err != nil {
		return domain.Batch{}, &domain.ImportFileError{Path: path, Err: err}
	}

	b := domain.Batch{Records: make([]domain.RawReview, 0, len(items))}
	for i, it := range items {
		m, _ := it.(map[string]any) // nil for non-objects
		b.Records = append(b.Records, domain.ImportedRawReview{Index: i, Fields: m})
	}
	log.Info().Str("path", path).Int("records", len(b.Records)).Msg("import file read")
	return b, nil
}

func recordList(doc any) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if rs, ok := v["reviews"].([]any); ok {
			return rs, nil
		}
	}
	return nil, ErrNotList
}

// stringKeys turns yaml's map[any]any nodes into map[string]any, recursively.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[fmt.Sprint(k)] = stringKeys(x)
		}
		return m
	case map[string]any:
		for k, x := range t {
			t[k] = stringKeys(x)
		}
		return t
	case []any:
		for i, x := range t {
			t[i] = stringKeys(x)
		}
		return t
	default:
		return v
	}
}

package domain

import "fmt"

// ConfigurationError is raised before anything is attempted.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
	}
	return "configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// SourceUnavailableError means the remote fetch failed; nothing is written.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// ImportFileError means the import path is missing, unreadable or not a
// record collection.
type ImportFileError struct {
	Path string
	Err  error
}

func (e *ImportFileError) Error() string {
	return fmt.Sprintf("import file %s: %v", e.Path, e.Err)
}

func (e *ImportFileError) Unwrap() error { return e.Err }

// MalformedRecordError marks a single raw record that is skipped.
type MalformedRecordError struct {
	Origin Origin
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record #%d: %s", e.Origin, e.Index, e.Reason)
}

// StoreCorruptError is returned next to an empty snapshot when the persisted
// file cannot be trusted. Callers continue; the next save heals the file.
type StoreCorruptError struct {
	Path string
	Err  error
}

func (e *StoreCorruptError) Error() string {
	return fmt.Sprintf("snapshot %s corrupt: %v", e.Path, e.Err)
}

func (e *StoreCorruptError) Unwrap() error { return e.Err }

// PersistenceError is a failed write; the previous file is left in place.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist snapshot %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

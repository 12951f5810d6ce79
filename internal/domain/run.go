package domain

import "fmt"

type SourceKind string

const (
	SourceRemote SourceKind = "remote"
	SourceImport SourceKind = "import"
)

type Mode string

const (
	ModeOverwrite Mode = "overwrite"
	ModeMerge     Mode = "merge"
)

// RunConfig selects what a single pipeline run does.
type RunConfig struct {
	Source     SourceKind
	ImportPath string
	Mode       Mode
	DryRun     bool
}

func (c RunConfig) Validate() error {
	switch c.Source {
	case SourceRemote:
		if c.ImportPath != "" {
			return &ConfigurationError{Reason: "import path given with remote source"}
		}
	case SourceImport:
		if c.ImportPath == "" {
			return &ConfigurationError{Reason: "import source requires a file path"}
		}
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown source %q", c.Source)}
	}
	switch c.Mode {
	case ModeOverwrite, ModeMerge:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown mode %q", c.Mode)}
	}
	return nil
}

// Summary is the report of one run.
type Summary struct {
	RunID      string
	Source     SourceKind
	Mode       Mode
	DryRun     bool
	Fetched    int
	Normalized int
	Skipped    int
	Added      int
	Updated    int
	Kept       int
	Removed    int
	Total      int
	Rating     *float64
	Healed     bool
	Warnings   []string
	Preview    string
}

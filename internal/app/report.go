package app

import (
	"fmt"
	"strings"

	"clinic_reviews/internal/domain"
)

// FormatSummary renders the operator-facing report printed at the end of a run.
func FormatSummary(s domain.Summary) string {
	var b strings.Builder
	verb := "written"
	if s.DryRun {
		verb = "dry run, nothing written"
	}
	fmt.Fprintf(&b, "reviews %s (%s, %s)\n", verb, s.Source, s.Mode)
	fmt.Fprintf(&b, "  fetched:    %d\n", s.Fetched)
	fmt.Fprintf(&b, "  normalized: %d\n", s.Normalized)
	fmt.Fprintf(&b, "  skipped:    %d\n", s.Skipped)
	fmt.Fprintf(&b, "  added:      %d\n", s.Added)
	fmt.Fprintf(&b, "  updated:    %d\n", s.Updated)
	if s.Mode == domain.ModeMerge {
		fmt.Fprintf(&b, "  kept:       %d\n", s.Kept)
	} else {
		fmt.Fprintf(&b, "  removed:    %d\n", s.Removed)
	}
	fmt.Fprintf(&b, "  total:      %d\n", s.Total)
	if s.Rating != nil {
		fmt.Fprintf(&b, "  rating:     %.1f\n", *s.Rating)
	} else {
		b.WriteString("  rating:     n/a\n")
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	if s.Preview != "" {
		b.WriteString(s.Preview)
	}
	return b.String()
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"clinic_reviews/internal/domain"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRun_ImportWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.json", `[{"author":"Ana","rating":5,"text":"Great","date":"2024-01-02"},{"author":"Bob","rating":2}]`)
	snap := filepath.Join(dir, "reviews.json")
	metrics := filepath.Join(dir, "reviews.prom")

	var out, errb bytes.Buffer
	code := run(context.Background(), []string{"--import", in, "--snapshot", snap, "--place-id", "p1", "--metrics-textfile", metrics}, &out, &errb)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, errb.String())
	}
	if !strings.Contains(out.String(), "total:      2") || !strings.Contains(out.String(), "rating:     3.5") {
		t.Fatalf("unexpected summary:\n%s", out.String())
	}

	data, err := os.ReadFile(snap)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	var s domain.Snapshot
	if err := json.Unmarshal(data, &s); err != nil || s.TotalReviews != 2 || s.PlaceID != "p1" {
		t.Fatalf("unexpected snapshot %s (%v)", data, err)
	}
	if _, err := os.Stat(metrics); err != nil {
		t.Fatalf("metrics textfile missing: %v", err)
	}
}

func TestRun_DryRunLeavesStoreUntouched(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.json", `[{"author":"Ana","rating":5}]`)
	snap := filepath.Join(dir, "reviews.json")

	var out, errb bytes.Buffer
	code := run(context.Background(), []string{"--import", in, "--snapshot", snap, "--dry-run"}, &out, &errb)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, errb.String())
	}
	if _, err := os.Stat(snap); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote the snapshot")
	}
	if !strings.Contains(out.String(), "+ Ana") {
		t.Fatalf("expected preview in summary:\n%s", out.String())
	}
}

func TestRun_ExitCodes(t *testing.T) {
	t.Setenv("SERPAPI_API_KEY", "")
	dir := t.TempDir()
	snap := filepath.Join(dir, "reviews.json")

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"--help"}, exitOK},
		{"unknown flag", []string{"--bogus"}, exitConfig},
		{"missing key", []string{"--snapshot", snap, "--place-id", "p"}, exitConfig},
		{"remote with import path", []string{"--source", "remote", "--import", "x.json", "--snapshot", snap}, exitConfig},
		{"missing import file", []string{"--import", filepath.Join(dir, "nope.json"), "--snapshot", snap}, exitFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out, errb bytes.Buffer
			if got := run(context.Background(), tc.args, &out, &errb); got != tc.want {
				t.Fatalf("expected exit %d, got %d (stderr: %s)", tc.want, got, errb.String())
			}
		})
	}
	if _, err := os.Stat(snap); !os.IsNotExist(err) {
		t.Fatalf("failed runs must not create the snapshot")
	}
}

func TestRun_LockHeldAborts(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "in.json", `[{"author":"Ana","rating":5}]`)
	snap := filepath.Join(dir, "reviews.json")
	if err := mr.Set("lock:reviews:"+snap, "someone-else"); err != nil {
		t.Fatal(err)
	}

	var out, errb bytes.Buffer
	code := run(context.Background(), []string{"--import", in, "--snapshot", snap, "--redis-addr", mr.Addr()}, &out, &errb)
	if code == exitOK {
		t.Fatalf("expected failure while the lock is held")
	}
	if !strings.Contains(errb.String(), "another run in progress") {
		t.Fatalf("unexpected diagnostic: %s", errb.String())
	}
	if _, err := os.Stat(snap); !os.IsNotExist(err) {
		t.Fatalf("locked run wrote the snapshot")
	}

	mr.Del("lock:reviews:" + snap)
	out.Reset()
	errb.Reset()
	if code := run(context.Background(), []string{"--import", in, "--snapshot", snap, "--redis-addr", mr.Addr()}, &out, &errb); code != exitOK {
		t.Fatalf("expected success once the lock is free, got %d: %s", code, errb.String())
	}
	if mr.Exists("lock:reviews:" + snap) {
		t.Fatalf("lock not released after the run")
	}
}

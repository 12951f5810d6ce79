//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"clinic_reviews/internal/domain"
	mysqlrepo "clinic_reviews/internal/storage/mysql"
)

// ---------- small helpers ----------
func pstr(s string) *string { return &s }
func pint(i int) *int       { return &i }

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=clinic",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/clinic?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the test ----------
func TestRepo_MySQL_MirrorsSnapshot(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	a := domain.Review{ID: "a", Author: "Ana", Rating: pint(5), Date: "2024-03-01T10:00:00Z", Text: "Great", PhotoURL: pstr("https://x/a.png")}
	b := domain.Review{ID: "b", Author: "Bob", Date: "2024-02-01T10:00:00Z", RelativeDate: "a month ago", Text: ""}
	if err := repo.UpsertReviews(ctx, "place-1", []domain.Review{a, b}); err != nil {
		t.Fatalf("UpsertReviews: %v", err)
	}

	got, err := repo.ListReviews(ctx, "place-1")
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].Rating != nil {
		t.Fatalf("unexpected rows: %+v", got)
	}

	// second mirror: a changed, b dropped
	a.Rating = pint(4)
	if err := repo.UpsertReviews(ctx, "place-1", []domain.Review{a}); err != nil {
		t.Fatalf("UpsertReviews (2): %v", err)
	}
	got, err = repo.ListReviews(ctx, "place-1")
	if err != nil {
		t.Fatalf("ListReviews (2): %v", err)
	}
	if len(got) != 1 || got[0].Rating == nil || *got[0].Rating != 4 {
		t.Fatalf("expected only updated a, got %+v", got)
	}

	four := 4.0
	sum := domain.Summary{RunID: "00000000-0000-0000-0000-000000000001", Source: domain.SourceImport, Mode: domain.ModeMerge, Total: 1, Rating: &four}
	if err := repo.RecordRun(ctx, "place-1", sum, errors.New("boom")); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM review_runs WHERE error = 'boom'").Scan(&n); err != nil || n != 1 {
		t.Fatalf("expected one run row, got %d (%v)", n, err)
	}
}

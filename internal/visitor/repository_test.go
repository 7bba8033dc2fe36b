package visitor

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"labyrinth/app/internal/db"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestRecordRequiresPath(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)

	if err := repo.Record(context.Background(), &Visit{ClientIP: "192.0.2.10"}); err == nil {
		t.Fatalf("expected error for visit without path")
	}
}

func TestRecordDefaultsUnknownClient(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	visit := &Visit{Path: "/ephi/a.html"}
	if err := repo.Record(ctx, visit); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if visit.ClientIP != "unknown" {
		t.Fatalf("expected client defaulted to unknown, got %q", visit.ClientIP)
	}
}

func TestCountVisits(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.Record(ctx, &Visit{ClientIP: "192.0.2.10", Path: "/ephi/a.html"}); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	count, err := repo.CountVisits(ctx)
	if err != nil {
		t.Fatalf("CountVisits returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 visits, got %d", count)
	}
}

func TestTopClientsOrdersByHits(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	hits := map[string]int{
		"192.0.2.10": 3,
		"192.0.2.11": 5,
		"192.0.2.12": 1,
	}
	for ip, n := range hits {
		for i := 0; i < n; i++ {
			if err := repo.Record(ctx, &Visit{ClientIP: ip, Path: "/ephi/a.html"}); err != nil {
				t.Fatalf("Record returned error: %v", err)
			}
		}
	}

	top, err := repo.TopClients(ctx, 2)
	if err != nil {
		t.Fatalf("TopClients returned error: %v", err)
	}

	if len(top) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(top))
	}
	if top[0].ClientIP != "192.0.2.11" || top[0].Hits != 5 {
		t.Fatalf("expected busiest client first, got %+v", top[0])
	}
	if top[1].ClientIP != "192.0.2.10" || top[1].Hits != 3 {
		t.Fatalf("expected second busiest client, got %+v", top[1])
	}
}

func TestRecentVisitsReturnsLatestFirst(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	paths := []string{"/ephi/a.html", "/ephi/b.html", "/ephi/c.html"}
	for _, path := range paths {
		if err := repo.Record(ctx, &Visit{ClientIP: "192.0.2.10", Path: path}); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	recent, err := repo.RecentVisits(ctx, 2)
	if err != nil {
		t.Fatalf("RecentVisits returned error: %v", err)
	}

	if len(recent) != 2 {
		t.Fatalf("expected 2 visits, got %d", len(recent))
	}
	if recent[0].ID <= recent[1].ID {
		t.Fatalf("expected newest visit first, got ids %d, %d", recent[0].ID, recent[1].ID)
	}
}

func setupRepository(t *testing.T) *GormRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "visits.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := Migrate(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	repo, err := NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo
}

// Package referencetest seeds a small Bangkok / Chon Buri reference data set for tests.
package referencetest

import (
	"context"
	"database/sql"
	_ "embed"
	"testing"

	"propertyhub/internal/reference"
	"propertyhub/pkg/models"
)

//go:embed seed.yaml
var seedYAML []byte

// Seed loads the fixture into db and returns the snapshot of it.
func Seed(t testing.TB, db *sql.DB) *reference.Snapshot {
	t.Helper()

	s, err := reference.ParseSeed(seedYAML)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	repo := reference.NewRepo(db)
	if _, err := repo.ApplySeed(context.Background(), s); err != nil {
		t.Fatalf("apply fixture: %v", err)
	}
	snap, err := reference.LoadSnapshot(context.Background(), repo)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return snap
}

// TypeID returns the id of the type with the given English name.
func TypeID(t testing.TB, snap *reference.Snapshot, en string) int64 {
	t.Helper()
	return categoryID(t, snap.Types, en)
}

func StatusID(t testing.TB, snap *reference.Snapshot, en string) int64 {
	t.Helper()
	return categoryID(t, snap.Statuses, en)
}

func categoryID(t testing.TB, c reference.Categories, en string) int64 {
	t.Helper()
	for id, n := range c {
		if n.EN == en {
			return id
		}
	}
	t.Fatalf("fixture has no category %q", en)
	return 0
}

// LocationID returns the id of the location with the given level and English name.
func LocationID(t testing.TB, snap *reference.Snapshot, level models.Level, en string) int64 {
	t.Helper()
	for id, loc := range snap.Locations {
		if loc.Level == level && loc.Name.EN == en {
			return id
		}
	}
	t.Fatalf("fixture has no %s %q", level, en)
	return 0
}

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"propertyhub/internal/property"
	"propertyhub/pkg/database/dbtest"
)

func TestExportListings(t *testing.T) {
	db := dbtest.Open(t)
	if _, err := db.Exec(`
		INSERT INTO properties (property_code, type_text, size, features, title_en, team_id)
		VALUES ('AT1R', 'Warehouse', 500, '["Dock"]', 'Warehouse 500 sqm', 'east'),
		       ('AT2S', 'Land', NULL, 'Dock|Office', '', 'west')
	`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var buf bytes.Buffer
	n, err := exportListings(context.Background(), property.NewRepo(db), "", &buf)
	if err != nil || n != 2 {
		t.Fatalf("export = %d, %v", n, err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 || len(rows[0]) != len(exportHeader) {
		t.Fatalf("rows = %v", rows)
	}
	byCode := map[string][]string{}
	for _, r := range rows[1:] {
		byCode[r[1]] = r
	}
	if got := byCode["AT1R"]; got[10] != "500" || got[13] != `["Dock"]` {
		t.Errorf("AT1R = %q", got)
	}
	// Unrepaired legacy text reads as no tags until the normalizer has run.
	if got := byCode["AT2S"]; got[10] != "" || got[13] != "[]" {
		t.Errorf("AT2S = %q", got)
	}

	buf.Reset()
	if n, err := exportListings(context.Background(), property.NewRepo(db), "west", &buf); err != nil || n != 1 {
		t.Fatalf("team export = %d, %v", n, err)
	}
}

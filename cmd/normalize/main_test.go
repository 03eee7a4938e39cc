package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"propertyhub/internal/reference/referencetest"
	"propertyhub/pkg/database/dbtest"
)

func TestSplitColumns(t *testing.T) {
	if got := splitColumns(" features, ,labels "); !reflect.DeepEqual(got, []string{"features", "labels"}) {
		t.Fatalf("splitColumns = %q", got)
	}
	if got := splitColumns(""); got != nil {
		t.Fatalf("splitColumns(\"\") = %q", got)
	}
}

func TestRunAllPasses(t *testing.T) {
	db := dbtest.Open(t)
	referencetest.Seed(t, db)
	if _, err := db.Exec(`
		INSERT INTO properties (property_code, type_text, status_text, features, labels)
		VALUES ('AT1R', 'Warehouse', 'For Rent', 'Dock|Office', NULL)
	`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reportPath := filepath.Join(t.TempDir(), "report.json")
	var logs bytes.Buffer
	reports, err := run(context.Background(), db, options{
		columns:   []string{"features", "labels"},
		reconcile: true,
		titles:    true,
		report:    reportPath,
	}, log.New(&logs, "", 0))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(reports) != 4 {
		t.Fatalf("got %d reports, want 4", len(reports))
	}
	if reports[0].Changed != 1 {
		t.Errorf("features pass changed %d, want 1", reports[0].Changed)
	}

	var features, titleEN string
	var typeID *int64
	if err := db.QueryRow(`SELECT features, type_id, title_en FROM properties WHERE property_code = 'AT1R'`).Scan(&features, &typeID, &titleEN); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if features != `["Dock","Office"]` || typeID == nil {
		t.Fatalf("features = %s, type_id = %v", features, typeID)
	}
	if titleEN != "Warehouse for For Rent (Property ID: AT1R)" {
		t.Fatalf("title_en = %q", titleEN)
	}

	b, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var saved []map[string]any
	if err := json.Unmarshal(b, &saved); err != nil || len(saved) != 4 {
		t.Fatalf("report = %s (%v)", b, err)
	}

	for _, rep := range reports {
		if n := strings.Count(logs.String(), rep.String()+"\n"); n != 1 {
			t.Errorf("summary %q logged %d times, want once", rep.String(), n)
		}
	}
}

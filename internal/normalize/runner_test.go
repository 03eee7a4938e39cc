package normalize_test

import (
	"context"
	"database/sql"
	"io"
	"log"
	"strings"
	"testing"

	"propertyhub/internal/normalize"
	"propertyhub/internal/reference"
	"propertyhub/internal/reference/referencetest"
	"propertyhub/pkg/database/dbtest"
	"propertyhub/pkg/models"
)

func quietRunner(db *sql.DB) *normalize.Runner {
	return normalize.NewRunner(db, log.New(io.Discard, "", 0))
}

func insertFeatures(t *testing.T, db *sql.DB, code string, features any) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO properties (property_code, features) VALUES (?, ?)`, code, features)
	if err != nil {
		t.Fatalf("insert %s: %v", code, err)
	}
	id, _ := res.LastInsertId()
	return id
}

func featuresOf(t *testing.T, db *sql.DB, id int64) sql.NullString {
	t.Helper()
	var s sql.NullString
	if err := db.QueryRow(`SELECT features FROM properties WHERE id = ?`, id).Scan(&s); err != nil {
		t.Fatalf("read features %d: %v", id, err)
	}
	return s
}

func TestCleanArrays(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	rows := map[int64]string{}
	want := map[int64]string{}
	add := func(code, raw, canonical string) {
		id := insertFeatures(t, db, code, raw)
		rows[id] = raw
		want[id] = canonical
	}
	add("AT1R", "", `[]`)
	add("AT2R", `["Parking", "99", "1"]`, `["Parking"]`)
	add("AT3R", `{"Free-trade zone",Parking}`, `["Free-trade zone","Parking"]`)
	add("AT4R", `Parking|Office`, `["Parking","Office"]`)
	add("AT5R", `Security`, `["Security"]`)
	add("AT6R", `["Parking"]`, `["Parking"]`)
	add("AT7R", `["broken"`, `["broken"`)
	nullID := insertFeatures(t, db, "AT8R", nil)
	want[nullID] = `[]`

	r := quietRunner(db)
	rep, err := r.CleanArrays(ctx, "features", false)
	if err != nil {
		t.Fatalf("CleanArrays: %v", err)
	}
	if rep.Scanned != 8 {
		t.Fatalf("scanned = %d, want 8", rep.Scanned)
	}
	if rep.Changed != 6 {
		t.Fatalf("changed = %d, want 6 (%+v)", rep.Changed, rep.Changes)
	}
	if len(rep.Unrecognized) != 1 || rep.Unrecognized[0].Raw != `["broken"` {
		t.Fatalf("unrecognized = %+v", rep.Unrecognized)
	}

	for id, w := range want {
		if got := featuresOf(t, db, id); got.String != w {
			t.Errorf("property %d features = %s, want %s", id, got.String, w)
		}
	}

	second, err := r.CleanArrays(ctx, "features", false)
	if err != nil {
		t.Fatalf("second CleanArrays: %v", err)
	}
	if second.Changed != 0 {
		t.Fatalf("second pass changed %d rows: %+v", second.Changed, second.Changes)
	}
}

func TestCleanArraysDryRun(t *testing.T) {
	db := dbtest.Open(t)
	id := insertFeatures(t, db, "AT1R", "Parking|Office")

	rep, err := quietRunner(db).CleanArrays(context.Background(), "features", true)
	if err != nil {
		t.Fatalf("CleanArrays: %v", err)
	}
	if rep.Changed != 1 {
		t.Fatalf("changed = %d, want 1", rep.Changed)
	}
	if got := featuresOf(t, db, id); got.String != "Parking|Office" {
		t.Fatalf("dry run wrote %s", got.String)
	}
}

func TestCleanArraysRejectsUnknownColumn(t *testing.T) {
	db := dbtest.Open(t)
	if _, err := quietRunner(db).CleanArrays(context.Background(), "title_en; DROP TABLE properties", false); err == nil {
		t.Fatal("expected error")
	}
}

func TestReconcile(t *testing.T) {
	db := dbtest.Open(t)
	snap := referencetest.Seed(t, db)
	ctx := context.Background()

	factory := referencetest.TypeID(t, snap, "Factory")
	warehouse := referencetest.TypeID(t, snap, "Warehouse")
	forRent := referencetest.StatusID(t, snap, "For Rent")
	boWin := referencetest.LocationID(t, snap, models.LevelSubdistrict, "Bo Win")

	res, err := db.Exec(`
		INSERT INTO properties (property_code, type_text, status_text, province_text, district_text, subdistrict_text, size)
		VALUES ('AT1R', 'Factory|Warehouse', 'for rent', 'Chonburi', 'Si Racha', 'Bo Win', 1200)
	`)
	if err != nil {
		t.Fatalf("insert legacy: %v", err)
	}
	legacy, _ := res.LastInsertId()

	res, err = db.Exec(`
		INSERT INTO properties (property_code, type_id, type_text, status_text)
		VALUES ('AT2R', ?, 'Warehouse', 'Leasehold maybe')
	`, warehouse)
	if err != nil {
		t.Fatalf("insert current: %v", err)
	}
	current, _ := res.LastInsertId()

	r := quietRunner(db)
	rep, err := r.Reconcile(ctx, snap, false)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if rep.Changed != 1 {
		t.Fatalf("changed = %d, want 1", rep.Changed)
	}
	if len(rep.Unrecognized) != 1 || rep.Unrecognized[0].ID != current {
		t.Fatalf("unrecognized = %+v", rep.Unrecognized)
	}

	var typeID, statusID, subID sql.NullInt64
	var titleEN string
	if err := db.QueryRow(`SELECT type_id, status_id, subdistrict_id, title_en FROM properties WHERE id = ?`, legacy).
		Scan(&typeID, &statusID, &subID, &titleEN); err != nil {
		t.Fatalf("read legacy: %v", err)
	}
	if typeID.Int64 != factory || statusID.Int64 != forRent || subID.Int64 != boWin {
		t.Fatalf("ids = %v/%v/%v, want %d/%d/%d", typeID, statusID, subID, factory, forRent, boWin)
	}
	if titleEN != "Factory or Warehouse 1200 sqm for For Rent at Bo Win, Si Racha, Chon Buri (Property ID: AT1R)" {
		t.Fatalf("title_en = %q", titleEN)
	}

	var keptType sql.NullInt64
	if err := db.QueryRow(`SELECT type_id FROM properties WHERE id = ?`, current).Scan(&keptType); err != nil {
		t.Fatalf("read current: %v", err)
	}
	if keptType.Int64 != warehouse {
		t.Fatalf("type_id of matching row changed to %v", keptType)
	}

	again, err := r.Reconcile(ctx, snap, false)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if again.Changed != 0 {
		t.Fatalf("second reconcile changed %d rows", again.Changed)
	}
}

func TestRegenerateTitles(t *testing.T) {
	db := dbtest.Open(t)
	snap := referencetest.Seed(t, db)
	ctx := context.Background()

	warehouse := referencetest.TypeID(t, snap, "Warehouse")
	if _, err := db.Exec(`INSERT INTO properties (property_code, type_id, size, title_en) VALUES ('AT9S', ?, 300, 'stale')`, warehouse); err != nil {
		t.Fatalf("insert: %v", err)
	}

	r := quietRunner(db)
	rep, err := r.RegenerateTitles(ctx, snap, false)
	if err != nil {
		t.Fatalf("RegenerateTitles: %v", err)
	}
	if rep.Changed != 1 {
		t.Fatalf("changed = %d, want 1", rep.Changed)
	}

	var en, zh string
	if err := db.QueryRow(`SELECT title_en, title_zh FROM properties WHERE property_code = 'AT9S'`).Scan(&en, &zh); err != nil {
		t.Fatalf("read: %v", err)
	}
	if en != "Warehouse 300 sqm (Property ID: AT9S)" || zh != "仓库 300 平方米 (ID: AT9S)" {
		t.Fatalf("titles = %q / %q", en, zh)
	}

	again, err := r.RegenerateTitles(ctx, snap, false)
	if err != nil {
		t.Fatalf("second RegenerateTitles: %v", err)
	}
	if again.Changed != 0 {
		t.Fatalf("second run changed %d rows", again.Changed)
	}
}

func TestRegenerateTitlesTranslatesUnmatchedText(t *testing.T) {
	db := dbtest.Open(t)
	snap := referencetest.Seed(t, db)

	// The district is unknown, so the row never gets a subdistrict id.
	if _, err := db.Exec(`
		INSERT INTO properties (property_code, status_text, province_text, district_text)
		VALUES ('AT3S', 'for sale', 'Chonburi', 'Ban Bueng')
	`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := quietRunner(db).RegenerateTitles(context.Background(), snap, false); err != nil {
		t.Fatalf("RegenerateTitles: %v", err)
	}

	var th, zh string
	if err := db.QueryRow(`SELECT title_th, title_zh FROM properties WHERE property_code = 'AT3S'`).Scan(&th, &zh); err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"ขาย", "Ban Bueng", "ชลบุรี"} {
		if !strings.Contains(th, want) {
			t.Errorf("title_th = %q, missing %q", th, want)
		}
	}
	if strings.Contains(th, "Chonburi") || !strings.Contains(zh, "春武里") {
		t.Errorf("province left untranslated: th=%q zh=%q", th, zh)
	}
}

func TestLiveMatcherReload(t *testing.T) {
	db := dbtest.Open(t)
	names := normalize.NewLiveMatcher(reference.NewRepo(db))

	if _, ok := names.TypeName("Warehouse"); ok {
		t.Fatal("resolved before any snapshot was loaded")
	}

	referencetest.Seed(t, db)
	if _, ok := names.TypeName("Warehouse"); ok {
		t.Fatal("resolved seeded data before Reload")
	}
	if err := names.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	got, ok := names.LocationName(models.LevelDistrict, "Sriracha")
	if !ok || got.TH != "ศรีราชา" {
		t.Fatalf("LocationName after Reload = %+v, %v", got, ok)
	}
}

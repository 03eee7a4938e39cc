package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"propertyhub/internal/normalize"
	"propertyhub/internal/property"
	"propertyhub/internal/reference"
	"propertyhub/internal/titles"
	"propertyhub/pkg/database"
	"propertyhub/pkg/models"
	"propertyhub/pkg/utils"
)

func main() {
	var (
		in      = flag.String("in", "data/properties.csv", "input CSV path for listings")
		team    = flag.String("team", "", "team id for rows without one")
		match   = flag.Bool("match", true, "fill missing type/status/location ids from the text columns")
		timeout = flag.Duration("timeout", 5*time.Minute, "overall timeout")
	)
	flag.Parse()
	_ = utils.Load() // .env may set PROPERTYHUB_DB_PATH

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpenMigrated(database.DefaultConfig())
	defer db.Close()

	refRepo := reference.NewRepo(db)
	gen := titles.NewGenerator(refRepo.Types(), refRepo.Statuses(), refRepo.Locations())
	imp := &importer{
		svc:    property.NewService(property.NewRepo(db), gen, refRepo.Locations()),
		tags:   normalize.NewClassifier(),
		team:   *team,
		logger: log.Default(),
	}
	if *match {
		snap, err := reference.LoadSnapshot(ctx, refRepo)
		if err != nil {
			log.Fatalf("load reference data: %v", err)
		}
		imp.matcher = normalize.NewMatcher(snap)
		gen.Names = imp.matcher
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open %s: %v", *in, err)
	}
	defer f.Close()

	stats, err := imp.run(ctx, f)
	if err != nil {
		log.Fatalf("import listings failed: %v", err)
	}
	log.Printf("[import] %s: %d created, %d updated, %d skipped", *in, stats.created, stats.updated, stats.skipped)
}

type importStats struct {
	created, updated, skipped int
}

type importer struct {
	svc     *property.Service
	tags    *normalize.Classifier
	matcher *normalize.Matcher
	team    string
	logger  *log.Logger
}

// run reads listings from r. Rows whose property_code already exists update
// that listing; everything else is created. Tag columns may hold any of the
// legacy formats and are stored canonically.
func (imp *importer) run(ctx context.Context, r io.Reader) (importStats, error) {
	var stats importStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return stats, err
	}

	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 0 {
			continue
		}

		p, err := imp.rowToProperty(header, row)
		if err != nil {
			imp.logger.Printf("[import] line %d skipped: %v", line, err)
			stats.skipped++
			continue
		}

		existing, err := imp.svc.Repo.GetByCode(ctx, p.Code)
		if err != nil {
			return stats, err
		}
		if existing != nil {
			p.ID, p.CreatedBy, p.CreatedAt = existing.ID, existing.CreatedBy, existing.CreatedAt
			err = imp.svc.Update(ctx, p)
		} else {
			err = imp.svc.Create(ctx, p)
		}

		var ve property.ValidationError
		switch {
		case err == nil && existing != nil:
			stats.updated++
		case err == nil:
			stats.created++
		case errors.As(err, &ve), errors.Is(err, property.ErrUnknownReference), errors.Is(err, property.ErrDuplicateCode):
			imp.logger.Printf("[import] line %d skipped: %v", line, err)
			stats.skipped++
		default:
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return stats, nil
}

func (imp *importer) rowToProperty(header map[string]int, row []string) (*models.Property, error) {
	p := &models.Property{
		Code:            valueAt(header, row, "property_code"),
		TypeText:        valueAt(header, row, "type"),
		StatusText:      valueAt(header, row, "status"),
		ProvinceText:    valueAt(header, row, "province"),
		DistrictText:    valueAt(header, row, "district"),
		SubdistrictText: valueAt(header, row, "subdistrict"),
		Description:     valueAt(header, row, "description"),
		TeamID:          valueAt(header, row, "team_id"),
	}
	if p.TeamID == "" {
		p.TeamID = imp.team
	}

	var err error
	if p.TypeID, err = parseID(valueAt(header, row, "type_id")); err != nil {
		return nil, fmt.Errorf("type_id: %w", err)
	}
	if p.StatusID, err = parseID(valueAt(header, row, "status_id")); err != nil {
		return nil, fmt.Errorf("status_id: %w", err)
	}
	if p.SubdistrictID, err = parseID(valueAt(header, row, "subdistrict_id")); err != nil {
		return nil, fmt.Errorf("subdistrict_id: %w", err)
	}
	if p.Size, err = parseFloat(valueAt(header, row, "size")); err != nil {
		return nil, fmt.Errorf("size: %w", err)
	}
	if p.Price, err = parseFloat(valueAt(header, row, "price")); err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}

	for _, col := range []struct {
		name string
		dst  *[]string
	}{{"features", &p.Features}, {"labels", &p.Labels}} {
		out := imp.tags.Classify(valueAt(header, row, col.name))
		if !out.Matched() {
			return nil, fmt.Errorf("unrecognized %s value %q", col.name, valueAt(header, row, col.name))
		}
		*col.dst = out.Values
	}

	if imp.matcher != nil {
		if p.TypeID == nil {
			if id, ok := imp.matcher.MatchType(p.TypeText); ok {
				p.TypeID = &id
			}
		}
		if p.StatusID == nil {
			if id, ok := imp.matcher.MatchStatus(p.StatusText); ok {
				p.StatusID = &id
			}
		}
		if p.SubdistrictID == nil {
			if id, ok := imp.matcher.MatchSubdistrict(p.ProvinceText, p.DistrictText, p.SubdistrictText); ok {
				p.SubdistrictID = &id
			}
		}
	}
	return p, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseID(raw string) (*int64, error) {
	if raw == "" || raw == "0" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseFloat(raw string) (*float64, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

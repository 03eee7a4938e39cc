package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"propertyhub/internal/normalize"
	"propertyhub/internal/property"
	"propertyhub/pkg/database"
	"propertyhub/pkg/models"
	"propertyhub/pkg/utils"
)

var exportHeader = []string{
	"id", "property_code", "type_id", "status_id", "subdistrict_id",
	"type", "status", "province", "district", "subdistrict",
	"size", "price", "description", "features", "labels",
	"title_en", "title_th", "title_zh", "team_id", "updated_at",
}

func main() {
	var (
		out  = flag.String("out", "data/properties.csv", "output CSV path for listings")
		team = flag.String("team", "", "only export this team's listings")
	)
	flag.Parse()
	_ = utils.Load() // .env may set PROPERTYHUB_DB_PATH

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := database.MustOpenMigrated(database.DefaultConfig())
	defer db.Close()

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	n, err := exportListings(ctx, property.NewRepo(db), *team, f)
	if err != nil {
		log.Fatalf("export listings failed: %v", err)
	}
	log.Printf("[export] wrote %d listings to %s", n, *out)
}

// exportListings pages through the listings and writes them in the column
// layout import-csv reads back.
func exportListings(ctx context.Context, repo *property.Repo, team string, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	const page = 100
	written := 0
	for offset := 0; ; offset += page {
		items, total, err := repo.List(ctx, property.ListQuery{TeamID: team, Limit: page, Offset: offset})
		if err != nil {
			return written, err
		}
		for _, p := range items {
			if err := cw.Write(record(p)); err != nil {
				return written, err
			}
			written++
		}
		if len(items) < page || offset+page >= total {
			break
		}
	}

	cw.Flush()
	return written, cw.Error()
}

func record(p models.Property) []string {
	return []string{
		strconv.FormatInt(p.ID, 10),
		p.Code,
		formatID(p.TypeID),
		formatID(p.StatusID),
		formatID(p.SubdistrictID),
		p.TypeText,
		p.StatusText,
		p.ProvinceText,
		p.DistrictText,
		p.SubdistrictText,
		formatFloat(p.Size),
		formatFloat(p.Price),
		p.Description,
		normalize.EncodeTags(p.Features),
		normalize.EncodeTags(p.Labels),
		p.Titles.EN,
		p.Titles.TH,
		p.Titles.ZH,
		p.TeamID,
		p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

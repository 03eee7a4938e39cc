package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"propertyhub/pkg/models"
)

type propertyList struct {
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Items  []models.Property `json:"items"`
}

// listingFlags registers the writable listing fields on fs. Only flags the
// user actually set end up in the payload, so the same set serves create
// and the partial update.
func listingFlags(fs *flag.FlagSet) func() map[string]any {
	str := map[string]*string{
		"property_code":    fs.String("code", "", "property code (generated when empty)"),
		"type_text":        fs.String("type", "", "free text type"),
		"status_text":      fs.String("status", "", "free text status"),
		"province_text":    fs.String("province", "", "free text province"),
		"district_text":    fs.String("district", "", "free text district"),
		"subdistrict_text": fs.String("subdistrict", "", "free text subdistrict"),
		"description":      fs.String("description", "", "description"),
		"team_id":          fs.String("team", "", "team id (admins only)"),
	}
	ids := map[string]*int64{
		"type_id":        fs.Int64("type-id", 0, "property type id"),
		"status_id":      fs.Int64("status-id", 0, "property status id"),
		"subdistrict_id": fs.Int64("subdistrict-id", 0, "subdistrict location id"),
	}
	nums := map[string]*float64{
		"size":  fs.Float64("size", 0, "size in square meters"),
		"price": fs.Float64("price", 0, "price"),
	}
	lists := map[string]*string{
		"features": fs.String("features", "", "comma separated features"),
		"labels":   fs.String("labels", "", "comma separated labels"),
	}
	flagName := map[string]string{
		"property_code": "code", "type_text": "type", "status_text": "status", "province_text": "province",
		"district_text": "district", "subdistrict_text": "subdistrict", "description": "description", "team_id": "team",
		"type_id": "type-id", "status_id": "status-id", "subdistrict_id": "subdistrict-id",
		"size": "size", "price": "price", "features": "features", "labels": "labels",
	}

	return func() map[string]any {
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

		payload := map[string]any{}
		for k, v := range str {
			if set[flagName[k]] {
				payload[k] = *v
			}
		}
		for k, v := range ids {
			if set[flagName[k]] {
				payload[k] = *v
			}
		}
		for k, v := range nums {
			if set[flagName[k]] {
				payload[k] = *v
			}
		}
		for k, v := range lists {
			if set[flagName[k]] {
				payload[k] = splitList(*v)
			}
		}
		return payload
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func handleProperty(ctx context.Context, a *api, sub string, args []string) error {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("property list", flag.ExitOnError)
		q := fs.String("q", "", "keyword")
		typeID := fs.Int64("type-id", 0, "type id filter")
		statusID := fs.Int64("status-id", 0, "status id filter")
		province := fs.String("province", "", "province filter")
		minSize := fs.Float64("min-size", 0, "minimum size")
		maxSize := fs.Float64("max-size", 0, "maximum size")
		feature := fs.String("feature", "", "feature filter")
		mine := fs.Bool("mine", false, "list through the staff endpoint (team scoped)")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		qv := url.Values{}
		setIf := func(k, v string, ok bool) {
			if ok {
				qv.Set(k, v)
			}
		}
		setIf("q", *q, *q != "")
		setIf("type_id", strconv.FormatInt(*typeID, 10), *typeID > 0)
		setIf("status_id", strconv.FormatInt(*statusID, 10), *statusID > 0)
		setIf("province", *province, *province != "")
		setIf("min_size", strconv.FormatFloat(*minSize, 'f', -1, 64), *minSize > 0)
		setIf("max_size", strconv.FormatFloat(*maxSize, 'f', -1, 64), *maxSize > 0)
		setIf("feature", *feature, *feature != "")
		qv.Set("limit", strconv.Itoa(*limit))
		qv.Set("offset", strconv.Itoa(*offset))

		var resp propertyList
		var err error
		if *mine {
			err = a.call(ctx, http.MethodGet, "/staff/properties", qv, nil, &resp)
		} else {
			err = a.public(ctx, http.MethodGet, "/properties", qv, nil, &resp)
		}
		if err != nil {
			return fmt.Errorf("list failed: %w", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("property show", flag.ExitOnError)
		id := fs.Int64("id", 0, "listing id")
		code := fs.String("code", "", "property code")
		_ = fs.Parse(args)

		path := ""
		switch {
		case *code != "":
			path = "/properties/code/" + url.PathEscape(*code)
		case *id > 0:
			path = "/properties/" + strconv.FormatInt(*id, 10)
		default:
			return errors.New("-id or -code is required")
		}
		var resp models.Property
		if err := a.public(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
			return fmt.Errorf("show failed: %w", err)
		}
		printJSON(resp)
	case "create", "preview":
		fs := flag.NewFlagSet("property "+sub, flag.ExitOnError)
		payload := listingFlags(fs)
		_ = fs.Parse(args)

		path := "/staff/properties"
		if sub == "preview" {
			path = "/staff/properties/preview-title"
		}
		var resp map[string]any
		if err := a.call(ctx, http.MethodPost, path, nil, payload(), &resp); err != nil {
			return fmt.Errorf("%s failed: %w", sub, err)
		}
		printJSON(resp)
	case "update":
		fs := flag.NewFlagSet("property update", flag.ExitOnError)
		id := fs.Int64("id", 0, "listing id")
		payload := listingFlags(fs)
		_ = fs.Parse(args)
		if *id <= 0 {
			return errors.New("-id is required")
		}

		var resp map[string]any
		if err := a.call(ctx, http.MethodPatch, "/staff/properties/"+strconv.FormatInt(*id, 10), nil, payload(), &resp); err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
		printJSON(resp)
	case "delete":
		fs := flag.NewFlagSet("property delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "listing id")
		_ = fs.Parse(args)
		if *id <= 0 {
			return errors.New("-id is required")
		}
		if err := a.call(ctx, http.MethodDelete, "/staff/properties/"+strconv.FormatInt(*id, 10), nil, nil, nil); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Println("deleted")
	case "export":
		fs := flag.NewFlagSet("property export", flag.ExitOnError)
		out := fs.String("out", "data/properties.json", "output JSON path")
		limit := fs.Int("limit", 500, "max listings to export")
		_ = fs.Parse(args)

		items, err := fetchProperties(ctx, a, *limit)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		if err := writeJSON(*out, items); err != nil {
			return fmt.Errorf("write json failed: %w", err)
		}
		fmt.Printf("exported %d listings to %s\n", len(items), *out)
	default:
		return errors.New("usage: propertyhub property <list|show|create|update|delete|preview|export>")
	}
	return nil
}

func fetchProperties(ctx context.Context, a *api, limit int) ([]models.Property, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	var out []models.Property
	offset := 0
	for len(out) < limit {
		pageSize := 100
		if remaining := limit - len(out); remaining < pageSize {
			pageSize = remaining
		}
		qv := url.Values{}
		qv.Set("limit", strconv.Itoa(pageSize))
		qv.Set("offset", strconv.Itoa(offset))

		var resp propertyList
		if err := a.public(ctx, http.MethodGet, "/properties", qv, nil, &resp); err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			break
		}
		out = append(out, resp.Items...)
		offset += len(resp.Items)
		if offset >= resp.Total {
			break
		}
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func handleReference(ctx context.Context, a *api, sub string, args []string) error {
	var (
		path string
		qv   = url.Values{}
	)
	switch sub {
	case "types":
		path = "/reference/types"
	case "statuses":
		path = "/reference/statuses"
	case "locations":
		fs := flag.NewFlagSet("reference locations", flag.ExitOnError)
		level := fs.String("level", "province", "province, district or subdistrict")
		parent := fs.Int64("parent", 0, "parent location id")
		_ = fs.Parse(args)
		path = "/reference/locations"
		qv.Set("level", *level)
		if *parent > 0 {
			qv.Set("parent_id", strconv.FormatInt(*parent, 10))
		}
	case "ancestry":
		fs := flag.NewFlagSet("reference ancestry", flag.ExitOnError)
		id := fs.Int64("id", 0, "location id")
		_ = fs.Parse(args)
		if *id <= 0 {
			return errors.New("-id is required")
		}
		path = "/reference/locations/" + strconv.FormatInt(*id, 10) + "/ancestry"
	default:
		return errors.New("usage: propertyhub reference <types|statuses|locations|ancestry>")
	}

	var resp any
	if err := a.public(ctx, http.MethodGet, path, qv, nil, &resp); err != nil {
		return err
	}
	printJSON(resp)
	return nil
}

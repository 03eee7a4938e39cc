package titles

import (
	"context"
	"fmt"
	"strings"

	"propertyhub/pkg/models"
)

// CategoryTable resolves type and status ids. Unknown or nil ids yield an
// empty record and no error; only storage failures are returned.
type CategoryTable interface {
	Get(ctx context.Context, id *int64) (models.NameRecord, error)
}

// LocationTable resolves a location leaf to the names along its path to the root.
type LocationTable interface {
	Ancestry(ctx context.Context, leafID *int64) (models.Ancestry, error)
}

// Input is what the listing handlers know about a listing. Ids win over the
// legacy text fields, which only fill levels the ids leave empty.
type Input struct {
	TypeID        *int64
	StatusID      *int64
	SubdistrictID *int64
	Size          *float64
	PropertyID    string

	TypeText        string
	StatusText      string
	ProvinceText    string
	DistrictText    string
	SubdistrictText string
}

// NameLookup finds the reference record a piece of legacy text names, so a
// listing without ids still gets translated fragments. Text it cannot place
// is used as is in every language.
type NameLookup interface {
	TypeName(text string) (models.NameRecord, bool)
	StatusName(text string) (models.NameRecord, bool)
	LocationName(level models.Level, text string) (models.NameRecord, bool)
}

type Generator struct {
	Types     CategoryTable
	Statuses  CategoryTable
	Locations LocationTable
	Names     NameLookup // optional
}

func NewGenerator(types, statuses CategoryTable, locations LocationTable) *Generator {
	return &Generator{Types: types, Statuses: statuses, Locations: locations}
}

// Resolve looks up every name a title needs and applies the factory rule.
func (g *Generator) Resolve(ctx context.Context, in Input) (Resolved, error) {
	typ, err := g.Types.Get(ctx, in.TypeID)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve type: %w", err)
	}
	if typ.IsZero() {
		typ = g.fromText(in.TypeText, g.typeName)
	}
	typ = ApplyFactoryRule(typ, in.TypeText)

	status, err := g.Statuses.Get(ctx, in.StatusID)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve status: %w", err)
	}
	if status.IsZero() {
		status = g.fromText(in.StatusText, g.statusName)
	}

	anc, err := g.Locations.Ancestry(ctx, in.SubdistrictID)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve location: %w", err)
	}
	loc := make(models.Ancestry, 3)
	for level, name := range anc {
		loc[level] = name
	}
	for level, text := range map[models.Level]string{
		models.LevelSubdistrict: in.SubdistrictText,
		models.LevelDistrict:    in.DistrictText,
		models.LevelProvince:    in.ProvinceText,
	} {
		if loc[level].IsZero() {
			lookup := func(t string) (models.NameRecord, bool) { return g.locationName(level, t) }
			if fb := g.fromText(text, lookup); !fb.IsZero() {
				loc[level] = fb
			}
		}
	}

	var size float64
	if in.Size != nil {
		size = *in.Size
	}

	return Resolved{
		Type:       typ,
		Status:     status,
		Location:   loc,
		Size:       size,
		PropertyID: strings.TrimSpace(in.PropertyID),
	}, nil
}

func (g *Generator) Generate(ctx context.Context, in Input) (models.Titles, error) {
	r, err := g.Resolve(ctx, in)
	if err != nil {
		return models.Titles{}, err
	}
	return ComposeAll(r), nil
}

func (g *Generator) typeName(text string) (models.NameRecord, bool) {
	if g.Names == nil {
		return models.NameRecord{}, false
	}
	return g.Names.TypeName(text)
}

func (g *Generator) statusName(text string) (models.NameRecord, bool) {
	if g.Names == nil {
		return models.NameRecord{}, false
	}
	return g.Names.StatusName(text)
}

func (g *Generator) locationName(level models.Level, text string) (models.NameRecord, bool) {
	if g.Names == nil {
		return models.NameRecord{}, false
	}
	return g.Names.LocationName(level, text)
}

// fromText resolves legacy text through lookup, falling back to the text itself.
func (g *Generator) fromText(text string, lookup func(string) (models.NameRecord, bool)) models.NameRecord {
	if strings.TrimSpace(text) == "" {
		return models.NameRecord{}
	}
	if rec, ok := lookup(text); ok && !rec.IsZero() {
		return rec
	}
	return fallback(text)
}

func fallback(text string) models.NameRecord {
	return models.Uniform(strings.TrimSpace(text))
}

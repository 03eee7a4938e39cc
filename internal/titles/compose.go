package titles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"propertyhub/pkg/models"
)

type Language string

const (
	English Language = "en"
	Thai    Language = "th"
	Chinese Language = "zh"
)

var Languages = []Language{English, Thai, Chinese}

// Fragments are the already resolved, single-language pieces of one title.
type Fragments struct {
	Type        string
	Status      string
	Subdistrict string
	District    string
	Province    string
	Size        float64
	PropertyID  string
}

type grammar struct {
	sizeUnit       string
	statusPrefix   string
	locationPrefix string
	idFormat       string
}

var grammars = map[Language]grammar{
	English: {sizeUnit: "sqm", statusPrefix: "for ", locationPrefix: "at ", idFormat: "(Property ID: %s)"},
	Thai:    {sizeUnit: "ตร.ม.", locationPrefix: "ที่ ", idFormat: "(รหัส: %s)"},
	Chinese: {sizeUnit: "平方米", idFormat: "(ID: %s)"},
}

// Compose builds the title for one language in the order type, size, status,
// location, id. An empty fragment drops out together with its connector word.
// Unknown languages use the English grammar.
func Compose(lang Language, f Fragments) string {
	g, ok := grammars[lang]
	if !ok {
		g = grammars[English]
	}

	parts := make([]string, 0, 5)
	if s := strings.TrimSpace(f.Type); s != "" {
		parts = append(parts, s)
	}
	if s := formatSize(f.Size); s != "" {
		parts = append(parts, s+" "+g.sizeUnit)
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		parts = append(parts, g.statusPrefix+s)
	}
	if s := joinLocation(f.Subdistrict, f.District, f.Province); s != "" {
		parts = append(parts, g.locationPrefix+s)
	}
	if s := strings.TrimSpace(f.PropertyID); s != "" {
		parts = append(parts, fmt.Sprintf(g.idFormat, s))
	}
	return strings.Join(parts, " ")
}

// Resolved carries rule-adjusted names in all languages for one listing.
type Resolved struct {
	Type       models.NameRecord
	Status     models.NameRecord
	Location   models.Ancestry
	Size       float64
	PropertyID string
}

func ComposeAll(r Resolved) models.Titles {
	return models.Titles{
		EN: Compose(English, r.fragments(English)),
		TH: Compose(Thai, r.fragments(Thai)),
		ZH: Compose(Chinese, r.fragments(Chinese)),
	}
}

func (r Resolved) fragments(lang Language) Fragments {
	return Fragments{
		Type:        pick(r.Type, lang),
		Status:      pick(r.Status, lang),
		Subdistrict: pick(r.Location[models.LevelSubdistrict], lang),
		District:    pick(r.Location[models.LevelDistrict], lang),
		Province:    pick(r.Location[models.LevelProvince], lang),
		Size:        r.Size,
		PropertyID:  r.PropertyID,
	}
}

func pick(n models.NameRecord, lang Language) string {
	switch lang {
	case Thai:
		return n.TH
	case Chinese:
		return n.ZH
	default:
		return n.EN
	}
}

// formatSize renders positive finite sizes in their shortest decimal form.
func formatSize(size float64) string {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return ""
	}
	return strconv.FormatFloat(size, 'f', -1, 64)
}

// joinLocation lists the location most specific first.
func joinLocation(subdistrict, district, province string) string {
	out := make([]string, 0, 3)
	for _, s := range []string{subdistrict, district, province} {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}

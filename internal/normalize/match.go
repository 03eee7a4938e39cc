package normalize

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/mozillazg/go-unidecode"

	"propertyhub/internal/reference"
	"propertyhub/internal/titles"
	"propertyhub/pkg/models"
)

// matchKey folds a name for comparison: transliterated to ASCII, lower case,
// letters and digits only, so "Chon Buri", "Chonburi" and "CHON-BURI" agree.
func matchKey(s string) string {
	s = unidecode.Unidecode(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Matcher maps legacy free text onto reference ids.
type Matcher struct {
	snap     *reference.Snapshot
	types    map[string]int64
	statuses map[string]int64
	factory  int64
}

func NewMatcher(snap *reference.Snapshot) *Matcher {
	m := &Matcher{
		snap:     snap,
		types:    indexCategories(snap.Types),
		statuses: indexCategories(snap.Statuses),
	}
	for _, id := range sortedIDs(snap.Types) {
		if strings.EqualFold(strings.TrimSpace(snap.Types[id].EN), "factory") {
			m.factory = id
			break
		}
	}
	return m
}

func sortedIDs(c reference.Categories) []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// indexCategories keys every language name; on collisions the lowest id wins.
func indexCategories(c reference.Categories) map[string]int64 {
	idx := make(map[string]int64, len(c)*3)
	for _, id := range sortedIDs(c) {
		n := c[id]
		for _, name := range []string{n.EN, n.TH, n.ZH} {
			k := matchKey(name)
			if k == "" {
				continue
			}
			if _, taken := idx[k]; !taken {
				idx[k] = id
			}
		}
	}
	return idx
}

func matchCategory(idx map[string]int64, text string) (int64, bool) {
	if id, ok := idx[matchKey(text)]; ok && strings.TrimSpace(text) != "" {
		return id, true
	}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return r == '|' || r == ',' || r == '/' }) {
		if id, ok := idx[matchKey(tok)]; ok && strings.TrimSpace(tok) != "" {
			return id, true
		}
	}
	return 0, false
}

// MatchType resolves a type name. Combined factory and warehouse text
// collapses to the canonical Factory type before token matching.
func (m *Matcher) MatchType(text string) (int64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	if id, ok := m.types[matchKey(text)]; ok {
		return id, true
	}
	if m.factory != 0 && titles.FactoryRuleApplies("", text) {
		return m.factory, true
	}
	return matchCategory(m.types, text)
}

func (m *Matcher) MatchStatus(text string) (int64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	return matchCategory(m.statuses, text)
}

func (m *Matcher) findLocation(level models.Level, parentID *int64, text string) (*models.Location, bool) {
	k := matchKey(text)
	if k == "" {
		return nil, false
	}
	kids := m.snap.Locations.Children(level, parentID)
	sort.Slice(kids, func(i, j int) bool { return kids[i].ID < kids[j].ID })
	for _, loc := range kids {
		for _, name := range []string{loc.Name.EN, loc.Name.TH, loc.Name.ZH} {
			if matchKey(name) == k {
				loc := loc
				return &loc, true
			}
		}
	}
	return nil, false
}

// MatchSubdistrict resolves the province, district, subdistrict text chain.
// Only a complete chain identifies a subdistrict.
func (m *Matcher) MatchSubdistrict(province, district, subdistrict string) (int64, bool) {
	p, ok := m.findLocation(models.LevelProvince, nil, province)
	if !ok {
		return 0, false
	}
	d, ok := m.findLocation(models.LevelDistrict, &p.ID, district)
	if !ok {
		return 0, false
	}
	s, ok := m.findLocation(models.LevelSubdistrict, &d.ID, subdistrict)
	if !ok {
		return 0, false
	}
	return s.ID, true
}

// TypeName returns the reference names a type text resolves to.
func (m *Matcher) TypeName(text string) (models.NameRecord, bool) {
	id, ok := m.MatchType(text)
	if !ok {
		return models.NameRecord{}, false
	}
	return m.snap.Types[id], true
}

func (m *Matcher) StatusName(text string) (models.NameRecord, bool) {
	id, ok := m.MatchStatus(text)
	if !ok {
		return models.NameRecord{}, false
	}
	return m.snap.Statuses[id], true
}

// LocationName places a single location text at level without its parents.
// It answers only when every location the text matches carries the same
// names, so a district name shared by two provinces stays unresolved.
func (m *Matcher) LocationName(level models.Level, text string) (models.NameRecord, bool) {
	k := matchKey(text)
	if k == "" {
		return models.NameRecord{}, false
	}
	var (
		found models.NameRecord
		hit   bool
	)
	for _, loc := range m.snap.Locations {
		if loc.Level != level {
			continue
		}
		for _, name := range []string{loc.Name.EN, loc.Name.TH, loc.Name.ZH} {
			if matchKey(name) != k {
				continue
			}
			if hit && found != loc.Name {
				return models.NameRecord{}, false
			}
			found, hit = loc.Name, true
			break
		}
	}
	return found, hit
}

// LiveMatcher serves name lookups from the latest reference snapshot. Until
// the first successful Reload it resolves nothing.
type LiveMatcher struct {
	repo *reference.Repo
	cur  atomic.Pointer[Matcher]
}

func NewLiveMatcher(repo *reference.Repo) *LiveMatcher {
	return &LiveMatcher{repo: repo}
}

// Reload swaps in a matcher built from the reference tables as they are now.
func (l *LiveMatcher) Reload(ctx context.Context) error {
	snap, err := reference.LoadSnapshot(ctx, l.repo)
	if err != nil {
		return err
	}
	l.cur.Store(NewMatcher(snap))
	return nil
}

func (l *LiveMatcher) TypeName(text string) (models.NameRecord, bool) {
	if m := l.cur.Load(); m != nil {
		return m.TypeName(text)
	}
	return models.NameRecord{}, false
}

func (l *LiveMatcher) StatusName(text string) (models.NameRecord, bool) {
	if m := l.cur.Load(); m != nil {
		return m.StatusName(text)
	}
	return models.NameRecord{}, false
}

func (l *LiveMatcher) LocationName(level models.Level, text string) (models.NameRecord, bool) {
	if m := l.cur.Load(); m != nil {
		return m.LocationName(level, text)
	}
	return models.NameRecord{}, false
}

package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DefaultSentinels are placeholder codes a previous system wrote into tag lists.
var DefaultSentinels = []string{"1", "99", "0"}

// Classifier turns any stored tag list into its canonical JSON form.
type Classifier struct {
	Strategies []Strategy
	Sentinels  map[string]bool
}

func NewClassifier() *Classifier {
	return &Classifier{
		Strategies: DefaultStrategies(),
		Sentinels:  sentinelSet(DefaultSentinels),
	}
}

func sentinelSet(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// Outcome describes one classified value. Strategy is empty when no
// strategy recognized the value; such values are never rewritten.
type Outcome struct {
	Strategy  string   `json:"strategy,omitempty"`
	Values    []string `json:"values"`
	Canonical string   `json:"canonical"`
	Changed   bool     `json:"changed"`
}

func (o Outcome) Matched() bool {
	return o.Strategy != ""
}

func (c *Classifier) Classify(raw string) Outcome {
	for _, s := range c.Strategies {
		res := s.Parse(raw)
		if !res.Matched {
			continue
		}
		values := c.clean(res.Values)
		canonical := EncodeTags(values)
		return Outcome{
			Strategy:  s.Name,
			Values:    values,
			Canonical: canonical,
			Changed:   canonical != raw && !sameStringArray(raw, values),
		}
	}
	return Outcome{Canonical: raw}
}

// Clean applies the value rules without any format detection. It is used at
// the write boundary where input already arrives as a list.
func (c *Classifier) Clean(values []string) []string {
	return c.clean(values)
}

// clean strips quote characters and whitespace, then drops empty values,
// sentinels and repeats while keeping the first occurrence order.
func (c *Classifier) clean(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(strings.ReplaceAll(v, `"`, ""))
		if v == "" || c.Sentinels[v] || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// sameStringArray reports whether raw already is a JSON array of exactly these
// strings, in which case formatting differences alone are not worth a write.
func sameStringArray(raw string, values []string) bool {
	if !strings.HasPrefix(strings.TrimSpace(raw), "[") {
		return false
	}
	var stored []string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return false
	}
	if len(stored) != len(values) {
		return false
	}
	for i := range stored {
		if stored[i] != values[i] {
			return false
		}
	}
	return true
}

// EncodeTags is the only way tag lists are serialized for storage.
func EncodeTags(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(values); err != nil {
		return "[]"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// DecodeTags reads a stored tag list. Anything that is not a JSON array of
// strings reads as empty; repairing it is the batch normalizer's job.
func DecodeTags(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

var defaultClassifier = NewClassifier()

// CleanTags prepares user supplied tags for EncodeTags.
func CleanTags(values []string) []string {
	return defaultClassifier.Clean(values)
}

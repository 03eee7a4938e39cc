package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Result is what one parsing strategy makes of a raw column value.
type Result struct {
	Matched bool
	Values  []string
}

// Strategy recognizes one stored shape of a tag list.
type Strategy struct {
	Name  string
	Parse func(raw string) Result
}

// DefaultStrategies returns the parsers in the order they are tried.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "empty", Parse: parseEmpty},
		{Name: "json-array", Parse: parseJSONArray},
		{Name: "legacy-map", Parse: parseLegacyMap},
		{Name: "delimited", Parse: parseDelimited},
		{Name: "bare-token", Parse: parseBareToken},
	}
}

// parseEmpty also accepts blank text and the literals old clients wrote for
// a missing list.
func parseEmpty(raw string) Result {
	switch strings.TrimSpace(raw) {
	case "", "null", "undefined":
		return Result{Matched: true}
	}
	return Result{}
}

func parseJSONArray(raw string) Result {
	values, ok := decodeJSONArray(strings.TrimSpace(raw), 0)
	if !ok {
		return Result{}
	}
	return Result{Matched: true, Values: values}
}

// maxNesting bounds how many times a double encoded array is unwrapped.
const maxNesting = 2

func decodeJSONArray(s string, depth int) ([]string, bool) {
	if depth > maxNesting {
		return nil, false
	}

	// "[\"a\"]" stored as a JSON string
	if strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return nil, false
		}
		return decodeJSONArray(strings.TrimSpace(inner), depth+1)
	}
	if !strings.HasPrefix(s, "[") {
		return nil, false
	}

	var items []any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, false
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case nil:
		case string:
			if t := strings.TrimSpace(v); strings.HasPrefix(t, "[") {
				if nested, ok := decodeJSONArray(t, depth+1); ok {
					out = append(out, nested...)
					continue
				}
			}
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			// objects and booleans need a human to look at them
			return nil, false
		}
	}
	return out, true
}

// parseLegacyMap reads the brace list format, e.g. {"Free-trade zone",Parking}.
func parseLegacyMap(raw string) Result {
	s := strings.TrimSpace(raw)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return Result{}
	}

	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
	)
	for _, r := range s[1 : len(s)-1] {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			tokens = append(tokens, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return Result{}
	}
	tokens = append(tokens, cur.String())

	stripBraces := strings.NewReplacer("{", "", "}", "")
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok = strings.TrimSpace(stripBraces.Replace(tok)); tok != "" {
			out = append(out, tok)
		}
	}
	return Result{Matched: true, Values: out}
}

func isDelimiter(r rune) bool {
	return r == '|' || r == ','
}

func hasStructure(s string) bool {
	return strings.ContainsAny(s, "[]{}")
}

func parseDelimited(raw string) Result {
	s := strings.TrimSpace(raw)
	if s == "" || hasStructure(s) || !strings.ContainsAny(s, "|,") {
		return Result{}
	}

	parts := strings.FieldsFunc(s, isDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return Result{Matched: true, Values: out}
}

func parseBareToken(raw string) Result {
	s := strings.TrimSpace(raw)
	if s == "" || hasStructure(s) || strings.ContainsAny(s, "|,") {
		return Result{}
	}
	return Result{Matched: true, Values: []string{s}}
}

package normalize

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name     string
		raw      string
		strategy string
		want     string
		changed  bool
	}{
		{"empty string", "", "empty", `[]`, true},
		{"null literal", "null", "empty", `[]`, true},
		{"clean array", `["Parking","Free-trade zone"]`, "json-array", `["Parking","Free-trade zone"]`, false},
		{"clean array with spaces", `["Parking", "Office"]`, "json-array", `["Parking","Office"]`, false},
		{"empty array", `[]`, "json-array", `[]`, false},
		{"sentinels", `["Parking", "99", "1"]`, "json-array", `["Parking"]`, true},
		{"only sentinels", `["0","99"]`, "json-array", `[]`, true},
		{"numeric sentinels", `[1, "Parking", 99]`, "json-array", `["Parking"]`, true},
		{"embedded quotes", `["\"Parking\"", " Office "]`, "json-array", `["Parking","Office"]`, true},
		{"double encoded", `"[\"Parking\",\"Office\"]"`, "json-array", `["Parking","Office"]`, true},
		{"nested array string", `["[\"Parking\"]", "Office"]`, "json-array", `["Parking","Office"]`, true},
		{"duplicates", `["Parking","Parking"]`, "json-array", `["Parking"]`, true},
		{"legacy map", `{"Free-trade zone",Parking,"Office, 2 floors"}`, "legacy-map", `["Free-trade zone","Parking","Office, 2 floors"]`, true},
		{"legacy map empty", `{}`, "legacy-map", `[]`, true},
		{"legacy map empty tokens", `{Parking,,""}`, "legacy-map", `["Parking"]`, true},
		{"pipes", `Parking|Office | Security`, "delimited", `["Parking","Office","Security"]`, true},
		{"commas", `Parking, Office,`, "delimited", `["Parking","Office"]`, true},
		{"bare token", `Parking`, "bare-token", `["Parking"]`, true},
		{"thai token", `ที่จอดรถ`, "bare-token", `["ที่จอดรถ"]`, true},
		{"html characters kept", `["R&D <lab>"]`, "json-array", `["R&D <lab>"]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.raw)
			if got.Strategy != tt.strategy {
				t.Fatalf("strategy = %q, want %q", got.Strategy, tt.strategy)
			}
			if got.Canonical != tt.want {
				t.Fatalf("canonical = %s, want %s", got.Canonical, tt.want)
			}
			if got.Changed != tt.changed {
				t.Fatalf("changed = %v, want %v", got.Changed, tt.changed)
			}
		})
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	c := NewClassifier()

	for _, raw := range []string{
		`["Parking", "Office"`,
		`[{"name":"Parking"}]`,
		`[true]`,
		`{"Parking`,
		`Parking]`,
	} {
		got := c.Classify(raw)
		if got.Matched() {
			t.Errorf("Classify(%q) matched %q, want unrecognized", raw, got.Strategy)
		}
		if got.Changed || got.Canonical != raw {
			t.Errorf("Classify(%q) would rewrite an unrecognized value", raw)
		}
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := NewClassifier()

	for _, raw := range []string{"", `["Parking", "99", "1"]`, `{a,"b"}`, "a|b", "x", `"[\"y\"]"`} {
		first := c.Classify(raw)
		second := c.Classify(first.Canonical)
		if second.Changed {
			t.Errorf("second pass over %q changed %s to %s", raw, first.Canonical, second.Canonical)
		}
		if !reflect.DeepEqual(first.Values, second.Values) {
			t.Errorf("values drifted for %q: %v then %v", raw, first.Values, second.Values)
		}
	}
}

func TestStrategyOrder(t *testing.T) {
	var names []string
	for _, s := range DefaultStrategies() {
		names = append(names, s.Name)
	}
	want := []string{"empty", "json-array", "legacy-map", "delimited", "bare-token"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("strategies = %v, want %v", names, want)
	}
}

func TestEncodeDecodeTags(t *testing.T) {
	if got := EncodeTags(nil); got != "[]" {
		t.Fatalf("EncodeTags(nil) = %s", got)
	}
	if got := DecodeTags("Parking|Office"); len(got) != 0 {
		t.Fatalf("DecodeTags of legacy text = %v, want empty", got)
	}
	if got := DecodeTags(`["a","b"]`); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("DecodeTags = %v", got)
	}
	if got := CleanTags([]string{" Parking ", "99", "", "Parking", `"Office"`}); !reflect.DeepEqual(got, []string{"Parking", "Office"}) {
		t.Fatalf("CleanTags = %v", got)
	}
}

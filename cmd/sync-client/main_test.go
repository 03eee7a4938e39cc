package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestTailFiltersByType(t *testing.T) {
	in := strings.Join([]string{
		`{"type":"welcome","at":"2024-01-01T00:00:00Z"}`,
		`{"type":"property.created","at":"2024-01-01T00:00:01Z","data":{"id":1}}`,
		`{"type":"contact.new","at":"2024-01-01T00:00:02Z","data":{"id":9}}`,
		`not json`,
	}, "\n")

	var out bytes.Buffer
	err := tail(strings.NewReader(in), false, "property.", &out)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("tail err = %v, want EOF", err)
	}

	got := out.String()
	if !strings.Contains(got, `"property.created"`) || !strings.Contains(got, "not json") {
		t.Fatalf("missing lines in %q", got)
	}
	if strings.Contains(got, "contact.new") || strings.Contains(got, "welcome") {
		t.Fatalf("filtered events printed: %q", got)
	}
}

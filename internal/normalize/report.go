package normalize

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Entry is a row a pass could not handle and left for manual review.
type Entry struct {
	ID     int64  `json:"id"`
	Column string `json:"column"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// Change records one rewritten value.
type Change struct {
	ID     int64  `json:"id"`
	Column string `json:"column"`
	Before string `json:"before"`
	After  string `json:"after"`
}

type Report struct {
	Pass         string         `json:"pass"`
	DryRun       bool           `json:"dry_run"`
	StartedAt    time.Time      `json:"started_at"`
	Scanned      int            `json:"scanned"`
	Changed      int            `json:"changed"`
	ByStrategy   map[string]int `json:"by_strategy,omitempty"`
	Changes      []Change       `json:"changes,omitempty"`
	Unrecognized []Entry        `json:"unrecognized,omitempty"`
}

func newReport(pass string, dryRun bool) *Report {
	return &Report{
		Pass:       pass,
		DryRun:     dryRun,
		StartedAt:  time.Now().UTC(),
		ByStrategy: make(map[string]int),
	}
}

func (r *Report) String() string {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	return fmt.Sprintf("%s%s: scanned=%d changed=%d unrecognized=%d", r.Pass, mode, r.Scanned, r.Changed, len(r.Unrecognized))
}

// WriteReports saves the reports of one run as indented JSON.
func WriteReports(path string, reports []*Report) error {
	b, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

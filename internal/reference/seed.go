package reference

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"propertyhub/pkg/models"
)

type SeedName struct {
	EN string `yaml:"en"`
	TH string `yaml:"th"`
	ZH string `yaml:"zh"`
}

func (n SeedName) record() models.NameRecord {
	return models.NameRecord{
		EN: strings.TrimSpace(n.EN),
		TH: strings.TrimSpace(n.TH),
		ZH: strings.TrimSpace(n.ZH),
	}
}

type SeedDistrict struct {
	SeedName     `yaml:",inline"`
	Subdistricts []SeedName `yaml:"subdistricts"`
}

type SeedProvince struct {
	SeedName  `yaml:",inline"`
	Districts []SeedDistrict `yaml:"districts"`
}

// Seed is the YAML document that populates the reference tables.
type Seed struct {
	Types     []SeedName     `yaml:"types"`
	Statuses  []SeedName     `yaml:"statuses"`
	Provinces []SeedProvince `yaml:"provinces"`
}

type SeedStats struct {
	Types        int `json:"types"`
	Statuses     int `json:"statuses"`
	Provinces    int `json:"provinces"`
	Districts    int `json:"districts"`
	Subdistricts int `json:"subdistricts"`
}

func ParseSeed(b []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Seed) validate() error {
	check := func(kind string, n SeedName) error {
		if strings.TrimSpace(n.EN) == "" {
			return fmt.Errorf("seed: %s without english name", kind)
		}
		return nil
	}
	for _, n := range s.Types {
		if err := check("type", n); err != nil {
			return err
		}
	}
	for _, n := range s.Statuses {
		if err := check("status", n); err != nil {
			return err
		}
	}
	for _, p := range s.Provinces {
		if err := check("province", p.SeedName); err != nil {
			return err
		}
		for _, d := range p.Districts {
			if err := check("district", d.SeedName); err != nil {
				return err
			}
			for _, sd := range d.Subdistricts {
				if err := check("subdistrict", sd); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ApplySeed upserts the whole document in one transaction. Running it again
// with the same document changes nothing.
func (r *Repo) ApplySeed(ctx context.Context, s *Seed) (SeedStats, error) {
	var stats SeedStats

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	types := CategoryTable{db: tx, table: typesTable}
	for _, n := range s.Types {
		if _, err := types.Upsert(ctx, n.record()); err != nil {
			return stats, err
		}
		stats.Types++
	}

	statuses := CategoryTable{db: tx, table: statusesTable}
	for _, n := range s.Statuses {
		if _, err := statuses.Upsert(ctx, n.record()); err != nil {
			return stats, err
		}
		stats.Statuses++
	}

	locs := LocationTable{db: tx}
	for _, p := range s.Provinces {
		pid, err := locs.Upsert(ctx, models.Location{Level: models.LevelProvince, Name: p.record()})
		if err != nil {
			return stats, err
		}
		stats.Provinces++

		for _, d := range p.Districts {
			did, err := locs.Upsert(ctx, models.Location{Level: models.LevelDistrict, Name: d.record(), ParentID: &pid})
			if err != nil {
				return stats, err
			}
			stats.Districts++

			for _, sd := range d.Subdistricts {
				if _, err := locs.Upsert(ctx, models.Location{Level: models.LevelSubdistrict, Name: sd.record(), ParentID: &did}); err != nil {
					return stats, err
				}
				stats.Subdistricts++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit seed: %w", err)
	}
	return stats, nil
}

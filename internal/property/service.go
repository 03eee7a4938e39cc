package property

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"propertyhub/internal/normalize"
	"propertyhub/internal/titles"
	"propertyhub/pkg/models"
)

// ValidationError is returned for input the caller can fix.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// LocationGetter is the slice of the location table the service validates against.
type LocationGetter interface {
	Get(ctx context.Context, id int64) (*models.Location, error)
}

// Service owns the write path of listings: tag canonicalisation, code
// assignment and title generation.
type Service struct {
	Repo      *Repo
	Titles    *titles.Generator
	Locations LocationGetter
}

func NewService(repo *Repo, gen *titles.Generator, locations LocationGetter) *Service {
	return &Service{Repo: repo, Titles: gen, Locations: locations}
}

// GenerateCode builds the external code for a listing without one:
// "AT" + id + R (rent), S (sale) or SR (both), derived from the status name.
func GenerateCode(id int64, statusEN string) string {
	s := strings.ToLower(statusEN)
	suffix := ""
	if strings.Contains(s, "sale") || strings.Contains(s, "sell") {
		suffix += "S"
	}
	if strings.Contains(s, "rent") || strings.Contains(s, "lease") {
		suffix += "R"
	}
	return "AT" + strconv.FormatInt(id, 10) + suffix
}

func titleInput(p *models.Property) titles.Input {
	return titles.Input{
		TypeID:          p.TypeID,
		StatusID:        p.StatusID,
		SubdistrictID:   p.SubdistrictID,
		Size:            p.Size,
		PropertyID:      p.Code,
		TypeText:        p.TypeText,
		StatusText:      p.StatusText,
		ProvinceText:    p.ProvinceText,
		DistrictText:    p.DistrictText,
		SubdistrictText: p.SubdistrictText,
	}
}

func (s *Service) validate(ctx context.Context, p *models.Property) error {
	p.Code = strings.TrimSpace(p.Code)
	p.TypeText = strings.TrimSpace(p.TypeText)
	p.StatusText = strings.TrimSpace(p.StatusText)
	p.ProvinceText = strings.TrimSpace(p.ProvinceText)
	p.DistrictText = strings.TrimSpace(p.DistrictText)
	p.SubdistrictText = strings.TrimSpace(p.SubdistrictText)

	if len(p.Code) > 32 {
		return ValidationError("property_code must be at most 32 chars")
	}
	if p.Size != nil && (*p.Size < 0 || math.IsNaN(*p.Size) || math.IsInf(*p.Size, 0)) {
		return ValidationError("size must be a non-negative number")
	}
	if p.Price != nil && (*p.Price < 0 || math.IsNaN(*p.Price) || math.IsInf(*p.Price, 0)) {
		return ValidationError("price must be a non-negative number")
	}
	if p.SubdistrictID != nil && s.Locations != nil {
		loc, err := s.Locations.Get(ctx, *p.SubdistrictID)
		if err != nil {
			return fmt.Errorf("check subdistrict: %w", err)
		}
		if loc == nil {
			return ErrUnknownReference
		}
		if loc.Level != models.LevelSubdistrict {
			return ValidationError("subdistrict_id must reference a subdistrict")
		}
	}

	p.Features = normalize.CleanTags(p.Features)
	p.Labels = normalize.CleanTags(p.Labels)
	return nil
}

// Create stores p, assigning a code when it has none, and fills in its titles.
func (s *Service) Create(ctx context.Context, p *models.Property) error {
	if err := s.validate(ctx, p); err != nil {
		return err
	}

	resolved, err := s.Titles.Resolve(ctx, titleInput(p))
	if err != nil {
		return fmt.Errorf("resolve titles: %w", err)
	}

	return s.Repo.Create(ctx, p, func(p *models.Property) error {
		if p.Code == "" {
			p.Code = GenerateCode(p.ID, resolved.Status.EN)
		}
		resolved.PropertyID = p.Code
		p.Titles = titles.ComposeAll(resolved)
		return nil
	})
}

// Update stores the full state of p. Titles are always regenerated.
func (s *Service) Update(ctx context.Context, p *models.Property) error {
	if err := s.validate(ctx, p); err != nil {
		return err
	}

	resolved, err := s.Titles.Resolve(ctx, titleInput(p))
	if err != nil {
		return fmt.Errorf("resolve titles: %w", err)
	}
	if p.Code == "" {
		p.Code = GenerateCode(p.ID, resolved.Status.EN)
		resolved.PropertyID = p.Code
	}
	p.Titles = titles.ComposeAll(resolved)

	return s.Repo.Update(ctx, p)
}

// Preview renders the titles p would get without storing anything.
func (s *Service) Preview(ctx context.Context, p *models.Property) (models.Titles, error) {
	if err := s.validate(ctx, p); err != nil {
		return models.Titles{}, err
	}
	return s.Titles.Generate(ctx, titleInput(p))
}

// Package seed loads reference data into a fresh installation.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"docuflow/internal/institutions"
	"docuflow/internal/members"
	"docuflow/internal/shared/telemetry"
	"docuflow/internal/systemconfig"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the YAML document accepted by Seeder.
type Fixtures struct {
	SystemConfig *SystemConfig `yaml:"systemConfig"`
	Institutions []Institution `yaml:"institutions"`
	Members      []Member      `yaml:"members"`
}

type SystemConfig struct {
	AppName            string `yaml:"appName"`
	LogoURL            string `yaml:"logoUrl"`
	PrimaryColor       string `yaml:"primaryColor"`
	SecondaryColor     string `yaml:"secondaryColor"`
	PrimaryTextColor   string `yaml:"primaryTextColor"`
	SecondaryTextColor string `yaml:"secondaryTextColor"`
	BorderRadius       string `yaml:"borderRadius"`
	DefaultLocale      string `yaml:"defaultLocale"`
}

type Institution struct {
	Name    string  `yaml:"name"`
	CUIT    string  `yaml:"cuit"`
	Address *string `yaml:"address"`
	Phone   *string `yaml:"phone"`
	Email   *string `yaml:"email"`
	Website *string `yaml:"website"`
}

type Member struct {
	DNI             string  `yaml:"dni"`
	FirstName       string  `yaml:"firstName"`
	LastName        string  `yaml:"lastName"`
	Email           *string `yaml:"email"`
	Phone           *string `yaml:"phone"`
	Address         *string `yaml:"address"`
	Status          *string `yaml:"status"`
	JoinedAt        *string `yaml:"joinedAt"`
	InstitutionCUIT string  `yaml:"institutionCuit"`
}

// Report counts what a run changed.
type Report struct {
	InstitutionsCreated int
	InstitutionsUpdated int
	MembersCreated      int
	MembersUpdated      int
	SystemConfig        bool
}

// Default returns the fixtures compiled into the binary.
func Default() (Fixtures, error) {
	return Parse(defaultFixtures)
}

// Parse decodes a fixtures document.
func Parse(data []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	return f, nil
}

// Seeder upserts fixtures through the domain services, so every row passes
// the same validation as an API write.
type Seeder struct {
	Institutions *institutions.Service
	Members      *members.Service
	SystemConfig *systemconfig.Service
}

// Run applies f. Institutions are matched by CUIT and members by DNI, so
// running it twice leaves the data unchanged.
func (s *Seeder) Run(ctx context.Context, f Fixtures) (Report, error) {
	var rep Report
	if f.SystemConfig != nil && s.SystemConfig != nil {
		if _, err := s.SystemConfig.Update(ctx, systemconfig.Input(*f.SystemConfig)); err != nil {
			return rep, fmt.Errorf("system config: %w", err)
		}
		rep.SystemConfig = true
	}

	byCUIT := make(map[string]string, len(f.Institutions))
	for _, fi := range f.Institutions {
		id, created, err := s.upsertInstitution(ctx, fi)
		if err != nil {
			return rep, fmt.Errorf("institution %s: %w", fi.CUIT, err)
		}
		byCUIT[fi.CUIT] = id
		if created {
			rep.InstitutionsCreated++
		} else {
			rep.InstitutionsUpdated++
		}
	}

	for _, fm := range f.Members {
		created, err := s.upsertMember(ctx, fm, byCUIT)
		if err != nil {
			return rep, fmt.Errorf("member %s: %w", fm.DNI, err)
		}
		if created {
			rep.MembersCreated++
		} else {
			rep.MembersUpdated++
		}
	}

	telemetry.Info("seed.completed", map[string]any{
		"institutions_created": rep.InstitutionsCreated,
		"institutions_updated": rep.InstitutionsUpdated,
		"members_created":      rep.MembersCreated,
		"members_updated":      rep.MembersUpdated,
	})
	return rep, nil
}

func (s *Seeder) upsertInstitution(ctx context.Context, fi Institution) (string, bool, error) {
	in := institutions.Input{
		Name:    fi.Name,
		CUIT:    fi.CUIT,
		Address: fi.Address,
		Phone:   fi.Phone,
		Email:   fi.Email,
		Website: fi.Website,
	}
	existing, err := s.Institutions.Repo.GetByCUIT(ctx, fi.CUIT)
	switch {
	case err == nil:
		inst, err := s.Institutions.Update(ctx, existing.ID, in)
		return inst.ID, false, err
	case errors.Is(err, institutions.ErrNotFound):
		inst, err := s.Institutions.Create(ctx, in)
		return inst.ID, true, err
	default:
		return "", false, err
	}
}

func (s *Seeder) upsertMember(ctx context.Context, fm Member, byCUIT map[string]string) (bool, error) {
	in := members.Input{
		DNI:       fm.DNI,
		FirstName: fm.FirstName,
		LastName:  fm.LastName,
		Email:     fm.Email,
		Phone:     fm.Phone,
		Address:   fm.Address,
		Status:    fm.Status,
		JoinedAt:  fm.JoinedAt,
	}
	if fm.InstitutionCUIT != "" {
		id, ok := byCUIT[fm.InstitutionCUIT]
		if !ok {
			inst, err := s.Institutions.Repo.GetByCUIT(ctx, fm.InstitutionCUIT)
			if err != nil {
				return false, fmt.Errorf("institution %s: %w", fm.InstitutionCUIT, err)
			}
			id = inst.ID
		}
		in.InstitutionID = &id
	}

	existing, err := s.Members.Repo.GetByDNI(ctx, fm.DNI)
	switch {
	case err == nil:
		_, err = s.Members.Update(ctx, existing.ID, in)
		return false, err
	case errors.Is(err, members.ErrNotFound):
		_, err = s.Members.Create(ctx, in)
		return true, err
	default:
		return false, err
	}
}

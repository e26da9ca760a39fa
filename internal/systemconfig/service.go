package systemconfig

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"docuflow/internal/shared/cache"
	"docuflow/internal/shared/telemetry"
	"docuflow/internal/shared/validate"
)

const defaultCacheTTL = 5 * time.Minute

var (
	colorPattern  = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	radiusPattern = regexp.MustCompile(`^\d+(\.\d+)?(rem|px|%)$`)
)

// Input is the full configuration accepted by Update.
type Input struct {
	AppName            string `json:"appName"`
	LogoURL            string `json:"logoUrl"`
	PrimaryColor       string `json:"primaryColor"`
	SecondaryColor     string `json:"secondaryColor"`
	PrimaryTextColor   string `json:"primaryTextColor"`
	SecondaryTextColor string `json:"secondaryTextColor"`
	BorderRadius       string `json:"borderRadius"`
	DefaultLocale      string `json:"defaultLocale"`
}

// Service reads and updates the configuration through a read-through cache.
type Service struct {
	Repo  Repo
	Cache cache.Cache
	TTL   time.Duration
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return defaultCacheTTL
}

// Get returns the configuration, creating the default row on first use.
func (s *Service) Get(ctx context.Context) (Config, error) {
	if cfg, ok := s.cached(ctx); ok {
		return cfg, nil
	}
	cfg, err := s.Repo.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		cfg = Defaults()
		cfg.CreatedAt = s.now()
		cfg.UpdatedAt = cfg.CreatedAt
		if err := s.Repo.Save(ctx, cfg); err != nil {
			return Config{}, err
		}
		telemetry.Info("systemconfig.defaults_created", nil)
	} else if err != nil {
		return Config{}, err
	}
	s.store(ctx, cfg)
	return cfg, nil
}

// Update validates in, replaces the configuration and drops the cached copy.
func (s *Service) Update(ctx context.Context, in Input) (Config, error) {
	in = normalize(in)
	if err := Validate(in); err != nil {
		return Config{}, err
	}
	now := s.now()
	created := now
	if current, err := s.Repo.Get(ctx); err == nil {
		created = current.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return Config{}, err
	}
	cfg := Config{
		AppName:            in.AppName,
		LogoURL:            in.LogoURL,
		PrimaryColor:       in.PrimaryColor,
		SecondaryColor:     in.SecondaryColor,
		PrimaryTextColor:   in.PrimaryTextColor,
		SecondaryTextColor: in.SecondaryTextColor,
		BorderRadius:       in.BorderRadius,
		DefaultLocale:      in.DefaultLocale,
		CreatedAt:          created,
		UpdatedAt:          now,
	}
	if err := s.Repo.Save(ctx, cfg); err != nil {
		return Config{}, err
	}
	if s.Cache != nil {
		if err := s.Cache.Delete(ctx, cache.KeySystemConfig); err != nil {
			telemetry.Warn("systemconfig.cache_invalidate_failed", map[string]any{"error": err.Error()})
		}
	}
	return cfg, nil
}

// Validate checks every field of in.
func Validate(in Input) error {
	issues := validate.Issues{}
	if n := utf8.RuneCountInString(in.AppName); n < 1 || n > 100 {
		issues.Add("appName", "must be between 1 and 100 characters")
	}
	if in.LogoURL != "" && !validate.URL(in.LogoURL) {
		issues.Add("logoUrl", "must be a valid URL")
	}
	colors := []struct{ field, value string }{
		{"primaryColor", in.PrimaryColor},
		{"secondaryColor", in.SecondaryColor},
		{"primaryTextColor", in.PrimaryTextColor},
		{"secondaryTextColor", in.SecondaryTextColor},
	}
	for _, c := range colors {
		if !colorPattern.MatchString(c.value) {
			issues.Add(c.field, "must be a hex color like #1a2b3c")
		}
	}
	if !radiusPattern.MatchString(in.BorderRadius) {
		issues.Add("borderRadius", "must be a number followed by rem, px or %")
	}
	if !slices.Contains(Locales, in.DefaultLocale) {
		issues.Add("defaultLocale", "must be one of es, en, pt")
	}
	return issues.Err()
}

func normalize(in Input) Input {
	in.AppName = strings.TrimSpace(in.AppName)
	in.LogoURL = strings.TrimSpace(in.LogoURL)
	in.BorderRadius = strings.TrimSpace(in.BorderRadius)
	in.DefaultLocale = strings.ToLower(strings.TrimSpace(in.DefaultLocale))
	return in
}

func (s *Service) cached(ctx context.Context) (Config, bool) {
	if s.Cache == nil {
		return Config{}, false
	}
	raw, ok, err := s.Cache.Get(ctx, cache.KeySystemConfig)
	if err != nil {
		telemetry.Warn("systemconfig.cache_read_failed", map[string]any{"error": err.Error()})
		return Config{}, false
	}
	if !ok {
		return Config{}, false
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, false
	}
	return cfg, true
}

func (s *Service) store(ctx context.Context, cfg Config) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, cache.KeySystemConfig, raw, s.ttl()); err != nil {
		telemetry.Warn("systemconfig.cache_write_failed", map[string]any{"error": err.Error()})
	}
}

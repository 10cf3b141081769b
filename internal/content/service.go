package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	apierrors "seopilot/internal/errors"
	"seopilot/internal/store"
	"seopilot/internal/validation"
	"seopilot/pkg/contracts/domain"
)

// Option keys
const (
	keyBrandProfile    = "brand_profile"
	keyCustomPostTypes = "custom_post_types"
	settingsPrefix     = "settings_"
	promptsPrefix      = "prompts_"
)

// ExportVersion is the only settings document version Import accepts
const ExportVersion = 1

// Service manages settings, prompts and the brand profile
type Service struct {
	store       store.Store
	validator   *validation.Validator
	configTypes []string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a content service. customTypes are categories declared
// in configuration.
func NewService(s store.Store, v *validation.Validator, customTypes []string, logger *slog.Logger) *Service {
	return &Service{
		store:       s,
		validator:   v,
		configTypes: customTypes,
		logger:      logger.With(slog.String("component", "content_service")),
		now:         time.Now,
	}
}

// PostTypes lists every known category, built-ins first
func (s *Service) PostTypes(ctx context.Context) ([]string, error) {
	learned, err := s.learnedTypes(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, len(BuiltinPostTypes)+len(s.configTypes)+len(learned))
	add := func(pt string) {
		if _, ok := seen[pt]; ok || !validation.ValidPostType(pt) {
			return
		}
		seen[pt] = struct{}{}
		out = append(out, pt)
	}
	for _, pt := range BuiltinPostTypes {
		add(pt)
	}
	for _, pt := range s.configTypes {
		add(pt)
	}
	for _, pt := range learned {
		add(pt)
	}
	return out, nil
}

// Install seeds settings and prompts for every known category. Stored
// settings win over defaults except optimize_content, which is forced off.
// Stored prompts are never replaced.
func (s *Service) Install(ctx context.Context) error {
	types, err := s.PostTypes(ctx)
	if err != nil {
		return err
	}

	for _, pt := range types {
		settings, err := s.loadSettings(ctx, pt)
		if err != nil {
			return err
		}
		settings.OptimizeContent = false
		if err := store.SetJSON(ctx, s.store, settingsPrefix+pt, settings); err != nil {
			return apierrors.Internal(err)
		}

		if _, err := s.store.Get(ctx, promptsPrefix+pt); errors.Is(err, store.ErrNotFound) {
			if err := store.SetJSON(ctx, s.store, promptsPrefix+pt, DefaultPrompts(pt)); err != nil {
				return apierrors.Internal(err)
			}
		} else if err != nil {
			return apierrors.Internal(err)
		}
	}

	s.logger.InfoContext(ctx, "Content settings installed", slog.Any("post_types", types))
	return nil
}

// ResetDefaults overwrites the settings and prompts of postType with the
// factory values
func (s *Service) ResetDefaults(ctx context.Context, postType string) error {
	if err := s.RequirePostType(ctx, postType); err != nil {
		return err
	}
	if err := store.SetJSON(ctx, s.store, settingsPrefix+postType, DefaultSettings()); err != nil {
		return apierrors.Internal(err)
	}
	if err := store.SetJSON(ctx, s.store, promptsPrefix+postType, DefaultPrompts(postType)); err != nil {
		return apierrors.Internal(err)
	}
	s.logger.InfoContext(ctx, "Settings reset to defaults", slog.String("post_type", postType))
	return nil
}

// Settings returns the effective settings of postType
func (s *Service) Settings(ctx context.Context, postType string) (domain.ContentSettings, error) {
	if err := s.RequirePostType(ctx, postType); err != nil {
		return domain.ContentSettings{}, err
	}
	return s.loadSettings(ctx, postType)
}

// SaveSettings merges patch into the stored settings of postType
func (s *Service) SaveSettings(ctx context.Context, postType string, patch domain.SettingsPatch) (domain.ContentSettings, error) {
	if err := s.RequirePostType(ctx, postType); err != nil {
		return domain.ContentSettings{}, err
	}
	if err := s.validator.Struct(patch); err != nil {
		return domain.ContentSettings{}, err
	}

	settings, err := s.loadSettings(ctx, postType)
	if err != nil {
		return domain.ContentSettings{}, err
	}
	settings = ApplyPatch(settings, patch)

	if err := store.SetJSON(ctx, s.store, settingsPrefix+postType, settings); err != nil {
		return domain.ContentSettings{}, apierrors.Internal(err)
	}
	return settings, nil
}

// Prompts returns the templates of postType, falling back to the defaults
func (s *Service) Prompts(ctx context.Context, postType string) (domain.PromptTemplate, error) {
	if err := s.RequirePostType(ctx, postType); err != nil {
		return domain.PromptTemplate{}, err
	}
	var tmpl domain.PromptTemplate
	err := store.GetJSON(ctx, s.store, promptsPrefix+postType, &tmpl)
	if errors.Is(err, store.ErrNotFound) {
		return DefaultPrompts(postType), nil
	}
	if err != nil {
		return domain.PromptTemplate{}, apierrors.Internal(err)
	}
	return tmpl, nil
}

// SavePrompts replaces the templates of postType
func (s *Service) SavePrompts(ctx context.Context, postType string, tmpl domain.PromptTemplate) error {
	if err := s.RequirePostType(ctx, postType); err != nil {
		return err
	}
	if err := s.validator.Struct(tmpl); err != nil {
		return err
	}
	if err := store.SetJSON(ctx, s.store, promptsPrefix+postType, tmpl); err != nil {
		return apierrors.Internal(err)
	}
	return nil
}

// Brand returns the stored brand profile, or the empty profile
func (s *Service) Brand(ctx context.Context) (domain.BrandProfile, error) {
	var b domain.BrandProfile
	err := store.GetJSON(ctx, s.store, keyBrandProfile, &b)
	if errors.Is(err, store.ErrNotFound) {
		return domain.BrandProfile{Keywords: []string{}, Banned: []string{}}, nil
	}
	if err != nil {
		return domain.BrandProfile{}, apierrors.Internal(err)
	}
	return b.Normalize(), nil
}

// SaveBrand normalizes and stores the brand profile
func (s *Service) SaveBrand(ctx context.Context, b domain.BrandProfile) (domain.BrandProfile, error) {
	if err := s.validator.Struct(b); err != nil {
		return domain.BrandProfile{}, err
	}
	b = b.Normalize()
	if err := store.SetJSON(ctx, s.store, keyBrandProfile, b); err != nil {
		return domain.BrandProfile{}, apierrors.Internal(err)
	}
	return b, nil
}

// Export returns every category's settings and prompts plus the brand profile.
// The license key is not part of the document.
func (s *Service) Export(ctx context.Context) (domain.SettingsExport, error) {
	types, err := s.PostTypes(ctx)
	if err != nil {
		return domain.SettingsExport{}, err
	}

	doc := domain.SettingsExport{
		Version:    ExportVersion,
		ExportedAt: s.now().UTC(),
		Settings:   make(map[string]domain.ContentSettings, len(types)),
		Prompts:    make(map[string]domain.PromptTemplate, len(types)),
	}
	for _, pt := range types {
		if doc.Settings[pt], err = s.loadSettings(ctx, pt); err != nil {
			return domain.SettingsExport{}, err
		}
		if doc.Prompts[pt], err = s.Prompts(ctx, pt); err != nil {
			return domain.SettingsExport{}, err
		}
	}

	brand, err := s.Brand(ctx)
	if err != nil {
		return domain.SettingsExport{}, err
	}
	if !brand.IsZero() {
		doc.Brand = &brand
	}
	return doc, nil
}

// importDocument keeps settings raw so each entry can be merged as a patch
type importDocument struct {
	Version  int                              `json:"version"`
	Settings map[string]json.RawMessage       `json:"settings"`
	Prompts  map[string]domain.PromptTemplate `json:"prompts"`
	Brand    *domain.BrandProfile             `json:"brand"`
}

// ImportSummary reports what Import wrote
type ImportSummary struct {
	Settings []string `json:"settings"`
	Prompts  []string `json:"prompts"`
	Brand    bool     `json:"brand"`
}

// Import applies an exported document. The whole document is validated
// before anything is written. Unknown valid category names become known.
func (s *Service) Import(ctx context.Context, raw []byte) (ImportSummary, error) {
	var doc importDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ImportSummary{}, apierrors.Validation("document", "document is not valid JSON")
	}
	if doc.Version != ExportVersion {
		return ImportSummary{}, apierrors.Validation("version", fmt.Sprintf("unsupported document version %d", doc.Version))
	}

	patches := make(map[string]domain.SettingsPatch, len(doc.Settings))
	for pt, rawSettings := range doc.Settings {
		if !validation.ValidPostType(pt) {
			return ImportSummary{}, apierrors.Validation("settings", fmt.Sprintf("invalid post type %q", pt))
		}
		var patch domain.SettingsPatch
		if err := json.Unmarshal(rawSettings, &patch); err != nil {
			return ImportSummary{}, apierrors.Validation("settings", fmt.Sprintf("settings for %q are malformed", pt))
		}
		if err := s.validator.Struct(patch); err != nil {
			return ImportSummary{}, err
		}
		patches[pt] = patch
	}
	for pt, tmpl := range doc.Prompts {
		if !validation.ValidPostType(pt) {
			return ImportSummary{}, apierrors.Validation("prompts", fmt.Sprintf("invalid post type %q", pt))
		}
		if err := s.validator.Struct(tmpl); err != nil {
			return ImportSummary{}, err
		}
	}
	if doc.Brand != nil {
		if err := s.validator.Struct(*doc.Brand); err != nil {
			return ImportSummary{}, err
		}
	}

	var summary ImportSummary
	for pt := range patches {
		summary.Settings = append(summary.Settings, pt)
	}
	for pt := range doc.Prompts {
		summary.Prompts = append(summary.Prompts, pt)
	}
	sort.Strings(summary.Settings)
	sort.Strings(summary.Prompts)

	if err := s.learn(ctx, append(append([]string{}, summary.Settings...), summary.Prompts...)); err != nil {
		return ImportSummary{}, err
	}

	for _, pt := range summary.Settings {
		current, err := s.loadSettings(ctx, pt)
		if err != nil {
			return ImportSummary{}, err
		}
		if err := store.SetJSON(ctx, s.store, settingsPrefix+pt, ApplyPatch(current, patches[pt])); err != nil {
			return ImportSummary{}, apierrors.Internal(err)
		}
	}
	for _, pt := range summary.Prompts {
		if err := store.SetJSON(ctx, s.store, promptsPrefix+pt, doc.Prompts[pt]); err != nil {
			return ImportSummary{}, apierrors.Internal(err)
		}
	}
	if doc.Brand != nil {
		if _, err := s.SaveBrand(ctx, *doc.Brand); err != nil {
			return ImportSummary{}, err
		}
		summary.Brand = true
	}

	s.logger.InfoContext(ctx, "Settings imported",
		slog.Int("settings", len(summary.Settings)),
		slog.Int("prompts", len(summary.Prompts)),
		slog.Bool("brand", summary.Brand))
	return summary, nil
}

// ApplyPatch copies every non-nil field of p onto s
func ApplyPatch(s domain.ContentSettings, p domain.SettingsPatch) domain.ContentSettings {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&s.Tone, p.Tone)
	setString(&s.Audience, p.Audience)
	setString(&s.Focus, p.Focus)
	setString(&s.Aggressiveness, p.Aggressiveness)
	setString(&s.KeywordDensity, p.KeywordDensity)
	setString(&s.GeoTargeting, p.GeoTargeting)
	setString(&s.BrandVoice, p.BrandVoice)
	setString(&s.TitleSeparator, p.TitleSeparator)
	setString(&s.ExcludedWords, p.ExcludedWords)
	setBool(&s.OptimizeTitle, p.OptimizeTitle)
	setBool(&s.OptimizeMeta, p.OptimizeMeta)
	setBool(&s.OptimizeContent, p.OptimizeContent)
	setBool(&s.OptimizeSlug, p.OptimizeSlug)
	setBool(&s.PreserveHTML, p.PreserveHTML)
	return s
}

// loadSettings decodes stored settings over the defaults, so keys missing
// from the stored JSON keep their default values
func (s *Service) loadSettings(ctx context.Context, postType string) (domain.ContentSettings, error) {
	settings := DefaultSettings()
	raw, err := s.store.Get(ctx, settingsPrefix+postType)
	if errors.Is(err, store.ErrNotFound) {
		return settings, nil
	}
	if err != nil {
		return settings, apierrors.Internal(err)
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.WarnContext(ctx, "Stored settings are corrupt, using defaults",
			slog.String("post_type", postType), slog.String("error", err.Error()))
		return DefaultSettings(), nil
	}
	return settings, nil
}

// RequirePostType returns a validation error unless postType is a known category
func (s *Service) RequirePostType(ctx context.Context, postType string) error {
	types, err := s.PostTypes(ctx)
	if err != nil {
		return err
	}
	for _, pt := range types {
		if pt == postType {
			return nil
		}
	}
	return apierrors.Validation("post_type", fmt.Sprintf("unknown post type %q", postType))
}

func (s *Service) learnedTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := store.GetJSON(ctx, s.store, keyCustomPostTypes, &types)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return types, nil
}

// learn records categories not yet known
func (s *Service) learn(ctx context.Context, names []string) error {
	known, err := s.PostTypes(ctx)
	if err != nil {
		return err
	}
	learned, err := s.learnedTypes(ctx)
	if err != nil {
		return err
	}

	isKnown := make(map[string]bool, len(known))
	for _, pt := range known {
		isKnown[pt] = true
	}
	changed := false
	for _, pt := range names {
		if !isKnown[pt] {
			isKnown[pt] = true
			learned = append(learned, pt)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	sort.Strings(learned)
	if err := store.SetJSON(ctx, s.store, keyCustomPostTypes, learned); err != nil {
		return apierrors.Internal(err)
	}
	return nil
}

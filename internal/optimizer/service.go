// Package optimizer rewrites the SEO fields of one content item using a
// text generator and the item's category settings.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"seopilot/internal/content"
	"seopilot/internal/infrastructure"
	"seopilot/pkg/contracts/domain"
)

// Field names reported in Result.Changed
const (
	FieldTitle   = "title"
	FieldMeta    = "meta_description"
	FieldContent = "content"
	FieldSlug    = "slug"
)

// LicenseGate blocks work while the license is inactive
type LicenseGate interface {
	Require(ctx context.Context) error
}

// ItemStore loads and saves content items
type ItemStore interface {
	Get(ctx context.Context, id string) (domain.Item, error)
	Save(ctx context.Context, item domain.Item) error
}

// SettingsSource supplies category settings, prompts and the brand profile
type SettingsSource interface {
	Settings(ctx context.Context, postType string) (domain.ContentSettings, error)
	Prompts(ctx context.Context, postType string) (domain.PromptTemplate, error)
	Brand(ctx context.Context) (domain.BrandProfile, error)
}

// Result describes one optimized item
type Result struct {
	ItemID  string      `json:"item_id"`
	Changed []string    `json:"changed"`
	Item    domain.Item `json:"item"`
}

// Service optimizes single items
type Service struct {
	gate      LicenseGate
	items     ItemStore
	settings  SettingsSource
	generator Generator
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *infrastructure.BusinessMetrics
	now       func() time.Time
}

// NewService creates an optimizer service
func NewService(gate LicenseGate, items ItemStore, settings SettingsSource, generator Generator,
	logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) *Service {
	return &Service{
		gate:      gate,
		items:     items,
		settings:  settings,
		generator: generator,
		logger:    logger.With(slog.String("component", "optimizer")),
		tracer:    tracer,
		metrics:   metrics,
		now:       time.Now,
	}
}

// OptimizeItem regenerates the enabled fields of item id and saves it. On a
// generator failure nothing is saved.
func (s *Service) OptimizeItem(ctx context.Context, id string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "optimizer.optimize_item", trace.WithAttributes(attribute.String("item.id", id)))
	defer span.End()

	if err := s.gate.Require(ctx); err != nil {
		return Result{}, err
	}

	item, err := s.items.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	cfg, err := s.settings.Settings(ctx, item.PostType)
	if err != nil {
		return Result{}, err
	}
	tmpl, err := s.settings.Prompts(ctx, item.PostType)
	if err != nil {
		return Result{}, err
	}
	brand, err := s.settings.Brand(ctx)
	if err != nil {
		return Result{}, err
	}

	prefix := brand.PromptPrefix()
	plain := stripTags(item.Content)
	updated := item
	var changed []string

	if cfg.OptimizeTitle {
		out, err := s.generate(ctx, FieldTitle, prefix+content.RenderPrompt(tmpl.Title, cfg, item.Title, plain))
		if err != nil {
			return Result{}, err
		}
		if title := cleanSingleLine(out); title != "" {
			updated.Title = title
			changed = append(changed, FieldTitle)
		}
	}

	if cfg.OptimizeMeta {
		out, err := s.generate(ctx, FieldMeta, prefix+content.RenderPrompt(tmpl.Meta, cfg, item.Title, plain))
		if err != nil {
			return Result{}, err
		}
		if meta := truncateRunes(cleanSingleLine(out), MaxMetaLength); meta != "" {
			updated.MetaDescription = meta
			changed = append(changed, FieldMeta)
		}
	}

	if cfg.OptimizeContent {
		out, err := s.generate(ctx, FieldContent, prefix+content.RenderPrompt(tmpl.Content, cfg, item.Title, item.Content))
		if err != nil {
			return Result{}, err
		}
		body := cleanOutput(out)
		if !cfg.PreserveHTML {
			body = stripTags(body)
		}
		if body != "" {
			updated.Content = body
			changed = append(changed, FieldContent)
		}
	}

	if cfg.OptimizeSlug {
		if slug := Slugify(updated.Title); slug != "" && slug != item.Slug {
			updated.Slug = slug
			changed = append(changed, FieldSlug)
		}
	}

	now := s.now().UTC()
	updated.OptimizedAt = &now
	if err := s.items.Save(ctx, updated); err != nil {
		return Result{}, err
	}

	if s.metrics != nil {
		s.metrics.ItemsOptimizedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("post_type", item.PostType)))
	}
	s.logger.InfoContext(ctx, "Item optimized",
		slog.String("item_id", id),
		slog.String("post_type", item.PostType),
		slog.Any("changed", changed))

	return Result{ItemID: id, Changed: changed, Item: updated}, nil
}

func (s *Service) generate(ctx context.Context, field, prompt string) (string, error) {
	start := time.Now()
	out, err := s.generator.Generate(ctx, prompt)
	if s.metrics != nil {
		s.metrics.GenerationDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("field", field), attribute.Bool("success", err == nil)))
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return "", fmt.Errorf("generate %s: %w", field, err)
	}
	return out, nil
}

package domain

import (
	"time"
)

// Built-in content categories
const (
	PostTypePost    = "post"
	PostTypePage    = "page"
	PostTypeProduct = "product"
)

// ContentSettings controls how items of one content category are optimized
type ContentSettings struct {
	Tone            string `json:"tone"`
	Audience        string `json:"audience"`
	Focus           string `json:"focus"`
	Aggressiveness  string `json:"aggressiveness"`
	KeywordDensity  string `json:"keyword_density"`
	GeoTargeting    string `json:"geo_targeting"`
	BrandVoice      string `json:"brand_voice"`
	TitleSeparator  string `json:"title_separator"`
	ExcludedWords   string `json:"excluded_words"`
	OptimizeTitle   bool   `json:"optimize_title"`
	OptimizeMeta    bool   `json:"optimize_meta"`
	OptimizeContent bool   `json:"optimize_content"`
	OptimizeSlug    bool   `json:"optimize_slug"`
	PreserveHTML    bool   `json:"preserve_html"`
}

// SettingsPatch is a partial ContentSettings update. Nil fields are left untouched.
type SettingsPatch struct {
	Tone            *string `json:"tone,omitempty" validate:"omitempty,max=100"`
	Audience        *string `json:"audience,omitempty" validate:"omitempty,max=200"`
	Focus           *string `json:"focus,omitempty" validate:"omitempty,max=200"`
	Aggressiveness  *string `json:"aggressiveness,omitempty" validate:"omitempty,oneof=conservative moderate aggressive"`
	KeywordDensity  *string `json:"keyword_density,omitempty" validate:"omitempty,oneof=low balanced high"`
	GeoTargeting    *string `json:"geo_targeting,omitempty" validate:"omitempty,max=200"`
	BrandVoice      *string `json:"brand_voice,omitempty" validate:"omitempty,max=500"`
	TitleSeparator  *string `json:"title_separator,omitempty" validate:"omitempty,max=5"`
	ExcludedWords   *string `json:"excluded_words,omitempty" validate:"omitempty,max=1000"`
	OptimizeTitle   *bool   `json:"optimize_title,omitempty"`
	OptimizeMeta    *bool   `json:"optimize_meta,omitempty"`
	OptimizeContent *bool   `json:"optimize_content,omitempty"`
	OptimizeSlug    *bool   `json:"optimize_slug,omitempty"`
	PreserveHTML    *bool   `json:"preserve_html,omitempty"`
}

// PromptTemplate holds the generation prompts of one content category
type PromptTemplate struct {
	Title   string `json:"title" validate:"required"`
	Meta    string `json:"meta" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// BrandProfile is the single global brand description prepended to prompts
type BrandProfile struct {
	Name     string   `json:"name" validate:"max=200"`
	Tagline  string   `json:"tagline" validate:"max=300"`
	Tone     string   `json:"tone" validate:"max=200"`
	Keywords []string `json:"keywords" validate:"max=100,dive,max=100"`
	Audience string   `json:"audience" validate:"max=300"`
	Banned   []string `json:"banned" validate:"max=100,dive,max=100"`
	Overview string   `json:"overview" validate:"max=5000"`
}

// Item is a content item owned by the host
type Item struct {
	ID              string     `json:"id" validate:"required,max=64"`
	PostType        string     `json:"post_type" validate:"required"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	MetaDescription string     `json:"meta_description"`
	Slug            string     `json:"slug"`
	OptimizedAt     *time.Time `json:"optimized_at,omitempty"`
}

// SettingsExport is the versioned export/import document
type SettingsExport struct {
	Version    int                        `json:"version" validate:"eq=1"`
	ExportedAt time.Time                  `json:"exported_at"`
	Settings   map[string]ContentSettings `json:"settings"`
	Prompts    map[string]PromptTemplate  `json:"prompts" validate:"dive"`
	Brand      *BrandProfile              `json:"brand,omitempty"`
}

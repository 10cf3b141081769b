package content

import (
	"strings"

	"seopilot/pkg/contracts/domain"
)

// RenderPrompt fills the placeholders of tmpl from settings and the item text
func RenderPrompt(tmpl string, s domain.ContentSettings, title, body string) string {
	r := strings.NewReplacer(
		"{content_tone}", s.Tone,
		"{target_audience}", s.Audience,
		"{seo_focus}", s.Focus,
		"{aggressiveness}", s.Aggressiveness,
		"{keyword_density}", s.KeywordDensity,
		"{geo_targeting}", orNone(s.GeoTargeting),
		"{brand_voice}", orNone(s.BrandVoice),
		"{excluded_words}", orNone(s.ExcludedWords),
		"{title_separator}", s.TitleSeparator,
		"{PAGE TITLE}", title,
		"{PAGE CONTENT}", body,
	)
	return r.Replace(tmpl)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}

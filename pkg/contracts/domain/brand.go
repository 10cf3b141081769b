package domain

import (
	"sort"
	"strings"
)

// Normalize trims every field and turns Keywords and Banned into sorted sets
func (b BrandProfile) Normalize() BrandProfile {
	b.Name = strings.TrimSpace(b.Name)
	b.Tagline = strings.TrimSpace(b.Tagline)
	b.Tone = strings.TrimSpace(b.Tone)
	b.Audience = strings.TrimSpace(b.Audience)
	b.Overview = strings.TrimSpace(b.Overview)
	b.Keywords = normalizeSet(b.Keywords)
	b.Banned = normalizeSet(b.Banned)
	return b
}

// IsZero reports whether the profile carries no information
func (b BrandProfile) IsZero() bool {
	n := b.Normalize()
	return n.Name == "" && n.Tagline == "" && n.Tone == "" && n.Audience == "" &&
		n.Overview == "" && len(n.Keywords) == 0 && len(n.Banned) == 0
}

// PromptPrefix renders the profile as instructions placed before a prompt.
// An empty profile renders "".
func (b BrandProfile) PromptPrefix() string {
	n := b.Normalize()
	if n.IsZero() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Brand guidelines:\n")
	line := func(label, value string) {
		if value != "" {
			sb.WriteString(label)
			sb.WriteString(": ")
			sb.WriteString(value)
			sb.WriteString("\n")
		}
	}
	line("Brand name", n.Name)
	line("Tagline", n.Tagline)
	line("Brand tone", n.Tone)
	line("Target audience", n.Audience)
	line("Preferred keywords", strings.Join(n.Keywords, ", "))
	line("Never mention", strings.Join(n.Banned, ", "))
	line("About the brand", n.Overview)
	sb.WriteString("\n")
	return sb.String()
}

func normalizeSet(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

package content

import (
	"strings"

	"seopilot/pkg/contracts/domain"
)

// BuiltinPostTypes are always known
var BuiltinPostTypes = []string{domain.PostTypePost, domain.PostTypePage, domain.PostTypeProduct}

// DefaultSettings returns the factory settings. They are the same for every category.
func DefaultSettings() domain.ContentSettings {
	return domain.ContentSettings{
		Tone:            "professional",
		Audience:        "general",
		Focus:           "seo",
		Aggressiveness:  "moderate",
		KeywordDensity:  "balanced",
		GeoTargeting:    "",
		BrandVoice:      "",
		TitleSeparator:  "|",
		ExcludedWords:   "",
		OptimizeTitle:   true,
		OptimizeMeta:    true,
		OptimizeContent: false,
		OptimizeSlug:    false,
		PreserveHTML:    true,
	}
}

const styleBlock = `Writing style:
- Tone: {content_tone}
- Target audience: {target_audience}
- SEO focus: {seo_focus}
- Rewrite aggressiveness: {aggressiveness}
- Keyword density: {keyword_density}
- Geographic targeting: {geo_targeting}
- Brand voice: {brand_voice}
- Never use these words: {excluded_words}
`

// pageTemplates is the base for the page category and every custom category.
// Custom categories substitute their name for the literal word "page".
var pageTemplates = domain.PromptTemplate{
	Title: `You are an SEO specialist. Write a new title for the page below.
` + styleBlock + `
Keep it under 60 characters. Separate the title from any site or brand name with "{title_separator}".
Return only the title, without quotes.

PAGE TITLE: {PAGE TITLE}
PAGE CONTENT: {PAGE CONTENT}`,
	Meta: `You are an SEO specialist. Write a meta description for the page below.
` + styleBlock + `
Write one or two sentences, at most 155 characters, that make a searcher want to open the page.
Return only the description, without quotes.

PAGE TITLE: {PAGE TITLE}
PAGE CONTENT: {PAGE CONTENT}`,
	Content: `You are an SEO copy editor. Improve the body of the page below for search engines and readers.
` + styleBlock + `
Keep every fact, link and heading. Do not invent claims. Keep existing HTML markup intact.
Return only the rewritten body.

PAGE TITLE: {PAGE TITLE}
PAGE CONTENT: {PAGE CONTENT}`,
}

var postTemplates = domain.PromptTemplate{
	Title: `You are an SEO specialist. Write a new headline for the blog post below.
` + styleBlock + `
Keep it under 60 characters and make it click-worthy without being clickbait. Separate the headline from any site or brand name with "{title_separator}".
Return only the headline, without quotes.

PAGE TITLE: {PAGE TITLE}
PAGE CONTENT: {PAGE CONTENT}`,
	Meta: `You are an SEO specialist. Write a meta description for the blog post below.
` + styleBlock + `
Summarize the article's main takeaway in at most 155 characters.
Return only the description, without quotes.

PAGE TITLE: {PAGE TITLE}
PAGE CONTENT: {PAGE CONTENT}`,
	Content: `You are an SEO copy editor. Improve the blog post below for search engines and readers.
` + styleBlock + `
Keep the author's argument, every fact and every link. Improve headings and paragraph flow. Keep existing HTML markup intact.
Return only the rewritten article.

PAGE TITLE: {PAGE TITLE}
PAGE CONTENT: {PAGE CONTENT}`,
}

var productTemplates = domain.PromptTemplate{
	Title: `You are an e-commerce SEO specialist. Write a new product title for the product below.
` + styleBlock + `
Lead with the product name and its most searched attribute. Keep it under 60 characters. Separate segments with "{title_separator}".
Return only the title, without quotes.

PAGE TITLE: {PAGE TITLE}
PAGE CONTENT: {PAGE CONTENT}`,
	Meta: `You are an e-commerce SEO specialist. Write a meta description for the product below.
` + styleBlock + `
Mention the key benefit and end with a call to action. At most 155 characters.
Return only the description, without quotes.

PAGE TITLE: {PAGE TITLE}
PAGE CONTENT: {PAGE CONTENT}`,
	Content: `You are an e-commerce copywriter. Improve the product description below.
` + styleBlock + `
Keep every specification, price and link exactly as written. Do not invent features. Keep existing HTML markup intact.
Return only the rewritten description.

PAGE TITLE: {PAGE TITLE}
PAGE CONTENT: {PAGE CONTENT}`,
}

// DefaultPrompts returns the factory templates for postType
func DefaultPrompts(postType string) domain.PromptTemplate {
	switch postType {
	case domain.PostTypePost:
		return postTemplates
	case domain.PostTypePage:
		return pageTemplates
	case domain.PostTypeProduct:
		return productTemplates
	default:
		return domain.PromptTemplate{
			Title:   strings.ReplaceAll(pageTemplates.Title, "page", postType),
			Meta:    strings.ReplaceAll(pageTemplates.Meta, "page", postType),
			Content: strings.ReplaceAll(pageTemplates.Content, "page", postType),
		}
	}
}

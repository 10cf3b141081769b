// Package content owns the per-category optimization settings, the prompt
// templates, the global brand profile and the host's content items. All of
// it is persisted in the option store:
//
//	settings_<post_type>   ContentSettings as JSON
//	prompts_<post_type>    PromptTemplate as JSON
//	brand_profile          BrandProfile as JSON
//	custom_post_types      categories learned from imports
//	item_<id>              Item as JSON
package content

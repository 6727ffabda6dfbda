package anthropic

// BuildCachedSystemBlocks constructs system content blocks with a cache
// breakpoint. Scoring batches in one run share the same rubric, so every
// batch after the first reads it from the prompt cache.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: "5m",
			},
		},
	}
}

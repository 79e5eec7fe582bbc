package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const fallbackQueryWords = 10

// QueryGenerator turns a project description into a search query.
type QueryGenerator interface {
	Generate(ctx context.Context, description string) (string, error)
}

// GenerateQuery asks gen for a search query. When gen is nil, fails, or
// returns nothing, the query is the first ten words of the description
// followed by "grants".
func GenerateQuery(ctx context.Context, gen QueryGenerator, description string) string {
	description = collapse(description)
	if gen != nil && description != "" {
		q, err := gen.Generate(ctx, description)
		if err == nil && strings.TrimSpace(q) != "" {
			return collapse(q)
		}
		if err != nil {
			zap.L().Warn("pipeline: query generation failed, using fallback", zap.Error(err))
		}
	}
	return FallbackQuery(description)
}

// FallbackQuery builds a query from the leading words of description.
func FallbackQuery(description string) string {
	words := strings.Fields(description)
	if len(words) > fallbackQueryWords {
		words = words[:fallbackQueryWords]
	}
	return collapse(strings.Join(words, " ") + " grants")
}

package inference

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/raushankrgupta/fitly-tryon/utils"
)

const (
	SourceRemote   = "remote"
	SourceGemini   = "gemini"
	SourceFallback = "fallback"
)

// DefaultSuggestion is shown when nothing better is available.
const DefaultSuggestion = "AI Suggests: White sneakers, a brown leather watch, and a minimal chain create a versatile look."

var occasionSuggestions = map[string]string{
	"formal": "Pair with a slim-fit navy blazer, brown Oxford shoes, and a leather strap watch for a polished look.",
	"casual": "Try white sneakers, a minimal leather belt, and silver-tone accessories for a relaxed yet put-together style.",
	"party":  "Go bold with black Chelsea boots, a statement chain necklace, and a fitted dark jacket.",
}

// StaticSuggestion returns the canned suggestion for an occasion.
func StaticSuggestion(occasion string) string {
	if s, ok := occasionSuggestions[strings.ToLower(strings.TrimSpace(occasion))]; ok {
		return "AI Suggests: " + s
	}
	return DefaultSuggestion
}

// StyleAdvisor produces a styling tip directly from a language model.
type StyleAdvisor func(ctx context.Context, clothingType, occasion, imageRef string) (string, error)

// GeminiAdvisor returns a StyleAdvisor backed by Gemini, or nil without a key.
func GeminiAdvisor(apiKey string) StyleAdvisor {
	if apiKey == "" {
		return nil
	}
	return func(ctx context.Context, clothingType, occasion, imageRef string) (string, error) {
		return utils.GenerateStylingTip(ctx, apiKey, clothingType, occasion, imageRef)
	}
}

type Recommendation struct {
	Suggestion string `json:"suggestion"`
	Source     string `json:"source"`
}

// Recommender asks the inference server first, then Gemini, then falls back
// to static text. It always produces a suggestion.
type Recommender struct {
	Client *Client
	Gemini StyleAdvisor
}

func (r *Recommender) Recommend(ctx context.Context, server string, req RecommendRequest) Recommendation {
	occasion := ""
	if req.Occasion != nil {
		occasion = *req.Occasion
	}

	if r.Client != nil && server != "" {
		resp, err := r.Client.Recommend(ctx, server, req)
		if err == nil {
			return Recommendation{Suggestion: resp.Suggestion, Source: SourceRemote}
		}
		utils.Log.Warn("remote recommendation failed", zap.String("server", server), zap.Error(err))
	}

	if r.Gemini != nil {
		tip, err := r.Gemini(ctx, req.ClothingType, occasion, req.ImageData)
		if err == nil && tip != "" {
			return Recommendation{Suggestion: tip, Source: SourceGemini}
		}
		utils.Log.Warn("gemini recommendation failed", zap.Error(err))
	}

	return Recommendation{Suggestion: StaticSuggestion(occasion), Source: SourceFallback}
}

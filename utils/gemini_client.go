package utils

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const stylingModel = "gemini-2.0-flash"

// GenerateStylingTip asks Gemini for a short accessory suggestion. imageRef may be
// empty, a data URI or a URL of the person's photo.
func GenerateStylingTip(ctx context.Context, apiKey, clothingType, occasion, imageRef string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(stylingModel)

	if occasion == "" {
		occasion = "everyday"
	}
	prompt := fmt.Sprintf(`You are a fashion stylist.
The person is trying on a %s for a %s occasion.
Suggest accessories and footwear that complete the look in one or two sentences.
Start the answer with "AI Suggests:".`, clothingType, occasion)

	parts := []genai.Part{genai.Text(prompt)}
	if imageRef != "" {
		if data, contentType, err := ResolveImageRef(ctx, imageRef); err == nil {
			format := strings.TrimPrefix(contentType, "image/")
			if format == "" || format == contentType {
				format = "jpeg"
			}
			parts = append(parts, genai.ImageData(format, data))
		}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	tip := strings.TrimSpace(sb.String())
	if tip == "" {
		return "", fmt.Errorf("unexpected response format (empty content)")
	}
	return tip, nil
}

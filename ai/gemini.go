package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"lovink/backend/internal/community"
)

// ErrNoCandidate is returned when the model produced nothing, e.g. a
// blocked prompt
var ErrNoCandidate = errors.New("model returned no candidate")

// GeminiGenerator speaks as personas through the Gemini API
type GeminiGenerator struct {
	client *genai.Client
	model  string
	window int
}

// NewGeminiGenerator creates a Gemini API client
func NewGeminiGenerator(ctx context.Context, apiKey, model string, window int) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model, window: window}, nil
}

// GenerateReply implements community.ReplyGenerator
func (g *GeminiGenerator) GenerateReply(ctx context.Context, req community.ReplyRequest) (string, error) {
	prompt := BuildCommunityPrompt(req, g.window)
	if len(prompt.Turns) == 0 {
		// a greeter opens an empty room
		prompt.Turns = []Turn{{Role: RoleUser, Text: "(the room just opened, say hi)"}}
	}
	text, err := g.chat(ctx, prompt, 0.9)
	if err != nil {
		return "", err
	}
	return stripSpeakerPrefix(text, req.Speaker.DisplayName), nil
}

// GenerateDirect implements DirectGenerator
func (g *GeminiGenerator) GenerateDirect(ctx context.Context, req DirectRequest) (string, error) {
	text, err := g.chat(ctx, BuildDirectPrompt(req, DirectHistoryWindow), 0.98)
	if err != nil {
		return "", err
	}
	return stripSpeakerPrefix(text, req.Partner.DisplayName), nil
}

func (g *GeminiGenerator) chat(ctx context.Context, prompt Prompt, temperature float32) (string, error) {
	contents := make([]*genai.Content, 0, len(prompt.Turns))
	for _, t := range prompt.Turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr(temperature),
		MaxOutputTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := firstText(res)
	if text == "" {
		return "", ErrNoCandidate
	}
	return text, nil
}

// PortraitAnalysis is a persona suggestion derived from a photo
type PortraitAnalysis struct {
	SuggestedName string   `json:"suggestedName"`
	Traits        []string `json:"traits"`
	Bio           string   `json:"bio"`
}

// AnalyzePortrait suggests a name, three traits and a bio for a portrait.
// image is a data URL or bare base64 JPEG.
func (g *GeminiGenerator) AnalyzePortrait(ctx context.Context, image string) (PortraitAnalysis, error) {
	data, mime, err := decodeImage(image)
	if err != nil {
		return PortraitAnalysis{}, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mime),
			genai.NewPartFromText("Analyze this portrait. Suggest a human name, 3 personality traits (make them teasing and bold), and a short playful bio. Return JSON."),
		}, genai.RoleUser),
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"suggestedName": {Type: genai.TypeString},
				"traits":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"bio":           {Type: genai.TypeString},
			},
			PropertyOrdering: []string{"suggestedName", "traits", "bio"},
		},
	})
	if err != nil {
		return PortraitAnalysis{}, fmt.Errorf("analyze portrait: %w", err)
	}
	text := firstText(res)
	if text == "" {
		return PortraitAnalysis{}, ErrNoCandidate
	}
	var out PortraitAnalysis
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return PortraitAnalysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if out.SuggestedName == "" {
		return PortraitAnalysis{}, ErrNoCandidate
	}
	return out, nil
}

func firstText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range res.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// stripSpeakerPrefix drops a leading "Name:" the model copies from the
// history format
func stripSpeakerPrefix(text, name string) string {
	prefix := name + ":"
	if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
		return strings.TrimSpace(text[len(prefix):])
	}
	return text
}

func decodeImage(image string) ([]byte, string, error) {
	mime := "image/jpeg"
	payload := image
	if strings.HasPrefix(image, "data:") {
		header, rest, ok := strings.Cut(image, ",")
		if !ok {
			return nil, "", errors.New("malformed data url")
		}
		payload = rest
		if m, _, ok := strings.Cut(strings.TrimPrefix(header, "data:"), ";"); ok && m != "" {
			mime = m
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64 image: %w", err)
	}
	return data, mime, nil
}

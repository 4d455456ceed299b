package assist

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// GenAI checks descriptions with a Gemini model.
type GenAI struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// NewGenAI creates a Gemini-backed checker.
func NewGenAI(ctx context.Context, apiKey, model string, log *zap.Logger) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	return &GenAI{client: client, model: model, log: log}, nil
}

var resultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isConsistent": {
			Type:        genai.TypeBoolean,
			Description: "Whether the item description is consistent with the item category and details.",
		},
		"reason": {
			Type:        genai.TypeString,
			Description: "The reason for the verdict.",
		},
	},
	Required: []string{"isConsistent", "reason"},
}

// Check asks the model for a verdict.
func (g *GenAI) Check(ctx context.Context, in Input) (*Result, error) {
	text, err := prompt(in)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			"You are an assistant that validates the consistency of inventory item descriptions.", genai.RoleUser),
		ResponseMIMEType: "application/json",
		ResponseSchema:   resultSchema,
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	res, err := parseResult(resp.Text())
	if err != nil {
		g.log.Warn("unexpected model response", zap.String("model", g.model), zap.Error(err))
		return nil, err
	}
	return res, nil
}

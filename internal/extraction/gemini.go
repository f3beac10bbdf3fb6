package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// contentGenerator is the part of *genai.GenerativeModel the extractor uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini implements StructuredExtractor using Google Gemini with a
// constrained JSON response schema
type Gemini struct {
	client *genai.Client
	model  contentGenerator
	log    zerolog.Logger
}

// NewGemini creates a new Gemini extractor
func NewGemini(ctx context.Context, apiKey, modelName string, log zerolog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = resultSchema()

	return &Gemini{
		client: client,
		model:  model,
		log:    log.With().Str("provider", "gemini").Str("model", modelName).Logger(),
	}, nil
}

// resultSchema declares the shape Gemini must answer with
func resultSchema() *genai.Schema {
	transaction := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"date":        {Type: genai.TypeString, Description: "Posting date, YYYY-MM-DD"},
			"description": {Type: genai.TypeString},
			"amount":      {Type: genai.TypeNumber},
			"type":        {Type: genai.TypeString, Format: "enum", Enum: []string{string(Credit), string(Debit)}},
			"balance":     {Type: genai.TypeNumber, Nullable: true},
		},
		Required: []string{"date", "description", "amount", "type"},
	}

	accountInfo := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"bankName":      {Type: genai.TypeString},
			"accountNumber": {Type: genai.TypeString},
			"statementPeriod": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"from": {Type: genai.TypeString},
					"to":   {Type: genai.TypeString},
				},
			},
		},
		Nullable: true,
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"transactions": {Type: genai.TypeArray, Items: transaction},
			"accountInfo":  accountInfo,
		},
		Required: []string{"transactions"},
	}
}

// Extract sends the document to Gemini and decodes the structured answer
func (g *Gemini) Extract(ctx context.Context, doc Document) (*Result, error) {
	parts := []genai.Part{
		genai.Blob{MIMEType: doc.MIMEType, Data: doc.Data},
		genai.Text(statementPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		g.log.Warn().
			Str("mime_type", doc.MIMEType).
			Int("size", len(doc.Data)).
			Msg("Gemini returned no structured output")
		return &Result{Transactions: []Transaction{}}, nil
	}

	result, err := parseResultJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing gemini output: %w", err)
	}

	g.log.Debug().Int("transactions", len(result.Transactions)).Msg("Gemini extraction finished")
	return result, nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

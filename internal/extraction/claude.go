package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultClaudeURL   = "https://api.anthropic.com"
	defaultClaudeModel = "claude-3-5-sonnet-latest"
	anthropicVersion   = "2023-06-01"
	claudeMaxTokens    = 8192
)

// Claude implements TextExtractor using the Anthropic Messages API
type Claude struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     zerolog.Logger
}

// NewClaude creates a new Claude extractor. A missing API key is not an
// error here; every call then reports it through TextOutput.
func NewClaude(baseURL, apiKey, modelName string, log zerolog.Logger) *Claude {
	if baseURL == "" {
		baseURL = defaultClaudeURL
	}
	if modelName == "" {
		modelName = defaultClaudeModel
	}

	return &Claude{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   modelName,
		client: &http.Client{
			Timeout: 180 * time.Second, // long statements take a while
		},
		log: log.With().Str("provider", "claude").Str("model", modelName).Logger(),
	}
}

// claudeRequest represents the request body for the Messages API
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// claudeResponse represents the response from the Messages API
type claudeResponse struct {
	Content    []TextSegment `json:"content"`
	StopReason string        `json:"stop_reason"`
}

type claudeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Extract sends the document to Claude and returns its raw content
func (c *Claude) Extract(ctx context.Context, doc Document) TextOutput {
	segments, err := c.extract(ctx, doc)
	if err != nil {
		c.log.Error().Err(err).Str("mime_type", doc.MIMEType).Msg("Claude extraction failed")
		return TextOutput{Err: fmt.Sprintf("claude extraction failed: %v", err)}
	}
	return TextOutput{Segments: segments}
}

func (c *Claude) extract(ctx context.Context, doc Document) ([]TextSegment, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is not configured")
	}

	payload, mediaType := base64Payload(doc.Data, doc.MIMEType)
	attachment := claudeContent{
		Type:   "document",
		Source: &claudeSource{Type: "base64", MediaType: mimePDF, Data: payload},
	}
	if strings.HasPrefix(mediaType, "image/") {
		attachment = claudeContent{
			Type:   "image",
			Source: &claudeSource{Type: "base64", MediaType: mediaType, Data: payload},
		}
	}

	reqBody := claudeRequest{
		Model:     c.model,
		MaxTokens: claudeMaxTokens,
		System:    tableSystemPrompt,
		Messages: []claudeMessage{
			{
				Role: "user",
				Content: []claudeContent{
					attachment,
					{Type: "text", Text: tableUserPrompt},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiErr claudeErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("anthropic API error (status %d): %s: %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var msgResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.log.Debug().Int("segments", len(msgResp.Content)).Str("stop_reason", msgResp.StopReason).Msg("Claude extraction finished")
	return msgResp.Content, nil
}

// base64Payload returns the base64 body to transmit and its media type.
// Input carrying a data URI prefix is stripped to the raw payload.
func base64Payload(data []byte, mimeType string) (string, string) {
	if rest, ok := bytes.CutPrefix(data, []byte("data:")); ok {
		if header, payload, found := bytes.Cut(rest, []byte(",")); found && bytes.HasSuffix(header, []byte(";base64")) {
			mediaType := string(bytes.TrimSuffix(header, []byte(";base64")))
			if mediaType == "" {
				mediaType = mimeType
			}
			return string(payload), NormalizeMIMEType(mediaType)
		}
	}
	return base64.StdEncoding.EncodeToString(data), mimeType
}

// Close is a no-op for the HTTP client
func (c *Claude) Close() error {
	return nil
}

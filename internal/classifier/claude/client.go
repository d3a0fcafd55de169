// Package claude classifies MRI scans with the Claude vision API.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

const maxTokens = 1024

const systemPrompt = `You are a radiology assistant that analyzes brain MRI scans
for tumor detection. Classify the scan into exactly one of four categories:
Glioma, Meningioma, Pituitary, or NoTumor.

Respond with a single JSON object and nothing else. No markdown, no prose
outside the JSON. The object must have exactly these fields:

{
  "tumor_present": <boolean>,
  "tumor_type": "<Glioma|Meningioma|Pituitary|NoTumor>",
  "probabilities": {"Glioma": <0..1>, "Meningioma": <0..1>, "Pituitary": <0..1>, "NoTumor": <0..1>},
  "confidence": <0..1>,
  "analysis": "<two to three sentences describing the findings>"
}`

const userPrompt = `Analyze this brain MRI scan and classify it.`

// Client implements triage.Classifier against the Claude API.
type Client struct {
	api    anthropic.Client
	model  anthropic.Model
	logger log.Logger
}

// New creates a classifier backed by the given Claude model.
func New(apiKey, model string, logger log.Logger) *Client {
	return &Client{
		api:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
		logger: logger,
	}
}

// Classify sends the scan to Claude and parses the structured verdict.
func (c *Client) Classify(ctx context.Context, imageURL string) (*triage.Classification, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: imageURL}),
				anthropic.NewTextBlock(userPrompt),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude api: %w", err)
	}

	c.logger.Info(ctx, "claude classification complete",
		"model", string(c.model),
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
	)

	text := textContent(msg)
	if text == "" {
		return nil, fmt.Errorf("%w: no text content in response", triage.ErrMalformed)
	}
	return parseClassification(text)
}

// textContent concatenates the text blocks of a response.
func textContent(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// wireClassification is the JSON shape the model is instructed to emit.
type wireClassification struct {
	TumorPresent  *bool              `json:"tumor_present"`
	TumorType     string             `json:"tumor_type"`
	Probabilities map[string]float64 `json:"probabilities"`
	Confidence    float64            `json:"confidence"`
	Analysis      string             `json:"analysis"`
}

// parseClassification decodes the model output into a Classification. Models
// sometimes wrap JSON in a markdown code fence despite instructions, so fences
// are stripped before decoding.
func parseClassification(text string) (*triage.Classification, error) {
	raw := stripFences(strings.TrimSpace(text))

	var wire wireClassification
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", triage.ErrMalformed, err)
	}
	if wire.TumorPresent == nil {
		return nil, fmt.Errorf("%w: missing tumor_present", triage.ErrMalformed)
	}

	c := &triage.Classification{
		TumorPresent:  *wire.TumorPresent,
		TumorType:     triage.TumorType(wire.TumorType),
		Probabilities: wire.Probabilities,
		Confidence:    wire.Confidence,
		Analysis:      wire.Analysis,
	}
	if err := triage.Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

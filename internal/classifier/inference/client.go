// Package inference classifies MRI scans through a self-hosted model server.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

// Client implements triage.Classifier against the model server's REST API.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a classifier that posts scans to the given inference endpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type predictRequest struct {
	ImageURL string `json:"image_url"`
}

type predictResponse struct {
	TumorPresent  *bool              `json:"tumor_present"`
	TumorType     string             `json:"tumor_type"`
	Probabilities map[string]float64 `json:"probabilities"`
	Confidence    float64            `json:"confidence"`
	Analysis      string             `json:"analysis"`
}

// Classify sends the image URL to the model server and validates the result.
func (c *Client) Classify(ctx context.Context, imageURL string) (*triage.Classification, error) {
	body, err := json.Marshal(predictRequest{ImageURL: imageURL})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference api error %d: %s", resp.StatusCode, string(respBody))
	}

	var out predictResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", triage.ErrMalformed, err)
	}
	if out.TumorPresent == nil {
		return nil, fmt.Errorf("%w: missing tumor_present", triage.ErrMalformed)
	}

	result := &triage.Classification{
		TumorPresent:  *out.TumorPresent,
		TumorType:     triage.TumorType(out.TumorType),
		Probabilities: out.Probabilities,
		Confidence:    out.Confidence,
		Analysis:      out.Analysis,
	}
	if err := triage.Validate(result); err != nil {
		return nil, err
	}
	return result, nil
}

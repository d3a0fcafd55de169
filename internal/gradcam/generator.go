// Package gradcam produces class-activation heatmap overlays for positive
// classifications by calling the model server's explainability endpoint.
package gradcam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

// Generator implements triage.ArtifactGenerator. Overlays are written under
// dir as <patient_id>/<timestamp>_gradcam.png and referenced by that relative
// path in prediction records.
type Generator struct {
	endpoint   string
	dir        string
	httpClient *http.Client
}

// New creates a generator that calls the given endpoint and writes overlays
// under dir.
func New(endpoint, dir string) *Generator {
	return &Generator{
		endpoint: strings.TrimRight(endpoint, "/"),
		dir:      dir,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type gradcamRequest struct {
	ImageURL  string `json:"image_url"`
	TumorType string `json:"tumor_type"`
}

type gradcamResponse struct {
	GradcamImageBase64 string `json:"gradcam_image_base64"`
}

// Generate fetches the heatmap overlay and stores it on disk, returning the
// path relative to the artifact root.
func (g *Generator) Generate(ctx context.Context, patientID, imageURL string, tumorType triage.TumorType) (string, error) {
	body, err := json.Marshal(gradcamRequest{ImageURL: imageURL, TumorType: string(tumorType)})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.endpoint+"/gradcam", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gradcam api error %d: %s", resp.StatusCode, string(respBody))
	}

	var out gradcamResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if out.GradcamImageBase64 == "" {
		return "", fmt.Errorf("empty gradcam image in response")
	}

	png, err := base64.StdEncoding.DecodeString(out.GradcamImageBase64)
	if err != nil {
		return "", fmt.Errorf("decode gradcam image: %w", err)
	}

	relPath := filepath.Join(patientID, fmt.Sprintf("%d_gradcam.png", time.Now().UnixMilli()))
	fullPath := filepath.Join(g.dir, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(fullPath, png, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	return relPath, nil
}

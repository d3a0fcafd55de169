package gradcam

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

// minimal valid-looking payload; content does not matter to the generator
var fakePNG = []byte("\x89PNG\r\n\x1a\nfake")

func gradcamServer(t *testing.T, status int, payload any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gradcam" {
			t.Errorf("path = %q, want /gradcam", r.URL.Path)
		}
		var req gradcamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ImageURL == "" || req.TumorType == "" {
			t.Errorf("incomplete request: %+v", req)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_WritesOverlay(t *testing.T) {
	t.Parallel()

	srv := gradcamServer(t, http.StatusOK, gradcamResponse{
		GradcamImageBase64: base64.StdEncoding.EncodeToString(fakePNG),
	})

	dir := t.TempDir()
	g := New(srv.URL, dir)

	rel, err := g.Generate(context.Background(), "patient-1", "https://storage/scan.png", triage.TumorGlioma)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !strings.HasPrefix(rel, "patient-1"+string(filepath.Separator)) {
		t.Errorf("relative path %q not under patient dir", rel)
	}
	if !strings.HasSuffix(rel, "_gradcam.png") {
		t.Errorf("relative path %q missing gradcam suffix", rel)
	}

	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != string(fakePNG) {
		t.Error("artifact content mismatch")
	}
}

func TestGenerate_ServerError(t *testing.T) {
	t.Parallel()

	srv := gradcamServer(t, http.StatusBadGateway, map[string]string{"error": "model busy"})

	g := New(srv.URL, t.TempDir())
	_, err := g.Generate(context.Background(), "patient-1", "https://storage/scan.png", triage.TumorPituitary)
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestGenerate_EmptyImage(t *testing.T) {
	t.Parallel()

	srv := gradcamServer(t, http.StatusOK, gradcamResponse{})

	g := New(srv.URL, t.TempDir())
	_, err := g.Generate(context.Background(), "patient-1", "https://storage/scan.png", triage.TumorGlioma)
	if err == nil {
		t.Fatal("expected error for empty image payload")
	}
}

func TestGenerate_BadBase64(t *testing.T) {
	t.Parallel()

	srv := gradcamServer(t, http.StatusOK, gradcamResponse{GradcamImageBase64: "!!not-base64!!"})

	g := New(srv.URL, t.TempDir())
	_, err := g.Generate(context.Background(), "patient-1", "https://storage/scan.png", triage.TumorGlioma)
	if err == nil {
		t.Fatal("expected error for undecodable payload")
	}
}

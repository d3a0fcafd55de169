// Package slack sends high-severity triage alerts to Slack via incoming
// webhooks.
package slack

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

const httpTimeout = 10 * time.Second

// Notifier posts prediction alerts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a prediction alert to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, caseID string, p *triage.Prediction) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(caseID, p)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(caseID string, p *triage.Prediction) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(caseID, p),
			{"type": "divider"},
			fieldsBlock(p),
			{"type": "divider"},
			probabilitiesBlock(p),
			{"type": "divider"},
			contextBlock(p),
		},
	}
}

func headerBlock(caseID string, p *triage.Prediction) map[string]any {
	text := fmt.Sprintf("%s Urgent Triage: case %s", severityEmoji(p.Severity), caseID)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(p *triage.Prediction) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", p.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Tumor type:* %s", p.TumorType),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Queue rank:* %d", p.QueueRank),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %.0f%%", p.Probabilities[string(p.TumorType)]*100),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func probabilitiesBlock(p *triage.Prediction) map[string]any {
	order := []triage.TumorType{triage.TumorGlioma, triage.TumorMeningioma, triage.TumorPituitary, triage.TumorNone}

	var sb strings.Builder
	for _, t := range order {
		fmt.Fprintf(&sb, "%s: %.1f%%\n", t, p.Probabilities[string(t)]*100)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Class probabilities*\n\n%s", sb.String()),
		},
	}
}

func contextBlock(p *triage.Prediction) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("neurotriage • prediction %s • %s", p.ID, p.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func severityEmoji(severity triage.Severity) string {
	switch severity {
	case triage.SeverityRed:
		return "\U0001f534" // red circle
	case triage.SeverityYellow:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

const notifyTimeout = 10 * time.Second

// Notifier delivers completed triage results to an external channel.
type Notifier interface {
	Send(ctx context.Context, caseID string, p *Prediction) error
}

// Service is the business boundary for triage operations. It owns one request
// end-to-end: validate, classify, resolve severity, allocate a queue rank,
// record the prediction, and respond.
type Service struct {
	store    Store
	engine   *Engine
	logger   log.Logger
	metrics  *Metrics // nil disables instrumentation
	notifier Notifier // nil disables notifications
}

// NewService creates a new triage service.
func NewService(store Store, engine *Engine, logger log.Logger, metrics *Metrics, notifier Notifier) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		engine:   engine,
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
	}
}

// Triage runs one prediction intake. The classify step never fails (it falls
// back to a deterministic NoTumor result); rank allocation and recording
// failures abort the request with no partial row, since the prediction insert
// is the final step of the success path.
func (s *Service) Triage(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	if req == nil || req.PatientID == "" || len(req.ImageURLs) == 0 {
		s.observe("invalid", start)
		return nil, ErrInvalidRequest
	}

	// latest-wins: older images in a multi-image upload are stored but not classified
	imageURL := req.ImageURLs[len(req.ImageURLs)-1]

	L := s.logger.With("case_id", req.CaseID, "patient_id", req.PatientID)

	c := s.engine.Classify(ctx, imageURL)
	sev := ResolveSeverity(c)

	gradcamPath := s.engine.GenerateArtifact(ctx, req.PatientID, imageURL, c)

	rank, err := s.nextRank(ctx, sev)
	if err != nil {
		s.observe("error", start)
		return nil, fmt.Errorf("allocate rank for %s: %w", sev, err)
	}

	p := &Prediction{
		ID:            ulid.Make().String(),
		PatientID:     req.PatientID,
		TumorPresent:  c.TumorPresent,
		TumorType:     c.TumorType,
		Probabilities: c.Probabilities,
		Severity:      sev,
		QueueRank:     rank,
		GradcamPath:   gradcamPath,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.InsertPrediction(ctx, p); err != nil {
		s.observe("error", start)
		return nil, fmt.Errorf("record prediction: %w", err)
	}

	// The prediction row is already durable; the companion metrics record is
	// derived and reproducible, so a failure here is logged, not fatal.
	if err := s.store.InsertPredictionMetrics(ctx, DeriveMetrics(p.ID, c.Confidence)); err != nil {
		L.Error(ctx, err, "metrics record insert failed", "prediction_id", p.ID)
	}

	if s.notifier != nil && sev == SeverityRed {
		go s.notify(context.WithoutCancel(ctx), req.CaseID, p)
	}

	if s.metrics != nil {
		s.metrics.PredictionsTotal.WithLabelValues(string(sev)).Inc()
	}
	s.observe("ok", start)

	L.Info(ctx, "triage complete",
		"prediction_id", p.ID,
		"tumor_type", c.TumorType,
		"severity", sev,
		"queue_rank", rank,
	)

	return &Result{
		TumorPresent:  c.TumorPresent,
		TumorType:     c.TumorType,
		Severity:      sev,
		PredictionID:  p.ID,
		QueueRank:     rank,
		Probabilities: c.Probabilities,
		Analysis:      c.Analysis,
	}, nil
}

// nextRank assigns the next integer rank within a tier by counting existing
// predictions. The read is not serialized against the later insert: two
// concurrent requests resolving to the same tier can observe the same count
// and receive the same rank. Ranks order the review queue and duplicates only
// tie adjacent entries, so this is tolerated rather than locked.
func (s *Service) nextRank(ctx context.Context, sev Severity) (int, error) {
	count, err := s.store.CountBySeverity(ctx, sev)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

func (s *Service) notify(ctx context.Context, caseID string, p *Prediction) {
	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.notifier.Send(nctx, caseID, p); err != nil {
		s.logger.Warn(nctx, "notification failed", "prediction_id", p.ID, "error", err)
	}
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.TriagesTotal.WithLabelValues(outcome).Inc()
	s.metrics.TriageDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

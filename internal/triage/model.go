package triage

import "time"

// TumorType is the classification category for an MRI scan.
type TumorType string

const (
	TumorGlioma     TumorType = "Glioma"
	TumorMeningioma TumorType = "Meningioma"
	TumorPituitary  TumorType = "Pituitary"
	TumorNone       TumorType = "NoTumor"
)

// Valid reports whether t is one of the known tumor categories.
func (t TumorType) Valid() bool {
	switch t {
	case TumorGlioma, TumorMeningioma, TumorPituitary, TumorNone:
		return true
	}
	return false
}

// Severity is the clinical urgency tier driving queue order (RED > YELLOW > GREEN).
type Severity string

const (
	SeverityRed    Severity = "RED"
	SeverityYellow Severity = "YELLOW"
	SeverityGreen  Severity = "GREEN"
)

// Valid reports whether s is a known severity tier.
func (s Severity) Valid() bool {
	switch s {
	case SeverityRed, SeverityYellow, SeverityGreen:
		return true
	}
	return false
}

// HeadacheSeverity is the clinician-recorded headache category on intake.
type HeadacheSeverity string

const (
	HeadacheMild   HeadacheSeverity = "Mild"
	HeadacheMedium HeadacheSeverity = "Medium"
	HeadacheSevere HeadacheSeverity = "Severe"
)

// Valid reports whether h is a known headache category.
func (h HeadacheSeverity) Valid() bool {
	switch h {
	case HeadacheMild, HeadacheMedium, HeadacheSevere:
		return true
	}
	return false
}

// Patient is a clinician-created intake record. Immutable after creation.
type Patient struct {
	ID               string           `json:"id"`
	CaseID           string           `json:"case_id"`
	Name             string           `json:"patient_name"`
	Age              int              `json:"age"`
	Gender           string           `json:"gender"`
	Seizure          bool             `json:"seizure"`
	HeadacheSeverity HeadacheSeverity `json:"headache_severity"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Upload records one stored MRI image for a patient. When a patient has
// multiple uploads only the most recent one is classified (latest-wins).
type Upload struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	ImagePath   string    `json:"image_path"`
	UploadOrder int       `json:"upload_order"`
	CreatedAt   time.Time `json:"created_at"`
}

// Classification is the transient output of a classifier backend.
type Classification struct {
	TumorPresent  bool               `json:"tumor_present"`
	TumorType     TumorType          `json:"tumor_type"`
	Probabilities map[string]float64 `json:"probabilities"`
	Confidence    float64            `json:"confidence"`
	Analysis      string             `json:"analysis,omitempty"`
}

// Prediction is an append-only triage record tied to a patient. It is written
// exactly once per successful triage call and never mutated or deleted.
type Prediction struct {
	ID            string             `json:"id"`
	PatientID     string             `json:"patient_id"`
	TumorPresent  bool               `json:"tumor_present"`
	TumorType     TumorType          `json:"tumor_type"`
	Probabilities map[string]float64 `json:"probabilities"`
	Severity      Severity           `json:"severity_level"`
	QueueRank     int                `json:"queue_rank"`
	GradcamPath   *string            `json:"gradcam_path,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// PredictionMetrics is the write-once companion record attached 1:1 to a
// prediction. When the classifier supplies no finer-grained metrics, every
// field is derived from its confidence.
type PredictionMetrics struct {
	PredictionID string  `json:"prediction_id"`
	Accuracy     float64 `json:"accuracy"`
	Precision    float64 `json:"precision"`
	Recall       float64 `json:"recall"`
	F1Score      float64 `json:"f1_score"`
	Sensitivity  float64 `json:"recall_sensitivity"`
	Specificity  float64 `json:"specificity"`
}

// DeriveMetrics builds the confidence-derived companion record for a prediction.
func DeriveMetrics(predictionID string, confidence float64) *PredictionMetrics {
	return &PredictionMetrics{
		PredictionID: predictionID,
		Accuracy:     confidence,
		Precision:    confidence,
		Recall:       confidence,
		F1Score:      confidence,
		Sensitivity:  confidence,
		Specificity:  1 - confidence,
	}
}

// ContactMessage is a message submitted through the contact form.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Request is one triage submission from the upload flow.
type Request struct {
	CaseID    string   `json:"case_id"`
	PatientID string   `json:"patient_id"`
	ImageURLs []string `json:"image_urls"`
}

// Result is the compact summary returned for a completed triage call.
type Result struct {
	TumorPresent  bool               `json:"tumor_present"`
	TumorType     TumorType          `json:"tumor_type"`
	Severity      Severity           `json:"severity_level"`
	PredictionID  string             `json:"prediction_id"`
	QueueRank     int                `json:"queue_rank"`
	Probabilities map[string]float64 `json:"probabilities"`
	Analysis      string             `json:"analysis,omitempty"`
}

// QueueEntry is a prediction joined with patient identity for queue display.
type QueueEntry struct {
	Prediction
	CaseID      string `json:"case_id"`
	PatientName string `json:"patient_name"`
}

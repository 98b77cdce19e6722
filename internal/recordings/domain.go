package recordings

import (
	"time"

	"github.com/google/uuid"
)

// Recording processing states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// AI provider names.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Recording is a call recording imported from Google Drive, optionally
// matched to a lead by phone number, plus the AI analysis results.
type Recording struct {
	ID                 uuid.UUID  `json:"id"`
	OrganizationID     uuid.UUID  `json:"organization_id"`
	DriveFileID        string     `json:"drive_file_id"`
	FileName           string     `json:"file_name"`
	MimeType           *string    `json:"mime_type,omitempty"`
	PhoneNumber        *string    `json:"phone_number,omitempty"`
	LeadID             *uuid.UUID `json:"lead_id,omitempty"`
	RecordingDate      *time.Time `json:"recording_date,omitempty"`
	ProcessingStatus   string     `json:"processing_status"`
	Transcript         *string    `json:"transcript,omitempty"`
	Summary            *string    `json:"summary,omitempty"`
	Sentiment          *string    `json:"sentiment,omitempty"`
	SentimentReasoning *string    `json:"sentiment_reasoning,omitempty"`
	KeyPoints          []string   `json:"key_points,omitempty"`
	ActionItems        []string   `json:"action_items,omitempty"`
	NextSteps          []string   `json:"next_steps,omitempty"`
	QualityScores      *Scores    `json:"quality_scores,omitempty"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	ArchiveObject      *string    `json:"archive_object,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Scores is the five-part call quality rubric, each 1 to 10.
type Scores struct {
	Engagement      int `json:"engagement"`
	Communication   int `json:"communication"`
	ObjectionsScore int `json:"objection_handling"`
	ClosingScore    int `json:"closing"`
	Overall         int `json:"overall"`
}

// Analysis is the structured output of the AI summarization step.
type Analysis struct {
	Summary            string   `json:"summary"`
	Sentiment          string   `json:"sentiment"`
	SentimentReasoning string   `json:"sentiment_reasoning"`
	KeyPoints          []string `json:"key_points"`
	ActionItems        []string `json:"action_items"`
	NextSteps          []string `json:"next_steps"`
	QualityScores      Scores   `json:"quality_scores"`
}

// ProviderConfig is a per-organization AI provider credential.
type ProviderConfig struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Provider       string    `json:"provider"`
	APIKey         string    `json:"-"`
	Model          *string   `json:"model,omitempty"`
	IsActive       bool      `json:"is_active"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
}

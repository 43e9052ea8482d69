package api

import "time"

// Parameters keeps engine parameters fixed at job creation
type Parameters struct {
	Model     string `json:"model" bson:"model"`
	Language  string `json:"language" bson:"language"`
	Translate bool   `json:"translate" bson:"translate"`
}

const (
	// DefaultModel is used when the submit request has no model value
	DefaultModel = "base"
	// DefaultLanguage means engine side language detection
	DefaultLanguage = "auto"
)

var knownModels = map[string]bool{"tiny": true, "base": true, "small": true,
	"medium": true, "large": true}

// ValidModel tests the model against the allowed enum
func ValidModel(model string) bool {
	return knownModels[model]
}

// DefaultParameters returns parameters with default values set
func DefaultParameters() Parameters {
	return Parameters{Model: DefaultModel, Language: DefaultLanguage}
}

// Job is one transcription request and its lifecycle record
type Job struct {
	ID               string     `json:"id" bson:"ID"`
	OwnerID          string     `json:"-" bson:"ownerID"`
	Status           string     `json:"status" bson:"status"`
	Parameters       Parameters `json:"parameters" bson:"parameters"`
	MediaKey         string     `json:"mediaKey,omitempty" bson:"mediaKey,omitempty"`
	TranscriptKey    string     `json:"transcriptKey,omitempty" bson:"transcriptKey,omitempty"`
	Transcript       string     `json:"transcript,omitempty" bson:"transcript,omitempty"`
	ProcessingTimeMs int64      `json:"processingTime,omitempty" bson:"processingTimeMs,omitempty"`
	CreatedAt        time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt" bson:"updatedAt"`
}

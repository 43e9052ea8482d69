package api

// SubmitResult - post method response in JSON
type SubmitResult struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Transcript       string `json:"transcript,omitempty"`
	ProcessingTimeMs int64  `json:"processingTime,omitempty"`
}

// ErrorResult - error response in JSON
type ErrorResult struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	JobID   string `json:"jobId,omitempty"`
}

// DeleteResult - delete method response in JSON
type DeleteResult struct {
	Message string `json:"message"`
}

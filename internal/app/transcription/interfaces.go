package transcription

import (
	"io"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/engine"
	"github.com/HarshitVashisht11/Transly/internal/pkg/status"
)

// JobStore persists job records
type JobStore interface {
	Insert(job *api.Job) error
	Get(id string) (*api.Job, error)
	List(ownerID string) ([]api.Job, error)
	UpdateStatus(id string, from, to status.Status) error
	Complete(id string, transcript, transcriptKey string, processingTimeMs int64) error
	Delete(id string) error
}

// FileStorage keeps media blobs and transcript artifacts
type FileStorage interface {
	Save(name string, reader io.Reader) error
	Load(name string) (api.File, error)
	Delete(name string) error
}

// Transcriber performs one blocking transcription call to the engine
type Transcriber interface {
	Transcribe(fileName string, file io.Reader, params api.Parameters) (*engine.Result, error)
}

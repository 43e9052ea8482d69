package transcription

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	"github.com/HarshitVashisht11/Transly/internal/pkg/engine"
	errs "github.com/HarshitVashisht11/Transly/internal/pkg/err"
	"github.com/HarshitVashisht11/Transly/internal/pkg/mongo"
	"github.com/HarshitVashisht11/Transly/internal/pkg/status"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var allowedMediaTypes = map[string]bool{
	"audio/mpeg": true, "audio/mp3": true, "audio/wav": true, "audio/ogg": true,
	"video/mp4": true, "video/webm": true, "video/quicktime": true,
}

// sniffLen covers the longest magic number mimetype needs
const sniffLen = 3072

// Orchestrator owns the job state machine.
// Submit drives PENDING -> PROCESSING -> COMPLETED/FAILED within one call,
// the engine dispatch stays behind the Transcriber interface so a queue
// could replace the inline await without contract changes
type Orchestrator struct {
	store       JobStore
	files       FileStorage
	transcriber Transcriber
}

// NewOrchestrator creates Orchestrator instance
func NewOrchestrator(store JobStore, files FileStorage, transcriber Transcriber) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("No job store")
	}
	if files == nil {
		return nil, errors.New("No file storage")
	}
	if transcriber == nil {
		return nil, errors.New("No transcriber")
	}
	return &Orchestrator{store: store, files: files, transcriber: transcriber}, nil
}

// Submit stores the media, creates the job and drives it to a terminal state.
// The caller blocks for the whole transcription
func (o *Orchestrator) Submit(ownerID, fileName string, file io.Reader, params api.Parameters) (*api.Job, error) {
	reader, mediaType, err := sniffMediaType(file)
	if err != nil {
		return nil, err
	}
	cmdapp.Log.Infof("Detected media type %s for %s", mediaType, fileName)

	id := uuid.New().String()
	mediaKey := id + mediaExt(fileName, mediaType)
	err = o.files.Save(mediaKey, reader)
	if err != nil {
		return nil, errs.Wrap(err, errs.StorageFailureCode, "Can't save media")
	}

	now := time.Now()
	job := &api.Job{ID: id, OwnerID: ownerID, Status: status.Pending.Name(),
		Parameters: params, MediaKey: mediaKey, CreatedAt: now, UpdatedAt: now}
	err = o.store.Insert(job)
	if err != nil {
		cmdapp.LogIf(o.files.Delete(mediaKey))
		return nil, errs.Wrap(err, errs.StorageFailureCode, "Can't save job")
	}

	err = o.store.UpdateStatus(id, status.Pending, status.Processing)
	if err != nil {
		return nil, errs.Wrap(err, errs.StorageFailureCode, "Can't start processing").WithJob(id)
	}
	job.Status = status.Processing.Name()

	res, err := o.process(job)
	if err != nil {
		o.markFailed(id)
		job.Status = status.Failed.Name()
		return nil, err
	}

	transcriptKey := id + "-transcript.txt"
	err = o.store.Complete(id, res.Transcript, transcriptKey, res.ProcessingTimeMs)
	if err == mongo.ErrNoTransition {
		// job deleted while the engine was working, result is discarded
		cmdapp.Log.Infof("Job %s is gone, dropping the result", id)
	} else if err != nil {
		// the row must not stay PROCESSING
		o.markFailed(id)
		return nil, errs.Wrap(err, errs.StorageFailureCode, "Can't save result").WithJob(id)
	} else {
		if saveErr := o.files.Save(transcriptKey, strings.NewReader(res.Transcript)); saveErr != nil {
			cmdapp.Log.Error(errors.Wrap(saveErr, "Can't save transcript artifact"))
		}
	}
	job.Status = status.Completed.Name()
	job.Transcript = res.Transcript
	job.TranscriptKey = transcriptKey
	job.ProcessingTimeMs = res.ProcessingTimeMs
	job.UpdatedAt = time.Now()
	return job, nil
}

func (o *Orchestrator) process(job *api.Job) (*engine.Result, error) {
	f, err := o.files.Load(job.MediaKey)
	if err != nil {
		return nil, errs.Wrap(err, errs.StorageFailureCode, "Can't read media").WithJob(job.ID)
	}
	defer f.Close()
	res, err := o.transcriber.Transcribe(job.MediaKey, f, job.Parameters)
	if err != nil {
		if code := errs.Code(err); code == errs.EnginePreparingCode || code == errs.EngineFailureCode {
			if se, ok := err.(*errs.Error); ok {
				return nil, se.WithJob(job.ID)
			}
			return nil, err
		}
		return nil, errs.Wrap(err, errs.EngineFailureCode, "Transcription processing failed").WithJob(job.ID)
	}
	return res, nil
}

func (o *Orchestrator) markFailed(id string) {
	err := o.store.UpdateStatus(id, status.Processing, status.Failed)
	if err == mongo.ErrNoTransition {
		cmdapp.Log.Infof("Job %s is gone, skipping FAILED mark", id)
		return
	}
	cmdapp.LogIf(err)
}

// Get returns the job after the ownership check
func (o *Orchestrator) Get(requesterID, id string) (*api.Job, error) {
	job, err := o.store.Get(id)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != requesterID {
		return nil, errs.New(errs.ForbiddenCode, "Not authorized to access this transcription").WithJob(id)
	}
	return job, nil
}

// List returns all requester's jobs, newest first
func (o *Orchestrator) List(requesterID string) ([]api.Job, error) {
	return o.store.List(requesterID)
}

// Delete removes the job record with its stored files.
// Missing files are tolerated, a repeated delete fails with NotFound
func (o *Orchestrator) Delete(requesterID, id string) error {
	job, err := o.Get(requesterID, id)
	if err != nil {
		return err
	}
	if job.MediaKey != "" {
		if err := o.files.Delete(job.MediaKey); err != nil {
			return errs.Wrap(err, errs.StorageFailureCode, "Can't delete media").WithJob(id)
		}
	}
	if job.TranscriptKey != "" {
		if err := o.files.Delete(job.TranscriptKey); err != nil {
			return errs.Wrap(err, errs.StorageFailureCode, "Can't delete transcript").WithJob(id)
		}
	}
	return o.store.Delete(id)
}

// Result opens the transcript artifact of a completed job
func (o *Orchestrator) Result(requesterID, id string) (api.File, error) {
	job, err := o.Get(requesterID, id)
	if err != nil {
		return nil, err
	}
	if job.Status != status.Completed.Name() || job.TranscriptKey == "" {
		return nil, errs.New(errs.NotFoundCode, "No transcript for ID: "+id).WithJob(id)
	}
	f, err := o.files.Load(job.TranscriptKey)
	if err != nil {
		return nil, errs.Wrap(err, errs.NotFoundCode, "No transcript file for ID: "+id).WithJob(id)
	}
	return f, nil
}

func sniffMediaType(file io.Reader) (io.Reader, string, error) {
	if file == nil {
		return nil, "", errs.New(errs.InvalidInputCode, "No file uploaded")
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, "", errs.Wrap(err, errs.InvalidInputCode, "Can't read file")
	}
	if n == 0 {
		return nil, "", errs.New(errs.InvalidInputCode, "No file uploaded")
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	if !allowedDetected(mt) {
		return nil, "", errs.New(errs.InvalidInputCode,
			"Invalid file type. Only audio and video files are allowed.")
	}
	return io.MultiReader(bytes.NewReader(head), file), mt.String(), nil
}

func allowedDetected(mt *mimetype.MIME) bool {
	for t := range allowedMediaTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}

func mediaExt(fileName, mediaType string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != "" {
		return ext
	}
	if mt := mimetype.Lookup(mediaType); mt != nil {
		return mt.Extension()
	}
	return ""
}

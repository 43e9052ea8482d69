package mongo

import (
	"time"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	errs "github.com/HarshitVashisht11/Transly/internal/pkg/err"
	"github.com/HarshitVashisht11/Transly/internal/pkg/status"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoTransition indicates that a status update matched no record,
// either the job is gone or the expected previous status did not hold
var ErrNoTransition = errors.New("no job record for status transition")

// JobStore persists job records in mongo db
type JobStore struct {
	SessionProvider *SessionProvider
}

// NewJobStore creates JobStore instance
func NewJobStore(sessionProvider *SessionProvider) (*JobStore, error) {
	f := JobStore{SessionProvider: sessionProvider}
	return &f, nil
}

// Insert saves new job record
func (js *JobStore) Insert(job *api.Job) error {
	cmdapp.Log.Infof("Saving job %s for %s", job.ID, job.OwnerID)

	c, err := js.jobs()
	if err != nil {
		return err
	}
	ctx, cancel := mongoContext()
	defer cancel()
	_, err = c.InsertOne(ctx, job)
	return errors.Wrap(err, "Can't insert job")
}

// Get retrieves job by ID
func (js *JobStore) Get(id string) (*api.Job, error) {
	c, err := js.jobs()
	if err != nil {
		return nil, err
	}
	ctx, cancel := mongoContext()
	defer cancel()
	var res api.Job
	err = c.FindOne(ctx, bson.M{"ID": id}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, errs.New(errs.NotFoundCode, "Unknown ID: "+id).WithJob(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "Can't get job")
	}
	return &res, nil
}

// List retrieves all owner's jobs, newest first.
// Ties on createdAt break by reverse insertion order
func (js *JobStore) List(ownerID string) ([]api.Job, error) {
	c, err := js.jobs()
	if err != nil {
		return nil, err
	}
	ctx, cancel := mongoContext()
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := c.Find(ctx, bson.M{"ownerID": ownerID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "Can't list jobs")
	}
	defer cursor.Close(ctx)
	res := make([]api.Job, 0)
	err = cursor.All(ctx, &res)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read jobs")
	}
	return res, nil
}

// UpdateStatus moves job from one status to another.
// The previous status is part of the filter so updates stay ordered
func (js *JobStore) UpdateStatus(id string, from, to status.Status) error {
	cmdapp.Log.Infof("Saving status %s: %s", id, to.Name())

	return js.update(bson.M{"ID": id, "status": from.Name()},
		bson.M{"$set": bson.M{"status": to.Name(), "updatedAt": time.Now()}})
}

// Complete writes the terminal COMPLETED state with all result fields in one update
func (js *JobStore) Complete(id string, transcript, transcriptKey string, processingTimeMs int64) error {
	cmdapp.Log.Infof("Saving result %s", id)

	return js.update(bson.M{"ID": id, "status": status.Processing.Name()},
		bson.M{"$set": bson.M{"status": status.Completed.Name(),
			"transcript":       transcript,
			"transcriptKey":    transcriptKey,
			"processingTimeMs": processingTimeMs,
			"updatedAt":        time.Now()}})
}

// Delete removes job record
func (js *JobStore) Delete(id string) error {
	cmdapp.Log.Infof("Deleting job %s", id)

	c, err := js.jobs()
	if err != nil {
		return err
	}
	ctx, cancel := mongoContext()
	defer cancel()
	res, err := c.DeleteOne(ctx, bson.M{"ID": id})
	if err != nil {
		return errors.Wrap(err, "Can't delete job")
	}
	if res.DeletedCount == 0 {
		return errs.New(errs.NotFoundCode, "Unknown ID: "+id).WithJob(id)
	}
	return nil
}

func (js *JobStore) update(filter, update bson.M) error {
	c, err := js.jobs()
	if err != nil {
		return err
	}
	ctx, cancel := mongoContext()
	defer cancel()
	res, err := c.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrap(err, "Can't update job")
	}
	if res.MatchedCount == 0 {
		return ErrNoTransition
	}
	return nil
}

func (js *JobStore) jobs() (*mongo.Collection, error) {
	client, err := js.SessionProvider.NewClient()
	if err != nil {
		return nil, err
	}
	return client.Database(store).Collection(jobTable), nil
}

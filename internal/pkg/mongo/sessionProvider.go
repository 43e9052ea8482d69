package mongo

import (
	"context"
	"sync"
	"time"

	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	"github.com/HarshitVashisht11/Transly/internal/pkg/utils"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// IndexData keeps index creation data
type IndexData struct {
	Table  string
	Fields []string
	Unique bool
}

func newIndexData(table string, fields []string, unique bool) IndexData {
	return IndexData{Table: table, Fields: fields, Unique: unique}
}

// SessionProvider connects and provides client for mongo DB
type SessionProvider struct {
	client  *mongo.Client
	URL     string
	indexes []IndexData
	m       sync.Mutex // struct field mutex
}

// NewSessionProvider creates Mongo session provider
func NewSessionProvider() (*SessionProvider, error) {
	url := cmdapp.Config.GetString("mongo.url")
	if url == "" {
		return nil, errors.New("No Mongo url provided")
	}
	return &SessionProvider{URL: url, indexes: indexData}, nil
}

// Close closes mongo client
func (sp *SessionProvider) Close() {
	if sp.client != nil {
		ctx, cancel := mongoContext()
		defer cancel()
		cmdapp.LogIf(sp.client.Disconnect(ctx))
	}
}

// Healthy checks the mongo connection
func (sp *SessionProvider) Healthy() error {
	client, err := sp.NewClient()
	if err != nil {
		return err
	}
	ctx, cancel := mongoContext()
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}

// NewClient returns connected mongo client
func (sp *SessionProvider) NewClient() (*mongo.Client, error) {
	sp.m.Lock()
	defer sp.m.Unlock()

	if sp.client == nil {
		cmdapp.Log.Info("Dial mongo: " + utils.URLToLog(sp.URL))
		ctx, cancel := mongoContext()
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(sp.URL))
		if err != nil {
			return nil, errors.Wrap(err, "Can't dial to mongo")
		}
		err = checkIndexes(client, sp.indexes)
		if err != nil {
			return nil, errors.Wrap(err, "Can't create indexes")
		}
		sp.client = client
	}
	return sp.client, nil
}

func checkIndexes(c *mongo.Client, indexes []IndexData) error {
	for _, index := range indexes {
		err := checkIndex(c, index)
		if err != nil {
			return errors.Wrapf(err, "Can't create index: %s:%v", index.Table, index.Fields)
		}
	}
	return nil
}

func checkIndex(c *mongo.Client, indexData IndexData) error {
	ctx, cancel := mongoContext()
	defer cancel()
	keys := bson.D{}
	for _, f := range indexData.Fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	index := mongo.IndexModel{Keys: keys,
		Options: options.Index().SetUnique(indexData.Unique).SetSparse(true)}
	_, err := c.Database(store).Collection(indexData.Table).Indexes().CreateOne(ctx, index)
	return err
}

func mongoContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// Package mongodb is a column family manager backed by MongoDB. Each entity
// name maps to a collection of the configured database.
package mongodb

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/metrics"
	"github.com/ajitpratap0/colmap/pkg/storage/internal/keys"
)

// Driver is the metrics and configuration name of this manager.
const Driver = "mongodb"

// Config holds connection settings.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Manager stores column entities as MongoDB documents.
type Manager struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *zap.Logger
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "mongodb uri is required")
	}
	if cfg.Database == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "mongodb database is required")
	}

	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		clientOpts.SetConnectTimeout(cfg.Timeout).SetServerSelectionTimeout(cfg.Timeout)
	}
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "mongodb ping failed")
	}

	logger = logger.With(zap.String("driver", Driver), zap.String("database", cfg.Database))
	logger.Info("connected to mongodb")
	return &Manager{client: client, database: client.Database(cfg.Database), logger: logger}, nil
}

// Insert stores e, replacing a document with the same key.
func (m *Manager) Insert(ctx context.Context, e *column.Entity, key string) (err error) {
	defer func() { metrics.RecordStorage(Driver, "insert", err) }()
	kc, err := keys.Lookup(e, key)
	if err != nil {
		return err
	}
	_, err = m.database.Collection(e.Name()).ReplaceOne(ctx, filter(kc), ToDocument(e),
		options.Replace().SetUpsert(true))
	return m.failed(err, "insert", e.Name())
}

// Update replaces the document with the key of e; a missing document is a
// not_found error.
func (m *Manager) Update(ctx context.Context, e *column.Entity, key string) (err error) {
	defer func() { metrics.RecordStorage(Driver, "update", err) }()
	kc, err := keys.Lookup(e, key)
	if err != nil {
		return err
	}
	res, err := m.database.Collection(e.Name()).ReplaceOne(ctx, filter(kc), ToDocument(e))
	if err != nil {
		return m.failed(err, "update", e.Name())
	}
	if res.MatchedCount == 0 {
		return errors.Newf(errors.ErrorTypeNotFound, "%s not found", e.Name()).
			WithDetail("entity", e.Name()).
			WithDetail("key", kc.Value)
	}
	return nil
}

// Find returns the document of collection name matching key.
func (m *Manager) Find(ctx context.Context, name string, key column.Column) (e *column.Entity, found bool, err error) {
	defer func() { metrics.RecordStorage(Driver, "find", err) }()
	if key.Value == nil {
		return nil, false, errors.NullArgument("key " + key.Name)
	}
	var doc bson.D
	err = m.database.Collection(name).FindOne(ctx, filter(key)).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, m.failed(err, "find", name)
	}
	return FromDocument(name, doc), true, nil
}

// FindAll returns every document of collection name in natural order.
func (m *Manager) FindAll(ctx context.Context, name string) (out []*column.Entity, err error) {
	defer func() { metrics.RecordStorage(Driver, "find_all", err) }()
	cursor, err := m.database.Collection(name).Find(ctx, bson.D{})
	if err != nil {
		return nil, m.failed(err, "find_all", name)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, m.failed(err, "find_all", name)
		}
		out = append(out, FromDocument(name, doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, m.failed(err, "find_all", name)
	}
	if out == nil {
		out = []*column.Entity{}
	}
	return out, nil
}

// Delete removes the document matching key.
func (m *Manager) Delete(ctx context.Context, name string, key column.Column) (err error) {
	defer func() { metrics.RecordStorage(Driver, "delete", err) }()
	if key.Value == nil {
		return errors.NullArgument("key " + key.Name)
	}
	_, err = m.database.Collection(name).DeleteOne(ctx, filter(key))
	return m.failed(err, "delete", name)
}

// Drop removes the collection of name.
func (m *Manager) Drop(ctx context.Context, name string) error {
	return m.failed(m.database.Collection(name).Drop(ctx), "drop", name)
}

// Close disconnects the client.
func (m *Manager) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to disconnect from mongodb")
	}
	m.logger.Info("disconnected from mongodb")
	return nil
}

func filter(key column.Column) bson.D {
	return bson.D{{Key: key.Name, Value: toValue(key.Value)}}
}

func (m *Manager) failed(err error, operation, name string) error {
	if err == nil {
		return nil
	}
	m.logger.Error("mongodb operation failed",
		zap.String("operation", operation),
		zap.String("collection", name),
		zap.Error(err))
	return errors.Wrap(err, errors.ErrorTypeStorage, "mongodb "+operation+" failed").
		WithDetail("entity", name)
}

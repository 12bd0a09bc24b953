// Package mongodb provides a DocumentSource backed by a MongoDB database.
package mongodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/custodia-labs/tabula/internal/adapters/driven/source/bsonconv"
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
	"github.com/custodia-labs/tabula/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// PasswordPlaceholders are replaced by the password in connection strings,
// as found in Atlas connection strings.
var PasswordPlaceholders = []string{"<password>", "<db_password>"}

const connectTimeout = 10 * time.Second

// Source reads collections from one MongoDB database.
// Documents are read in _id order so sampling and output are deterministic.
type Source struct {
	client   *mongo.Client
	database string
}

// ResolveURI fills the password placeholder of uri.
func ResolveURI(uri, password string) string {
	if password == "" {
		return uri
	}
	for _, p := range PasswordPlaceholders {
		uri = strings.ReplaceAll(uri, p, password)
	}
	return uri
}

// NeedsPassword reports whether uri still contains a password placeholder.
func NeedsPassword(uri string) bool {
	for _, p := range PasswordPlaceholders {
		if strings.Contains(uri, p) {
			return true
		}
	}
	return false
}

// RedactURI masks the password of uri for logging.
func RedactURI(uri, password string) string {
	if password == "" {
		return uri
	}
	return strings.ReplaceAll(uri, password, "***")
}

// NewSource connects to uri and checks the connection.
func NewSource(ctx context.Context, uri, password, database string) (*Source, error) {
	if database == "" {
		return nil, fmt.Errorf("%w: mongodb database is required", domain.ErrInvalidInput)
	}
	resolved := ResolveURI(uri, password)
	logger.Debug("Connecting to %s (database %s)", RedactURI(resolved, password), database)

	client, err := mongo.Connect(options.Client().ApplyURI(resolved))
	if err != nil {
		return nil, fmt.Errorf("%w: connect mongo: %w", domain.ErrSourceUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("%w: ping mongo: %w", domain.ErrSourceUnavailable, err)
	}

	return &Source{client: client, database: database}, nil
}

// Name returns the source kind.
func (s *Source) Name() string {
	return string(domain.SourceMongoDB)
}

// ListCollections returns collection names sorted by name.
func (s *Source) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.Database(s.database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("%w: list collections: %w", domain.ErrSourceUnavailable, err)
	}
	sort.Strings(names)
	return names, nil
}

// Sample returns the first n documents in _id order.
func (s *Source) Sample(ctx context.Context, collection string, n int) ([]domain.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(n))
	cursor, err := s.client.Database(s.database).Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %w", domain.ErrSourceUnavailable, collection, err)
	}
	defer cursor.Close(context.WithoutCancel(ctx))

	docs := make([]domain.Document, 0, n)
	for cursor.Next(ctx) {
		var d bson.D
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrSourceUnavailable, collection, err)
		}
		docs = append(docs, bsonconv.Document(d))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor %s: %w", domain.ErrSourceUnavailable, collection, err)
	}
	return docs, nil
}

// Iterate streams a collection in _id order.
func (s *Source) Iterate(ctx context.Context, collection string, batchSize int) (<-chan []domain.Document, <-chan error) {
	batches := make(chan []domain.Document, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(batches)
		defer close(errs)

		if err := s.iterate(ctx, collection, batchSize, batches); err != nil {
			errs <- err
		}
	}()

	return batches, errs
}

func (s *Source) iterate(ctx context.Context, collection string, batchSize int, out chan<- []domain.Document) error {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if batchSize > 0 {
		opts.SetBatchSize(int32(min(batchSize, 1<<20))) //nolint:gosec // bounded above
	}
	cursor, err := s.client.Database(s.database).Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return fmt.Errorf("%w: find %s: %w", domain.ErrSourceUnavailable, collection, err)
	}
	defer cursor.Close(context.WithoutCancel(ctx))

	batch := make([]domain.Document, 0, batchSize)
	send := func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- batch:
			batch = make([]domain.Document, 0, batchSize)
			return nil
		}
	}

	for cursor.Next(ctx) {
		var d bson.D
		if err := cursor.Decode(&d); err != nil {
			return fmt.Errorf("%w: decode %s: %w", domain.ErrSourceUnavailable, collection, err)
		}
		batch = append(batch, bsonconv.Document(d))
		if batchSize > 0 && len(batch) >= batchSize {
			if err := send(); err != nil {
				return err
			}
		}
	}
	if err := cursor.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: cursor %s: %w", domain.ErrSourceUnavailable, collection, err)
	}
	if len(batch) > 0 {
		return send()
	}
	return nil
}

// Close disconnects the client.
func (s *Source) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

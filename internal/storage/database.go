package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/types"
)

// MongoStorage writes products to a MongoDB collection.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	runID      string
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage connects to MongoDB. Every document it writes is tagged with runID.
func NewMongoStorage(cfg *config.MongoConfig, runID string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		runID:      runID,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Store(category string, products []*types.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Re-running a category within the same run replaces its documents.
	filter := bson.D{{Key: "run_id", Value: s.runID}, {Key: "category", Value: category}}
	if _, err := s.collection.DeleteMany(ctx, filter); err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("delete: %w", err)}
	}
	if len(products) == 0 {
		return nil
	}

	docs := make([]any, len(products))
	for i, p := range products {
		docs[i] = ProductDocument(p, s.runID)
	}

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("insert: %w", err)}
	}

	s.count += len(products)
	s.logger.Debug("products stored in mongodb", "category", category, "count", len(products), "total", s.count)
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_items", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ProductDocument builds the document stored for a product. Variant prices
// keep their page order.
func ProductDocument(p *types.Product, runID string) bson.D {
	hdd := bson.D{}
	for _, v := range p.HDDPrices.Entries() {
		hdd = append(hdd, bson.E{Key: v.Label, Value: v.Price})
	}
	return bson.D{
		{Key: "run_id", Value: runID},
		{Key: "category", Value: p.Category},
		{Key: "title", Value: p.Title},
		{Key: "description", Value: p.Description},
		{Key: "price", Value: p.Price},
		{Key: "rating", Value: p.Rating},
		{Key: "num_of_reviews", Value: p.NumOfReviews},
		{Key: "additional_info", Value: bson.D{{Key: types.VariantKey, Value: hdd}}},
		{Key: "detail_url", Value: p.DetailURL},
		{Key: "scraped_at", Value: p.ScrapedAt},
	}
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes products to multiple backends.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

func (s *MultiStorage) Store(category string, products []*types.Product) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(category, products); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "category", category, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// New builds the configured storage: the CSV writer, fanned out to MongoDB
// when that sink is enabled.
func New(cfg *config.StorageConfig, runID string, logger *slog.Logger) (Storage, error) {
	csvStore, err := NewCSVStorage(cfg.OutputDir, logger)
	if err != nil {
		return nil, err
	}
	if !cfg.Mongo.Enabled {
		return csvStore, nil
	}

	mongoStore, err := NewMongoStorage(&cfg.Mongo, runID, logger)
	if err != nil {
		return nil, err
	}
	return NewMultiStorage([]Storage{csvStore, mongoStore}, logger), nil
}

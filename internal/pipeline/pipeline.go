package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/types"
)

// Middleware processes a product and returns the (possibly modified) product.
// Return nil to drop the product from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a product. Return nil to drop it.
	Process(p *types.Product) (*types.Product, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// FromConfig builds the pipeline enabled by cfg.
func FromConfig(cfg *config.PipelineConfig, logger *slog.Logger) *Pipeline {
	p := New(logger)
	if cfg.Trim {
		p.Use(&TrimMiddleware{})
	}
	if cfg.Dedup {
		p.Use(NewDedupMiddleware())
	}
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the product through all middleware in order.
func (p *Pipeline) Process(product *types.Product) (*types.Product, error) {
	current := product

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, fmt.Errorf("pipeline stage %s: %w", mw.Name(), err)
		}
		if result == nil {
			p.logger.Debug("product dropped", "stage", mw.Name(), "url", product.DetailURL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// TrimMiddleware trims surrounding whitespace from the text fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(p *types.Product) (*types.Product, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	return p, nil
}

// DedupMiddleware drops products whose detail URL was already seen in the
// same category.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{
		seen: make(map[string]struct{}),
	}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(p *types.Product) (*types.Product, error) {
	val := p.DetailURL
	if val == "" {
		val = p.Title
	}
	key := p.Category + "\x00" + val

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return p, nil
}

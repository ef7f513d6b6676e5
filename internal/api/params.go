package api

import (
	"context"
	"sync"

	"github.com/ralt/repoadd/internal/models"
)

// ParamsSource fetches the repository parameters
type ParamsSource interface {
	GetRepositoryParams(ctx context.Context) (*models.RepositoryParams, error)
}

// ParamsCache fetches the repository parameters once per process.
// A failed fetch is not cached, the next call retries.
type ParamsCache struct {
	mu     sync.Mutex
	source ParamsSource
	params *models.RepositoryParams
}

// NewParamsCache creates a cache over source
func NewParamsCache(source ParamsSource) *ParamsCache {
	return &ParamsCache{source: source}
}

// Get returns the cached parameters, fetching them on first use
func (p *ParamsCache) Get(ctx context.Context) (models.RepositoryParams, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.params == nil {
		params, err := p.source.GetRepositoryParams(ctx)
		if err != nil {
			return models.RepositoryParams{}, err
		}
		p.params = params
	}
	return *p.params, nil
}

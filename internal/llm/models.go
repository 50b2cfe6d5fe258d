package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"charm.land/catwalk/pkg/catwalk"
)

// ModelInfo is a simplified model representation for listing.
type ModelInfo struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Provider       string  `json:"provider"`
	ContextWindow  int64   `json:"context_window"`
	CostPer1MIn    float64 `json:"cost_per_1m_in"`
	CostPer1MOut   float64 `json:"cost_per_1m_out"`
	CanReason      bool    `json:"can_reason"`
	SupportsImages bool    `json:"supports_images"`
}

// Catalog lists models known to catwalk. The provider list is fetched once.
type Catalog struct {
	fetch func(ctx context.Context) ([]catwalk.Provider, error)

	mu        sync.Mutex
	providers []catwalk.Provider
	loaded    bool
}

// NewCatalog returns a catalog backed by the public catwalk service.
func NewCatalog() *Catalog {
	client := catwalk.New()
	return &Catalog{
		fetch: func(ctx context.Context) ([]catwalk.Provider, error) {
			return client.GetProviders(ctx, "")
		},
	}
}

// Providers returns all providers, caching the first successful fetch.
func (c *Catalog) Providers(ctx context.Context) ([]catwalk.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.providers, nil
	}
	providers, err := c.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch providers from catwalk: %w", err)
	}
	c.providers = providers
	c.loaded = true
	return providers, nil
}

// Models returns a flat list of models, optionally filtered by provider id,
// sorted by provider then id.
func (c *Catalog) Models(ctx context.Context, provider string) ([]ModelInfo, error) {
	providers, err := c.Providers(ctx)
	if err != nil {
		return nil, err
	}
	var models []ModelInfo
	for _, p := range providers {
		if provider != "" && string(p.ID) != provider {
			continue
		}
		for _, m := range p.Models {
			models = append(models, ModelInfo{
				ID:             m.ID,
				Name:           m.Name,
				Provider:       string(p.ID),
				ContextWindow:  m.ContextWindow,
				CostPer1MIn:    m.CostPer1MIn,
				CostPer1MOut:   m.CostPer1MOut,
				CanReason:      m.CanReason,
				SupportsImages: m.SupportsImages,
			})
		}
	}
	if provider != "" && len(models) == 0 {
		return nil, fmt.Errorf("provider %q not found", provider)
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		return models[i].ID < models[j].ID
	})
	return models, nil
}

// FindModelProvider finds which provider serves a model, falling back to
// name inference when catwalk is unavailable or does not list it.
func (c *Catalog) FindModelProvider(ctx context.Context, modelID string) (string, error) {
	providers, err := c.Providers(ctx)
	if err == nil {
		for _, p := range providers {
			for _, m := range p.Models {
				if m.ID == modelID {
					return string(p.ID), nil
				}
			}
		}
	}
	if inferred := InferProviderFromModel(modelID); inferred != "" {
		return inferred, nil
	}
	return "", fmt.Errorf("model %q not found in any provider", modelID)
}

package lagoon

import (
	"context"
	"fmt"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ModelsService is a read-only view of the model catalog.
type ModelsService struct {
	client *Client

	// versions caches immutable version lookups.
	versions *lru.Cache[string, *Version]
}

// Get fetches a model by owner and name.
func (s *ModelsService) Get(ctx context.Context, owner, name string) (*Model, error) {
	if owner == "" || name == "" {
		return nil, ValidationError{Field: "model", Message: "owner and name are required"}
	}
	var m Model
	if err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/models/%s/%s", owner, name), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns one page of public models.
func (s *ModelsService) List(ctx context.Context, cursor *string) (Page[Model], error) {
	return listPage[Model](ctx, s.client, "/models", cursor)
}

// ListVersions returns one page of a model's versions, newest first.
func (s *ModelsService) ListVersions(ctx context.Context, owner, name string, cursor *string) (Page[Version], error) {
	return listPage[Version](ctx, s.client, fmt.Sprintf("/models/%s/%s/versions", owner, name), cursor)
}

// GetVersion fetches a specific model version. Versions are immutable, so
// lookups are served from an LRU cache after the first fetch.
func (s *ModelsService) GetVersion(ctx context.Context, owner, name, id string) (*Version, error) {
	if id == "" {
		return nil, ValidationError{Field: "version", Message: "version id is required"}
	}
	key := fmt.Sprintf("%s/%s:%s", owner, name, id)
	if v, ok := s.versions.Get(key); ok {
		return v, nil
	}
	var v Version
	if err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/models/%s/%s/versions/%s", owner, name, id), nil, &v); err != nil {
		return nil, err
	}
	s.versions.Add(key, &v)
	return &v, nil
}

// CollectionsService lists curated model collections.
type CollectionsService struct {
	client *Client
}

// Get fetches a collection by slug, including its models.
func (s *CollectionsService) Get(ctx context.Context, slug string) (*Collection, error) {
	var col Collection
	if err := s.client.do(ctx, http.MethodGet, "/collections/"+slug, nil, &col); err != nil {
		return nil, err
	}
	return &col, nil
}

// List returns one page of collections.
func (s *CollectionsService) List(ctx context.Context, cursor *string) (Page[Collection], error) {
	return listPage[Collection](ctx, s.client, "/collections", cursor)
}

// HardwareService lists the hardware SKUs available to run models on.
type HardwareService struct {
	client *Client
}

// List returns every available SKU. The endpoint is not paginated.
func (s *HardwareService) List(ctx context.Context) ([]Hardware, error) {
	var hw []Hardware
	if err := s.client.do(ctx, http.MethodGet, "/hardware", nil, &hw); err != nil {
		return nil, err
	}
	return hw, nil
}

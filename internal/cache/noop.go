package cache

import (
	"context"

	"garageops/internal/model"
)

// NoopActiveSessionCache disables read-side caching. Used in tests and when
// running without Redis; every ListActive then hits the store directly.
type NoopActiveSessionCache struct{}

func NewNoopActiveSessionCache() ActiveSessionCache {
	return NoopActiveSessionCache{}
}

func (NoopActiveSessionCache) Set(context.Context, string, string, []*model.ActiveSessionView) error {
	return nil
}

func (NoopActiveSessionCache) Get(context.Context, string, string) ([]*model.ActiveSessionView, error) {
	return nil, nil
}

func (NoopActiveSessionCache) Invalidate(context.Context, string, string) error {
	return nil
}

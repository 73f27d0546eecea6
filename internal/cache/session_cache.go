package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"garageops/internal/model"
)

// ActiveSessionCache is a read-side cache of the per-technician active
// session list shown on the dashboard. It is advisory only: lifecycle
// preconditions are always checked against the store, never against Redis.
type ActiveSessionCache interface {
	Set(ctx context.Context, orgID, technicianID string, views []*model.ActiveSessionView) error
	Get(ctx context.Context, orgID, technicianID string) ([]*model.ActiveSessionView, error)
	Invalidate(ctx context.Context, orgID, technicianID string) error
}

type activeSessionCache struct {
	client *redis.Client
}

func NewActiveSessionCache(client *redis.Client) ActiveSessionCache {
	return &activeSessionCache{
		client: client,
	}
}

// Short TTL because the cached payload embeds computed minutes that go
// stale with the wall clock.
const activeSessionTTL = 30 * time.Second

func activeKey(orgID, technicianID string) string {
	return "active-sessions:" + orgID + ":" + technicianID
}

func (c *activeSessionCache) Set(ctx context.Context, orgID, technicianID string, views []*model.ActiveSessionView) error {
	data, err := json.Marshal(views)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, activeKey(orgID, technicianID), data, activeSessionTTL).Err()
}

func (c *activeSessionCache) Get(ctx context.Context, orgID, technicianID string) ([]*model.ActiveSessionView, error) {
	data, err := c.client.Get(ctx, activeKey(orgID, technicianID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var views []*model.ActiveSessionView
	if err := json.Unmarshal([]byte(data), &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *activeSessionCache) Invalidate(ctx context.Context, orgID, technicianID string) error {
	return c.client.Del(ctx, activeKey(orgID, technicianID)).Err()
}

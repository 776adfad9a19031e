package repository

import (
	"context"

	"artfolio/internal/service/health"

	"github.com/redis/go-redis/v9"
)

const healthIndexPrefix = "gallery:health:"

// HealthIndex 每个用户一个 Redis hash：project_id -> tier
type HealthIndex struct {
	rdb *redis.Client
}

func NewHealthIndex(rdb *redis.Client) *HealthIndex {
	return &HealthIndex{rdb: rdb}
}

func healthKey(uid string) string {
	return healthIndexPrefix + uid
}

func (h *HealthIndex) Set(ctx context.Context, uid, projectID string, tier health.Tier) error {
	return h.rdb.HSet(ctx, healthKey(uid), projectID, string(tier)).Err()
}

func (h *HealthIndex) Remove(ctx context.Context, uid, projectID string) error {
	return h.rdb.HDel(ctx, healthKey(uid), projectID).Err()
}

// Tiers 返回用户全部项目的分级
func (h *HealthIndex) Tiers(ctx context.Context, uid string) (map[string]health.Tier, error) {
	raw, err := h.rdb.HGetAll(ctx, healthKey(uid)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]health.Tier, len(raw))
	for id, tier := range raw {
		out[id] = health.Tier(tier)
	}
	return out, nil
}

// Counts 汇总索引中的分级数量
func (h *HealthIndex) Counts(ctx context.Context, uid string) (health.Counts, error) {
	tiers, err := h.Tiers(ctx, uid)
	if err != nil {
		return health.Counts{}, err
	}
	return CountTiers(tiers), nil
}

// CountTiers 未知取值计入 red
func CountTiers(tiers map[string]health.Tier) health.Counts {
	var c health.Counts
	for _, t := range tiers {
		switch t {
		case health.TierGreen:
			c.Green++
		case health.TierAmber:
			c.Amber++
		default:
			c.Red++
		}
	}
	return c
}

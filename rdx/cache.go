// Package rdx caches expanded plan documents in Redis.
package rdx

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wayfarer/metrics"
	"wayfarer/models"
)

const keyPrefix = "plan:"

// Connect builds a client from either a redis:// URL or a bare host:port
// address and checks it with PING.
func Connect(ctx context.Context, url, password string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: url, DB: 0}
	}
	if password != "" {
		opts.Password = password
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// PlanCache stores plan documents as JSON under "plan:<planId>" with a TTL.
// Redis failures are logged and treated as misses.
type PlanCache struct {
	conn redis.UniversalClient
	ttl  time.Duration
	log  zerolog.Logger
}

func NewPlanCache(conn redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *PlanCache {
	return &PlanCache{conn: conn, ttl: ttl, log: log.With().Str("component", "plancache").Logger()}
}

func Key(planID int) string {
	return keyPrefix + strconv.Itoa(planID)
}

func (c *PlanCache) GetPlan(ctx context.Context, planID int) (*models.PlanDocument, bool) {
	raw, err := c.conn.Get(ctx, Key(planID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Int("planId", planID).Msg("cache read failed")
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	var doc models.PlanDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.log.Warn().Err(err).Int("planId", planID).Msg("dropping undecodable cache entry")
		c.conn.Del(ctx, Key(planID))
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &doc, true
}

func (c *PlanCache) SetPlan(ctx context.Context, doc *models.PlanDocument) {
	raw, err := json.Marshal(doc)
	if err != nil {
		c.log.Warn().Err(err).Int("planId", doc.PlanID).Msg("cache encode failed")
		return
	}
	if err := c.conn.Set(ctx, Key(doc.PlanID), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int("planId", doc.PlanID).Msg("cache write failed")
	}
}

func (c *PlanCache) InvalidatePlan(ctx context.Context, planIDs ...int) {
	if len(planIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(planIDs))
	for _, id := range planIDs {
		keys = append(keys, Key(id))
	}
	if err := c.conn.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Ints("planIds", planIDs).Msg("cache invalidation failed")
	}
}

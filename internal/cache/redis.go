package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"octarcade/internal/config"
)

type Service interface {
	GetClient() *redis.Client
	Health() map[string]string
	Close() error
}

type service struct {
	client *redis.Client
}

var cacheInstance *service

// New connects to redis. It returns nil when redis is unreachable so the
// caller can run without persistence.
func New(cfg config.RedisConfig) Service {
	if cacheInstance != nil {
		return cacheInstance
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("[CACHE] Redis connection failed: %v", err)
		log.Println("[CACHE] Running without Redis history")
		client.Close()
		return nil
	}

	log.Println("[CACHE] Redis connected successfully")

	cacheInstance = &service{
		client: client,
	}

	return cacheInstance
}

func (s *service) GetClient() *redis.Client {
	return s.client
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	_, err := s.client.Ping(ctx).Result()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("redis down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "Redis is healthy"

	poolStats := s.client.PoolStats()
	stats["hits"] = strconv.FormatUint(uint64(poolStats.Hits), 10)
	stats["misses"] = strconv.FormatUint(uint64(poolStats.Misses), 10)
	stats["timeouts"] = strconv.FormatUint(uint64(poolStats.Timeouts), 10)
	stats["total_conns"] = strconv.FormatUint(uint64(poolStats.TotalConns), 10)
	stats["idle_conns"] = strconv.FormatUint(uint64(poolStats.IdleConns), 10)

	return stats
}

func (s *service) Close() error {
	log.Println("[CACHE] Disconnecting from Redis")
	cacheInstance = nil
	return s.client.Close()
}

// HistoryStore keeps the newest settled rounds of each game in a capped
// redis list.
type HistoryStore struct {
	client *redis.Client
	limit  int64
	prefix string
}

func NewHistoryStore(client *redis.Client, limit int) *HistoryStore {
	if limit <= 0 {
		limit = 10
	}
	return &HistoryStore{client: client, limit: int64(limit), prefix: "octarcade:history:"}
}

func (h *HistoryStore) key(game string) string {
	return h.prefix + game
}

// Push prepends entry to the game's list and trims it to the limit.
func (h *HistoryStore) Push(ctx context.Context, game string, entry interface{}) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	key := h.key(game)
	_, err = h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, h.limit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push history %s: %w", game, err)
	}
	return nil
}

// Recent returns the stored entries newest first.
func (h *HistoryStore) Recent(ctx context.Context, game string) ([]json.RawMessage, error) {
	vals, err := h.client.LRange(ctx, h.key(game), 0, h.limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", game, err)
	}
	out := make([]json.RawMessage, 0, len(vals))
	for _, v := range vals {
		out = append(out, json.RawMessage(v))
	}
	return out, nil
}

// Package cache 用 redis 记录已经完成的问题指纹，相同的问题不需要重新优化
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/config"
)

type ResultCache struct {
	rdb              *redis.Client
	ttl              time.Duration
	operationTimeout time.Duration
}

func NewResultCache(rdb *redis.Client, ttl, operationTimeout time.Duration) *ResultCache {
	return &ResultCache{
		rdb:              rdb,
		ttl:              ttl,
		operationTimeout: operationTimeout,
	}
}

// NewFromConfig 按配置创建 redis 客户端，客户端由返回的 ResultCache 负责关闭
func NewFromConfig(cfg *config.Config) *ResultCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:    cfg.Redis.Password,
		DB:          0,
		DialTimeout: time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
	})

	return NewResultCache(
		rdb,
		time.Duration(cfg.Cache.ResultTTL)*time.Second,
		time.Duration(cfg.Redis.OperationExpiration)*time.Second,
	)
}

func fingerprintKey(fingerprint string) string {
	return fmt.Sprintf("optimization_job_fingerprint_%s", fingerprint)
}

// GetFinishedJobID 返回与指纹对应的已完成任务，不存在时 ok 为 false
func (c *ResultCache) GetFinishedJobID(ctx context.Context, fingerprint string) (id uuid.UUID, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.operationTimeout)
	defer cancel()

	val, err := c.rdb.Get(ctx, fingerprintKey(fingerprint)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}

	id, err = uuid.Parse(val)
	if err != nil {
		// 缓存中的脏数据直接删除
		_ = c.rdb.Del(ctx, fingerprintKey(fingerprint)).Err()
		return uuid.Nil, false, nil
	}

	return id, true, nil
}

func (c *ResultCache) SetFinishedJobID(ctx context.Context, fingerprint string, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, c.operationTimeout)
	defer cancel()

	return c.rdb.Set(ctx, fingerprintKey(fingerprint), id.String(), c.ttl).Err()
}

func (c *ResultCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.operationTimeout)
	defer cancel()

	return c.rdb.Ping(ctx).Err()
}

func (c *ResultCache) Close() error {
	return c.rdb.Close()
}

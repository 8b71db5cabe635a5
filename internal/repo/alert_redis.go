package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/KNICEX/momentum-monitor/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// 写入记录和时间索引必须原子, 否则索引里缺的 key 永远清理不掉
var createAlertScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('ZADD', KEYS[2], ARGV[2], KEYS[1])
return 1
`)

type redisAlertRepo struct {
	client *redis.Client
	prefix string
}

// NewRedisAlertRepo 每条记录一个 key, 另用一个 zset 按 CreatedAt 索引, 用于清理和冷却恢复
func NewRedisAlertRepo(client *redis.Client, prefix string) AlertRepo {
	return &redisAlertRepo{
		client: client,
		prefix: prefix,
	}
}

func (r *redisAlertRepo) recordKey(symbol, timeframe string, barCloseTime int64) string {
	return fmt.Sprintf("%salert:%s:%s:%d", r.prefix, symbol, timeframe, barCloseTime)
}

func (r *redisAlertRepo) indexKey() string {
	return r.prefix + "alerts"
}

func (r *redisAlertRepo) Exists(ctx context.Context, symbol, timeframe string, barCloseTime int64) (bool, error) {
	n, err := r.client.Exists(ctx, r.recordKey(symbol, timeframe, barCloseTime)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *redisAlertRepo) Create(ctx context.Context, record entity.AlertRecord) (int64, error) {
	id, err := r.client.Incr(ctx, r.prefix+"alert:seq").Result()
	if err != nil {
		return 0, err
	}
	record.Id = id
	payload, err := json.Marshal(record)
	if err != nil {
		return 0, err
	}

	key := r.recordKey(record.Symbol, record.Timeframe, record.BarCloseTime)
	created, err := createAlertScript.Run(ctx, r.client, []string{key, r.indexKey()},
		string(payload), record.CreatedAt).Int()
	if err != nil {
		return 0, err
	}
	if created == 0 {
		return 0, ErrDuplicate
	}
	return id, nil
}

func (r *redisAlertRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	keys, err := r.client.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, r.indexKey(), lo.ToAnySlice(keys)...)
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return del.Val(), nil
}

func (r *redisAlertRepo) LatestSince(ctx context.Context, since int64) ([]entity.AlertRecord, error) {
	keys, err := r.client.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(since, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	latest := make(map[string]entity.AlertRecord)
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// 索引和记录之间被并发删除
			continue
		}
		var record entity.AlertRecord
		if err = json.Unmarshal([]byte(s), &record); err != nil {
			return nil, err
		}
		pair := record.Symbol + ":" + record.Timeframe
		if prev, ok := latest[pair]; !ok || record.CreatedAt > prev.CreatedAt {
			latest[pair] = record
		}
	}
	return lo.Values(latest), nil
}

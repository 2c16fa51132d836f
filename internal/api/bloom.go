package api

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ipapi-client/internal/logger"
	"ipapi-client/internal/metrics"
)

const (
	bloomBits   = 1 << 20
	bloomHashes = 4
	usageTTL    = 48 * time.Hour
)

// 文档注释：计算布隆过滤器位置
// 参数：data 为参与哈希的字节序列，m 为位图大小，k 为哈希次数。
// 背景：FNV64a 加索引前缀生成 k 个位置，用于 GetBit/SetBit。
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		pos[i] = int64(h.Sum64() % uint64(m))
	}
	return pos
}

// 文档注释：检查并写入布隆过滤器位图
// 返回：true 表示首次见到（已写入位图）；false 表示可能已见过。
// 异常：Redis 交互错误时返回 error；rc 为 nil 时视为首次见到。
func bloomCheckAndSet(ctx context.Context, rc *redis.Client, key string, positions []int64, ttl time.Duration) (bool, error) {
	if rc == nil {
		return true, nil
	}
	pipe := rc.Pipeline()
	cmds := make([]*redis.IntCmd, len(positions))
	for i, p := range positions {
		cmds[i] = pipe.GetBit(ctx, key, p)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	seen := true
	for _, c := range cmds {
		if c.Val() == 0 {
			seen = false
			break
		}
	}
	if seen {
		return false, nil
	}
	pipe = rc.Pipeline()
	for _, p := range positions {
		pipe.SetBit(ctx, key, p, 1)
	}
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return true, err
}

func dayKey(prefix string, t time.Time) string {
	return prefix + t.UTC().Format("20060102")
}

// 文档注释：记录一次代理调用的用量
// 背景：按天统计查询条数（INCRBY）与独立访客数（布隆去重后 INCR）；不缓存任何查询结果。
// 约束：Redis 不可用时只计错误指标，不影响查询返回。
func recordUsage(ctx context.Context, rc *redis.Client, visitor string, queries int) {
	if rc == nil || queries <= 0 {
		return
	}
	now := time.Now()
	qk := dayKey("ipapi:usage:queries:", now)
	if err := rc.IncrBy(ctx, qk, int64(queries)).Err(); err != nil {
		metrics.RedisErrorsTotal.Inc()
		logger.L().Debug("usage_incr_error", "err", err)
		return
	}
	if err := rc.Expire(ctx, qk, usageTTL).Err(); err != nil {
		metrics.RedisErrorsTotal.Inc()
		logger.L().Debug("usage_expire_error", "err", err)
	}
	if visitor == "" {
		return
	}
	first, err := bloomCheckAndSet(ctx, rc, dayKey("ipapi:usage:bloom:", now), bloomPositions([]byte(visitor), bloomBits, bloomHashes), usageTTL)
	if err != nil {
		metrics.RedisErrorsTotal.Inc()
		logger.L().Debug("usage_bloom_error", "err", err)
		return
	}
	if first {
		vk := dayKey("ipapi:usage:visitors:", now)
		if err := rc.Incr(ctx, vk).Err(); err != nil {
			metrics.RedisErrorsTotal.Inc()
			return
		}
		if err := rc.Expire(ctx, vk, usageTTL).Err(); err != nil {
			metrics.RedisErrorsTotal.Inc()
			logger.L().Debug("usage_expire_error", "err", err)
		}
	}
}

// Usage：当日用量（UTC 日）
type Usage struct {
	Queries  int64 `json:"queries"`
	Visitors int64 `json:"visitors"`
}

// readUsage：读取当日用量；键不存在按 0 处理
func readUsage(ctx context.Context, rc *redis.Client) (*Usage, error) {
	if rc == nil {
		return nil, nil
	}
	now := time.Now()
	vals, err := rc.MGet(ctx, dayKey("ipapi:usage:queries:", now), dayKey("ipapi:usage:visitors:", now)).Result()
	if err != nil {
		return nil, err
	}
	var u Usage
	u.Queries = toInt64(vals[0])
	u.Visitors = toInt64(vals[1])
	return &u, nil
}

func toInt64(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

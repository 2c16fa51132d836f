package utils

import (
	"ipapi-client/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedisFromEnv：按 REDIS_* 打开 Redis 客户端；REDIS_ENABLE=false 时返回 nil
// 约束：REDIS_DB 解析失败或为负数时回退到 0
func OpenRedisFromEnv() *redis.Client {
	if !GetenvBool("REDIS_ENABLE", true) {
		return nil
	}
	addr := Getenv("REDIS_HOST", "127.0.0.1") + ":" + Getenv("REDIS_PORT", "6379")
	db := GetenvInt("REDIS_DB", 0)
	if db < 0 {
		db = 0
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: Getenv("REDIS_PASS", ""), DB: db})
}

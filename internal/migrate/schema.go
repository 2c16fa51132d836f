package migrate

import (
	"context"
	"database/sql"

	"ipapi-client/internal/logger"
)

// 首次运行自动建表；IF NOT EXISTS 保证可重复执行
var schema = []string{
	`CREATE TABLE IF NOT EXISTS _ipapi_results (
        query TEXT NOT NULL,
        lang TEXT NOT NULL DEFAULT '',
        ip TEXT NOT NULL DEFAULT '',
        status TEXT NOT NULL DEFAULT '',
        country_code TEXT NOT NULL DEFAULT '',
        lat DOUBLE PRECISION,
        lon DOUBLE PRECISION,
        payload JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (query, lang)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_ipapi_results_ip ON _ipapi_results(ip)`,
	`CREATE TABLE IF NOT EXISTS _ipapi_stats_total (
        id INT PRIMARY KEY,
        total_queries BIGINT NOT NULL DEFAULT 0,
        total_fail BIGINT NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS _ipapi_stats_daily (
        day DATE PRIMARY KEY,
        queries BIGINT NOT NULL DEFAULT 0,
        fail BIGINT NOT NULL DEFAULT 0
    )`,
	`INSERT INTO _ipapi_stats_total(id, total_queries, total_fail)
     VALUES(1, 0, 0)
     ON CONFLICT (id) DO NOTHING`,
}

// EnsureSchema：按顺序执行建表语句，遇错即返回
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range schema {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done", "statements", len(schema))
	return nil
}

// 包 store：查询结果与统计的 PostgreSQL 持久化
// 约束：结果只写不读，不作为查询缓存使用；统计供代理服务 /stats 返回
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"ipapi-client/internal/logger"
	"ipapi-client/pkg/ipapi"
)

type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

const upsertResult = `INSERT INTO _ipapi_results(query, lang, ip, status, country_code, lat, lon, payload)
    VALUES($1,$2,$3,$4,$5,$6,$7,$8)
    ON CONFLICT (query, lang) DO UPDATE SET ip=EXCLUDED.ip, status=EXCLUDED.status,
        country_code=EXCLUDED.country_code, lat=EXCLUDED.lat, lon=EXCLUDED.lon,
        payload=EXCLUDED.payload, updated_at=now()`

// Record：一条待写入的查询结果
type Record struct {
	Query  string
	Lang   string
	Result ipapi.Result
}

// SaveResult：写入或覆盖单条结果（以 query+lang 为键）
func (s *Store) SaveResult(ctx context.Context, rec Record) error {
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertResult, args...)
	return err
}

// 文档注释：批量写入结果
// 背景：批量查询最多 100 条，单事务内预编译一次语句逐条执行；任一失败整体回滚。
// 返回：成功写入的条数。
func (s *Store) SaveResults(ctx context.Context, recs []Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, upsertResult)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, rec := range recs {
		args, err := recordArgs(rec)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logger.L().Debug("store_results_saved", "count", len(recs))
	return len(recs), nil
}

func recordArgs(rec Record) ([]any, error) {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return nil, err
	}
	r := rec.Result
	var status string
	if r.Status != nil {
		status = string(*r.Status)
	}
	return []any{
		rec.Query,
		rec.Lang,
		deref(r.IP),
		status,
		deref(r.CountryCode),
		nullFloat(r.Latitude),
		nullFloat(r.Longitude),
		string(payload),
	}, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// IncrStats：每次查询递增总计与当日计数；failed 表示服务端返回 status=fail
func (s *Store) IncrStats(ctx context.Context, queries, failed int) error {
	if queries <= 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE _ipapi_stats_total SET total_queries=total_queries+$1, total_fail=total_fail+$2 WHERE id=1",
		queries, failed); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO _ipapi_stats_daily(day, queries, fail) VALUES(current_date, $1, $2)
         ON CONFLICT (day) DO UPDATE SET queries=_ipapi_stats_daily.queries+EXCLUDED.queries, fail=_ipapi_stats_daily.fail+EXCLUDED.fail`,
		queries, failed)
	return err
}

// Totals：累计与当日查询次数
type Totals struct {
	Total     int64 `json:"total"`
	TotalFail int64 `json:"total_fail"`
	Today     int64 `json:"today"`
	TodayFail int64 `json:"today_fail"`
}

// GetTotals：当日尚无记录时当日计数为 0
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	if err := s.db.QueryRowContext(ctx, "SELECT total_queries, total_fail FROM _ipapi_stats_total WHERE id=1").Scan(&t.Total, &t.TotalFail); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT queries, fail FROM _ipapi_stats_daily WHERE day=current_date").Scan(&t.Today, &t.TodayFail); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return &t, nil
}

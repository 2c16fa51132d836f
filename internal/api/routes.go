// 包 api：代理服务路由，转发到 ip-api.com 并返回线上字段名的 JSON
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"ipapi-client/internal/logger"
	"ipapi-client/internal/metrics"
	"ipapi-client/internal/store"
	"ipapi-client/pkg/ipapi"
)

// 批量请求体上限：100 条查询远小于该值
const maxBatchBody = 1 << 20

// 文档注释：构建并返回 API 路由
// 参数：svc 为上游查询服务；st 为空时不持久化结果也不提供累计统计；rc 为空时不记录用量。
// 背景：独立 ServeMux，由入口挂载到 API_BASE 前缀之下。
func BuildRoutes(svc *ipapi.Service, st *store.Store, rc *redis.Client) *http.ServeMux {
	h := &handlers{svc: svc, st: st, rc: rc}
	mux := http.NewServeMux()
	mux.Handle("/ip", instrument("ip", http.HandlerFunc(h.lookup)))
	mux.Handle("/batch", instrument("batch", http.HandlerFunc(h.batch)))
	mux.Handle("/stats", instrument("stats", http.HandlerFunc(h.stats)))
	return mux
}

type handlers struct {
	svc *ipapi.Service
	st  *store.Store
	rc  *redis.Client
}

func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		next.ServeHTTP(w, r)
		metrics.ProxyRequestsTotal.WithLabelValues(route).Inc()
		metrics.ProxyDurationMs.WithLabelValues(route).Observe(float64(time.Since(t0).Milliseconds()))
	})
}

// GET /ip?ip=&fields=&lang=
// ip 缺省时查询访问者 IP；fields 接受语义名或线上名
func (h *handlers) lookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	visitor := getVisitorIP(r)
	query := q.Get("ip")
	if query == "" {
		query = visitor
	}
	req := ipapi.Request{Query: query, Fields: ipapi.ParseFields(q.Get("fields")), Language: q.Get("lang")}
	res, err := h.svc.Fetch(r.Context(), req)
	if err != nil {
		logger.L().Debug("proxy_lookup_error", "err", err)
		writeUpstreamError(w, err)
		return
	}
	h.accountOne(r.Context(), visitor, req, res)
	writeJSON(w, http.StatusOK, res)
}

// POST /batch，请求体为请求对象（或纯字符串）组成的 JSON 数组
func (h *handlers) batch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBatchBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var reqs []ipapi.Request
	if err := json.Unmarshal(body, &reqs); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON array of requests")
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "no requests")
		return
	}
	results, err := h.svc.Batch(r.Context(), reqs)
	if err != nil {
		logger.L().Debug("proxy_batch_error", "count", len(reqs), "err", err)
		writeUpstreamError(w, err)
		return
	}
	h.account(r.Context(), getVisitorIP(r), reqs, results)
	writeJSON(w, http.StatusOK, results)
}

// GET /stats：累计统计来自 Postgres，当日用量来自 Redis；两者均为可选
func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{}
	if h.st != nil {
		t, err := h.st.GetTotals(r.Context())
		if err != nil {
			logger.L().Error("stats_totals_error", "err", err)
			writeError(w, http.StatusInternalServerError, "stats unavailable")
			return
		}
		out["totals"] = t
	}
	u, err := readUsage(r.Context(), h.rc)
	if err != nil {
		metrics.RedisErrorsTotal.Inc()
		logger.L().Debug("stats_usage_error", "err", err)
	} else if u != nil {
		out["usage"] = u
	}
	writeJSON(w, http.StatusOK, out)
}

// accountOne：单查路径，成功结果直接写入单条
func (h *handlers) accountOne(ctx context.Context, visitor string, req ipapi.Request, res *ipapi.Result) {
	recordUsage(ctx, h.rc, visitor, 1)
	if h.st == nil {
		return
	}
	failed := 0
	if !res.Succeeded() {
		failed = 1
	}
	if err := h.st.IncrStats(ctx, 1, failed); err != nil {
		logger.L().Error("stats_incr_error", "err", err)
	}
	if failed == 1 {
		return
	}
	if err := h.st.SaveResult(ctx, store.Record{Query: req.Query, Lang: req.Language, Result: *res}); err != nil {
		logger.L().Error("store_result_error", "err", err)
	}
}

// 文档注释：记录统计、用量并持久化成功结果
// 约束：结果按请求下标对齐；服务端返回条数不同则只处理重叠部分。写入失败只记日志。
func (h *handlers) account(ctx context.Context, visitor string, reqs []ipapi.Request, results []ipapi.Result) {
	recordUsage(ctx, h.rc, visitor, len(results))
	if h.st == nil {
		return
	}
	failed := 0
	var recs []store.Record
	for i := range results {
		if !results[i].Succeeded() {
			failed++
			continue
		}
		if i < len(reqs) {
			recs = append(recs, store.Record{Query: reqs[i].Query, Lang: reqs[i].Language, Result: results[i]})
		}
	}
	if err := h.st.IncrStats(ctx, len(results), failed); err != nil {
		logger.L().Error("stats_incr_error", "err", err)
	}
	if _, err := h.st.SaveResults(ctx, recs); err != nil {
		logger.L().Error("store_results_error", "count", len(recs), "err", err)
	}
}

// statusFor：调用方输入错误映射为 400，其余（上游传输或解码失败）为 502
func statusFor(err error) int {
	switch {
	case errors.Is(err, ipapi.ErrInvalidRequestData),
		errors.Is(err, ipapi.ErrBatchTooLarge),
		errors.Is(err, ipapi.ErrMalformedURL):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// writeUpstreamError：调用方输入错误原样返回说明；上游错误只返回固定文案，详情仅记日志
func writeUpstreamError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	switch {
	case errors.Is(err, ipapi.ErrMalformedURL):
		writeError(w, code, "malformed query")
	case code == http.StatusBadRequest:
		writeError(w, code, err.Error())
	case code == http.StatusGatewayTimeout:
		writeError(w, code, "upstream timeout")
	default:
		writeError(w, code, "upstream error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

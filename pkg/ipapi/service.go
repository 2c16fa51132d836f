package ipapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ipapi-client/internal/logger"
	"ipapi-client/internal/metrics"
)

// DefaultTimeout：单次调用默认超时
const DefaultTimeout = 15 * time.Second

// 响应体读取上限，批量 100 条全字段结果远小于该值
const maxBodyBytes = 4 << 20

// Doer：HTTP 传输协作方；*http.Client 满足该接口
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// 文档注释：查询服务
// 背景：持有计费方案、超时与传输实现，不持有任何请求级可变状态；同一实例可被并发调用。
// 约束：每次 Fetch/Batch 恰好发出一次 HTTP 请求并返回一个结果或一个错误；不做重试、缓存与本地限流。
type Service struct {
	plan      Plan
	timeout   time.Duration
	doer      Doer
	baseURL   string
	userAgent string
}

// Option：Service 构造选项
type Option func(*Service)

// WithTimeout：单次调用超时；<=0 表示仅受调用方 ctx 约束
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

// WithDoer：替换传输实现（自定义 *http.Client、测试桩等）
func WithDoer(d Doer) Option { return func(s *Service) { s.doer = d } }

// WithBaseURL：覆盖方案默认的协议与主机，如测试服务器或自建代理；专业档仍携带 key
func WithBaseURL(base string) Option { return func(s *Service) { s.baseURL = base } }

// WithUserAgent：设置 User-Agent 请求头
func WithUserAgent(ua string) Option { return func(s *Service) { s.userAgent = ua } }

// New：按计费方案构造服务
func New(plan Plan, opts ...Option) *Service {
	s := &Service{plan: plan, timeout: DefaultTimeout, userAgent: "ipapi-client"}
	for _, o := range opts {
		o(s)
	}
	if s.doer == nil {
		s.doer = &http.Client{Transport: logger.Transport(nil, nil)}
	}
	return s
}

// Default：免费档、默认超时的进程级实例
var Default = New(Free())

func (s *Service) Plan() Plan             { return s.plan }
func (s *Service) Timeout() time.Duration { return s.timeout }

// Lookup：查询单个 IP 或域名；query 为空时查询调用方自身出口 IP
func (s *Service) Lookup(ctx context.Context, query string) (*Result, error) {
	return s.Fetch(ctx, Request{Query: query})
}

// 文档注释：单次查询
// 流程：解析端点（json[/query]）→ 编码 fields/lang/key → GET → 解码单个结果。
// 异常：端点解析失败返回 ErrInvalidURL/ErrMalformedURL 且不发出网络请求；传输错误原样返回；
// 响应不是 JSON 对象时返回 ErrInvalidResponseData。status=fail 属于正常结果。
func (s *Service) Fetch(ctx context.Context, req Request) (*Result, error) {
	u, err := s.plan.resolve(s.baseURL, pathSingle, req.Query)
	if err != nil {
		return nil, err
	}
	u = encodeQuery(u, req)
	body, err := s.do(ctx, pathSingle, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	r, err := DecodeResult(body)
	if err != nil {
		metrics.UpstreamFailTotal.WithLabelValues(pathSingle, "decode").Inc()
		return nil, err
	}
	metrics.UpstreamSuccessTotal.WithLabelValues(pathSingle).Inc()
	if r.Failed() {
		metrics.LookupFailStatusTotal.Inc()
	}
	return r, nil
}

// 文档注释：批量查询
// 流程：校验条目 → 解析端点（batch）→ 序列化请求体 → POST → 解码结果数组。
// 约束：结果顺序与数量以服务端返回为准；超过 MaxBatchSize 直接返回 ErrBatchTooLarge；
// 条目 query 为空返回 ErrInvalidRequestData；以上情况均不发出网络请求。
func (s *Service) Batch(ctx context.Context, reqs []Request) ([]Result, error) {
	if len(reqs) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d entries, max %d", ErrBatchTooLarge, len(reqs), MaxBatchSize)
	}
	for i, r := range reqs {
		if r.Query == "" {
			return nil, fmt.Errorf("%w: entry %d has empty query", ErrInvalidRequestData, i)
		}
	}
	u, err := s.plan.resolve(s.baseURL, pathBatch, "")
	if err != nil {
		return nil, err
	}
	payload, err := encodeBatch(reqs)
	if err != nil {
		return nil, err
	}
	body, err := s.do(ctx, pathBatch, http.MethodPost, u.String(), payload)
	if err != nil {
		return nil, err
	}
	out, err := DecodeResults(body)
	if err != nil {
		metrics.UpstreamFailTotal.WithLabelValues(pathBatch, "decode").Inc()
		return nil, err
	}
	metrics.UpstreamSuccessTotal.WithLabelValues(pathBatch).Inc()
	for i := range out {
		if out[i].Failed() {
			metrics.LookupFailStatusTotal.Inc()
		}
	}
	return out, nil
}

// do：发出一次请求并读取完整响应体；状态码不参与判定，上游以 status=fail 表达查询失败
func (s *Service) do(ctx context.Context, endpoint, method, rawURL string, payload []byte) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, redactKey(err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	t0 := time.Now()
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint).Inc()
	logger.L().Debug("ipapi_req", "endpoint", endpoint, "method", method, "plan", s.plan.String(), "path", req.URL.Path)
	resp, err := s.doer.Do(req)
	if err != nil {
		metrics.UpstreamFailTotal.WithLabelValues(endpoint, "transport").Inc()
		return nil, redactKey(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		metrics.UpstreamFailTotal.WithLabelValues(endpoint, "transport").Inc()
		return nil, redactKey(err)
	}
	if len(body) > maxBodyBytes {
		metrics.UpstreamFailTotal.WithLabelValues(endpoint, "decode").Inc()
		return nil, fmt.Errorf("%w: response too large (over %d bytes)", ErrInvalidResponseData, maxBodyBytes)
	}
	dur := time.Since(t0).Milliseconds()
	metrics.UpstreamDurationMs.WithLabelValues(endpoint).Observe(float64(dur))
	recordQuota(resp.Header)
	logger.L().Debug("ipapi_resp", "endpoint", endpoint, "status_code", resp.StatusCode, "bytes", len(body), "duration_ms", dur)
	return body, nil
}

// redactKey：传输错误（*url.Error）的 URL 中去掉 key 参数，其余原样保留
func redactKey(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, perr := url.Parse(ue.URL)
	if perr != nil {
		ue.URL = ""
		return err
	}
	q := u.Query()
	if q.Has(keyParam) {
		q.Del(keyParam)
		u.RawQuery = q.Encode()
		ue.URL = u.String()
	}
	return err
}

func recordQuota(h http.Header) {
	if v, err := strconv.ParseFloat(h.Get("X-Rl"), 64); err == nil {
		metrics.QuotaRemaining.Set(v)
	}
	if v, err := strconv.ParseFloat(h.Get("X-Ttl"), 64); err == nil {
		metrics.QuotaResetSeconds.Set(v)
	}
}

package ipapi

import "errors"

// 错误分类：均为哨兵错误，调用方使用 errors.Is 判定；传输层错误原样返回，不在此归类
var (
	// 基础地址与路径无法拼装为可解析的 URL
	ErrInvalidURL = errors.New("ipapi: invalid url")
	// 查询主体无法物化为合法的路径段
	ErrMalformedURL = errors.New("ipapi: malformed url")
	// 批量请求体无法序列化，或批量条目缺少 query
	ErrInvalidRequestData = errors.New("ipapi: invalid request data")
	// 响应不是预期的 JSON 形态（单查为对象，批量为数组）
	ErrInvalidResponseData = errors.New("ipapi: invalid response data")
	// 批量条目超过服务端上限
	ErrBatchTooLarge = errors.New("ipapi: batch too large")
)

package exchange

import (
	"fmt"
	"net/http"
)

// FetchError 交易所请求失败. Status 为 0 表示请求未拿到 HTTP 响应(网络错误)
type FetchError struct {
	Endpoint string
	Status   int
	Code     int64 // 交易所业务错误码, 没有则为0
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
	}
	if e.Code != 0 {
		return fmt.Sprintf("fetch %s: status %d code %d: %v", e.Endpoint, e.Status, e.Code, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d: %v", e.Endpoint, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable 网络错误、限流(429/418)和 5xx 可以重试, 其余 4xx 重试也没用
func (e *FetchError) Retryable() bool {
	switch {
	case e.Status == 0:
		return true
	case e.Status == http.StatusTooManyRequests, e.Status == http.StatusTeapot:
		return true
	case e.Status >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

package binance

import (
	"context"
	"net/http"
)

type probeKey struct{}

type statusProbe struct {
	status int
}

func withStatusProbe(ctx context.Context) (context.Context, *statusProbe) {
	p := &statusProbe{}
	return context.WithValue(ctx, probeKey{}, p), p
}

// probeTransport 把响应状态码写回请求 ctx 中的 statusProbe.
// go-binance 的错误里没有 HTTP 状态码, 只能在传输层拿
type probeTransport struct {
	next http.RoundTripper
}

func (t *probeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	if resp != nil {
		if p, ok := req.Context().Value(probeKey{}).(*statusProbe); ok {
			p.status = resp.StatusCode
		}
	}
	return resp, err
}

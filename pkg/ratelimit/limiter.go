package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter 令牌桶限流, 每个窗口最多 n 个请求.
// 令牌不足时 Wait 阻塞直到拿到令牌, 不会返回限流错误
type Limiter struct {
	lim    *rate.Limiter
	onWait func(time.Duration)
}

type Option func(l *Limiter)

// WithWaitHook 每次需要等待令牌时回调, 用于记录日志和指标
func WithWaitHook(fn func(time.Duration)) Option {
	return func(l *Limiter) {
		l.onWait = fn
	}
}

// New n 为 window 内允许的请求数, 桶容量也是 n
func New(n int, window time.Duration, opts ...Option) *Limiter {
	if n <= 0 {
		n = 1
	}
	l := &Limiter{
		lim:    rate.NewLimiter(rate.Every(window/time.Duration(n)), n),
		onWait: func(time.Duration) {},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PerMinute 每分钟 n 个请求
func PerMinute(n int, opts ...Option) *Limiter {
	return New(n, time.Minute, opts...)
}

// Wait 取一个令牌, ctx 取消时归还预留并返回 ctx 错误
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := l.lim.Reserve()
	if !r.OK() {
		// burst >= 1, 不会发生
		return l.lim.Wait(ctx)
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	l.onWait(delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Tokens 当前可用令牌数
func (l *Limiter) Tokens() float64 {
	return l.lim.Tokens()
}

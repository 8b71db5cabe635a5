package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/KNICEX/momentum-monitor/internal/service/monitor"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SymbolLookup 只读当前快照, 不会触发刷新
type SymbolLookup interface {
	Get(symbol string) (exchange.SymbolInfo, bool)
	RefreshedAt() time.Time
	Size() int
}

type CycleReporter interface {
	LastCycle() (monitor.CycleStats, bool)
}

// Server 状态查询: /healthz, /symbols/:symbol, /metrics
type Server struct {
	echo     *echo.Echo
	addr     string
	universe SymbolLookup
	cycles   CycleReporter
}

func New(addr string, universe SymbolLookup, cycles CycleReporter, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		addr:     addr,
		universe: universe,
		cycles:   cycles,
	}
	e.GET("/healthz", s.health)
	e.GET("/symbols/:symbol", s.symbol)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return s
}

func (s *Server) Start() {
	go func() {
		slog.Info("status server listening", "addr", s.addr)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("status server stopped", "error", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	return nil
}

type cycleView struct {
	Cycle    string    `json:"cycle"`
	Started  time.Time `json:"started"`
	Duration string    `json:"duration"`
	Symbols  int       `json:"symbols"`
	Signals  int       `json:"signals"`
	Sent     int       `json:"sent"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Errors   int       `json:"errors"`
}

type healthView struct {
	Status              string     `json:"status"`
	UniverseSize        int        `json:"universe_size"`
	UniverseRefreshedAt *time.Time `json:"universe_refreshed_at,omitempty"`
	LastCycle           *cycleView `json:"last_cycle,omitempty"`
}

func (s *Server) health(c echo.Context) error {
	res := healthView{
		Status:       "ok",
		UniverseSize: s.universe.Size(),
	}
	if at := s.universe.RefreshedAt(); !at.IsZero() {
		res.UniverseRefreshedAt = &at
	} else {
		res.Status = "starting"
	}
	if stats, ok := s.cycles.LastCycle(); ok {
		res.LastCycle = &cycleView{
			Cycle:    stats.Cycle,
			Started:  stats.Started,
			Duration: stats.Duration.String(),
			Symbols:  stats.Symbols,
			Signals:  stats.Signals,
			Sent:     stats.Sent,
			Skipped:  stats.Skipped,
			Failed:   stats.Failed,
			Errors:   stats.Errors,
		}
	}
	return c.JSON(http.StatusOK, res)
}

type symbolView struct {
	Symbol         string `json:"symbol"`
	Liquid         bool   `json:"liquid"`
	ContractType   string `json:"contract_type,omitempty"`
	QuoteVolume24h string `json:"quote_volume_24h,omitempty"`
	HourlyVolume   string `json:"hourly_volume,omitempty"`
	TickSize       string `json:"tick_size,omitempty"`
	StepSize       string `json:"step_size,omitempty"`
}

func (s *Server) symbol(c echo.Context) error {
	symbol := strings.ToUpper(c.Param("symbol"))
	info, ok := s.universe.Get(symbol)
	if !ok {
		return c.JSON(http.StatusNotFound, symbolView{Symbol: symbol})
	}
	return c.JSON(http.StatusOK, symbolView{
		Symbol:         info.Symbol,
		Liquid:         true,
		ContractType:   info.ContractType,
		QuoteVolume24h: info.QuoteVolume24h.String(),
		HourlyVolume:   info.HourlyVolume().StringFixed(2),
		TickSize:       info.TickSize.String(),
		StepSize:       info.StepSize.String(),
	})
}

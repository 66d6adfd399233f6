package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/joelkehle/offerdraft/internal/config"
	"github.com/joelkehle/offerdraft/internal/ledger"
	"github.com/joelkehle/offerdraft/internal/offer"
	"github.com/joelkehle/offerdraft/internal/oraclecache"
	"github.com/joelkehle/offerdraft/internal/render"
)

// app holds the wired collaborators for one process.
type app struct {
	pipeline *offer.Pipeline
	engine   *render.Engine
	ledger   *ledger.SQLiteLedger
	log      *zap.Logger
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
}

func newOracle(ctx context.Context, c *config.Config) (offer.Oracle, error) {
	pc := c.ProviderConfig()
	switch c.Oracle.Provider {
	case config.ProviderGemini:
		return offer.NewGeminiOracle(ctx, pc)
	default:
		return offer.NewAnthropicOracle(pc)
	}
}

func newEngine(c *config.Config, log *zap.Logger) *render.Engine {
	printer := render.NewChromiumPrinter(c.Render.ChromePath, c.Render.PrintTimeout)
	return render.NewEngine(printer, c.RenderEngineConfig(), log.Named("render"))
}

// buildApp wires oracle, cache, adapter, pipeline, ledger and render engine.
func buildApp(ctx context.Context, c *config.Config, log *zap.Logger) (*app, error) {
	a := &app{engine: newEngine(c, log), log: log}

	oracle, err := newOracle(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	if c.Cache.Enabled {
		var store oraclecache.Store
		switch c.Cache.Backend {
		case config.CacheRedis:
			rs, err := oraclecache.DialRedis(ctx, c.Cache.RedisAddr, c.Cache.RedisPassword, c.Cache.RedisDB)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, rs.Close)
			store = rs
		default:
			store = oraclecache.NewMemoryStore()
		}
		oracle = oraclecache.Wrap(oracle, store, c.Cache.TTL, log.Named("cache"))
		log.Info("oracle reply cache enabled", zap.String("backend", c.Cache.Backend), zap.Duration("ttl", c.Cache.TTL))
	}

	opts := []offer.PipelineOption{offer.WithLogger(log.Named("pipeline"))}
	if c.Ledger.Enabled {
		l, err := ledger.Open(c.Ledger.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.ledger = l
		a.closers = append(a.closers, l.Close)
		opts = append(opts, offer.WithRecorder(l))
	}

	a.pipeline = offer.NewPipeline(offer.NewAdapter(oracle, c.AdapterConfig()), opts...)
	log.Info("offer pipeline ready",
		zap.String("provider", c.Oracle.Provider),
		zap.String("model", oracle.ModelName()),
		zap.Int("max_retries", c.Oracle.MaxRetries),
		zap.Duration("timeout", c.Oracle.Timeout))
	return a, nil
}

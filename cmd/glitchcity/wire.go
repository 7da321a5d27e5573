package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naveenspark/glitchcity/internal/config"
	"github.com/naveenspark/glitchcity/internal/dice"
	"github.com/naveenspark/glitchcity/internal/metrics"
	"github.com/naveenspark/glitchcity/internal/orchestrator"
	"github.com/naveenspark/glitchcity/internal/scheduler"
	"github.com/naveenspark/glitchcity/internal/session"
	"github.com/naveenspark/glitchcity/internal/store"
	"github.com/naveenspark/glitchcity/internal/targeting"
	"github.com/naveenspark/glitchcity/internal/typing"
	"github.com/naveenspark/glitchcity/pkg/generation"
)

// world is a fully wired chat: store, typing, targeting, scheduling and
// reply generation behind one session.
type world struct {
	store   *store.Store
	session *session.Session
	metrics *metrics.Metrics

	cancel context.CancelFunc
	group  *errgroup.Group
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger, seed uint64) (*world, error) {
	return buildWith(ctx, cfg, logger, seed, nil)
}

// buildWith is build with an optional generator override.
func buildWith(ctx context.Context, cfg *config.Config, logger *zap.Logger, seed uint64, gen generation.Generator) (*world, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := &world{cancel: cancel, metrics: metrics.New(), group: new(errgroup.Group)}

	if gen == nil {
		var err error
		gen, err = generation.New(ctx, cfg.GenerationOptions())
		if err != nil {
			cancel()
			return nil, err
		}
	}
	if off, ok := gen.(generation.Offline); ok {
		logger.Warn("personas are offline", zap.String("reason", off.Reason))
	}

	rng := dice.New(seed)
	w.store = store.New(cfg.World.Seed(time.Now()),
		store.WithTuning(cfg.Polls),
		store.WithRand(rng),
		store.WithLogger(logger.Named("store")),
	)
	tr := typing.New()
	orch := orchestrator.New(w.store, tr, gen, cfg.OrchestratorSettings(),
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithMetrics(w.metrics),
	)

	sess, err := session.New(ctx, session.Deps{
		Store:        w.store,
		Typing:       tr,
		Resolver:     targeting.NewResolver(cfg.Targeting, rng),
		Scheduler:    scheduler.New(cfg.Scheduler, rng, logger.Named("scheduler")),
		Orchestrator: orch,
		Rand:         rng,
		Logger:       logger.Named("session"),
		Metrics:      w.metrics,
	}, cfg.World.ActiveServer, cfg.World.ActiveChannel)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open %s/%s: %w", cfg.World.ActiveServer, cfg.World.ActiveChannel, err)
	}
	w.session = sess

	if addr := cfg.Metrics.Addr; addr != "" {
		// A failed listener is logged and surfaced by close; the chat keeps running.
		w.group.Go(func() error {
			if err := w.metrics.Serve(ctx, addr, logger); err != nil {
				logger.Error("metrics listener stopped", zap.String("addr", addr), zap.Error(err))
				return fmt.Errorf("metrics: %w", err)
			}
			return nil
		})
	}

	logger.Info("world ready",
		zap.String("server", cfg.World.ActiveServer),
		zap.String("channel", sess.ActiveChannelID()),
		zap.Int("personas", len(w.store.Personas())),
		zap.String("provider", string(cfg.Generation.Provider)),
	)
	return w, nil
}

// close stops pending replies and the metrics listener.
func (w *world) close() error {
	w.cancel()
	w.session.Close()
	return w.group.Wait()
}

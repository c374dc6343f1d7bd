package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yasashiisyndicate/ireul/internal/bus"
	"github.com/yasashiisyndicate/ireul/internal/core"
	"github.com/yasashiisyndicate/ireul/internal/icecast"
	"github.com/yasashiisyndicate/ireul/internal/rpc"
	"github.com/yasashiisyndicate/ireul/internal/web"
	"github.com/yasashiisyndicate/ireul/pkg/config"
	"github.com/yasashiisyndicate/ireul/pkg/logger"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <config-file>\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting ireul core...",
		zap.Uint32("sample_rate", cfg.SampleRate),
		zap.Int("queue_size", cfg.QueueSize))

	fallback, err := loadFallback(cfg)
	if err != nil {
		log.Fatal("Failed to load fallback track", zap.Error(err))
	}

	sink, err := icecast.NewWriter(cfg.IcecastURL, icecast.Options{
		Name:        cfg.Metadata.Name,
		Description: cfg.Metadata.Description,
		URL:         cfg.Metadata.URL,
		Genre:       cfg.Metadata.Genre,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to icecast", zap.Error(err))
	}
	defer sink.Close()

	engine := core.NewEngine(
		sink,
		core.NewClock(cfg.SampleRate),
		core.NewPlayQueue(cfg.QueueSize, cfg.HistorySize),
		fallback,
		log,
	)
	facade := core.NewFacade(engine, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	// tick loop: emits one page per wakeup, paced by granule deltas
	group.Go(func() error {
		return facade.Run(ctx)
	})

	control, err := net.Listen("tcp", cfg.ControlBind)
	if err != nil {
		log.Fatal("Failed to bind control listener", zap.Error(err))
	}
	log.Info("Control listening", zap.String("addr", cfg.ControlBind))
	group.Go(func() error {
		return rpc.NewServer(facade, log).Serve(ctx, control)
	})

	if cfg.BusEnabled {
		group.Go(func() error {
			return bus.Serve(ctx, facade, log)
		})
	}

	if cfg.HTTPBind != "" {
		srv := &http.Server{
			Addr:    cfg.HTTPBind,
			Handler: web.NewRouter(facade, cfg.IsProduction(), log),
		}
		group.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		log.Info("Status API listening", zap.String("addr", cfg.HTTPBind))
	}

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Error("Server exited with error", zap.Error(err))
	}
	log.Info("Server exited")
}

// loadFallback reads the configured fallback track, or the built-in dead
// air when none is configured, and validates it against the stream's
// sample rate.
func loadFallback(cfg *config.Config) (*core.Track, error) {
	buf := core.DeadAir()
	if cfg.FallbackTrack != "" {
		var err error
		buf, err = os.ReadFile(cfg.FallbackTrack)
		if err != nil {
			return nil, err
		}
	}
	return core.ValidateTrack(buf, cfg.SampleRate)
}

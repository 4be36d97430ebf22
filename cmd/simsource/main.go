// Command simsource serves a synthetic sensor upstream exposing the
// /api/combined and /api/landslide endpoints the dashboards poll.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/slopewatch/internal/simsource"
	"github.com/okian/slopewatch/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	var (
		addr      = flag.String("addr", ":5000", "Listen address")
		interval  = flag.Duration("interval", simsource.DefaultInterval, "Interval between generated readings")
		window    = flag.Int("window", simsource.DefaultWindow, "Number of readings kept for /api/landslide")
		errorRate = flag.Float64("error-rate", 0, "Probability [0,1] of answering with an error marker")
		seed      = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Generator seed")
		logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		logFormat = flag.String("log-format", "text", "Log format (text, json)")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(*logLevel); err != nil {
		os.Stderr.WriteString("Invalid log level: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("simsource")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src := simsource.New(
		simsource.WithWindow(*window),
		simsource.WithErrorRate(*errorRate),
		simsource.WithSeed(*seed),
		simsource.WithLogger(log),
	)
	src.Tick()
	go src.Run(ctx, *interval)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           src.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "serving synthetic upstream",
			logger.String("addr", *addr),
			logger.String("runID", src.RunID()),
			logger.Uint64("seed", *seed),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "shutdown failed", logger.Error(err))
	}
}

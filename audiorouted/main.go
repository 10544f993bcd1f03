package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/companyzero/audioroute/internal/netutils"
	"github.com/companyzero/audioroute/internal/version"
	"github.com/companyzero/audioroute/lockfile"
	"github.com/companyzero/audioroute/router"
	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// lockTimeout is how long to wait for another instance to release the lock
// file.
const lockTimeout = 5 * time.Second

// runPrometheusListener serves the router and process metrics in the given
// address.
func runPrometheusListener(ctx context.Context, addr string, r *router.Router, log slog.Logger) error {
	procReg := prometheus.NewRegistry()
	procReg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	procReg.MustRegister(collectors.NewGoCollector())

	listeners, err := netutils.Listen(ctx, addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	promHandler := promhttp.InstrumentMetricHandler(procReg,
		promhttp.HandlerFor(prometheus.Gatherers{procReg, r.Gatherer()},
			promhttp.HandlerOpts{}))
	mux.Handle("/metrics", promHandler)
	hs := http.Server{
		BaseContext: func(net.Listener) context.Context { return ctx },
		Handler:     mux,
	}
	log.Infof("Exposing prometheus metrics on %s", addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return hs.Shutdown(ctx)
	})
	for _, l := range listeners {
		g.Go(func() error {
			err := hs.Serve(l)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// runRouter drives the router until ctx is done.
func runRouter(ctx context.Context, r *router.Router, pin router.Device, log slog.Logger) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop()

	if pin != "" {
		if err := r.SelectDevice(pin); err != nil {
			log.Warnf("Unable to pin audio output to %s: %v", pin, err)
		}
	}

	sigs := make(chan os.Signal, 1)
	if len(switchSignals) > 0 {
		signal.Notify(sigs, switchSignals...)
		defer signal.Stop(sigs)
	}

	for {
		select {
		case <-sigs:
			if err := r.SwitchDevice(); err != nil {
				log.Warnf("Unable to switch audio output: %v", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func acquireLock(ctx context.Context, fname string) (*lockfile.LockFile, error) {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	lf, err := lockfile.Create(ctx, fname)
	if errors.Is(err, context.DeadlineExceeded) {
		if holder, herr := lockfile.ReadHolder(fname); herr == nil {
			return nil, fmt.Errorf("lock file %s is held by %s", fname, holder)
		}
		return nil, fmt.Errorf("lock file %s is held by another process", fname)
	}
	return lf, err
}

func realMain() error {
	// Settings.
	cfg, err := obtainSettings()
	if err != nil {
		return err
	}

	// Log.
	logBackend := &logBackend{
		stdOut: os.Stdout,
	}
	if cfg.LogFile != "" {
		logDir := filepath.Dir(cfg.LogFile)
		err := os.MkdirAll(logDir, 0700)
		if err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		logRotator, err := rotator.New(cfg.LogFile, 1024, false, maxLogFiles)
		if err != nil {
			return fmt.Errorf("failed to create file rotator: %w", err)
		}
		logBackend.logRotator = logRotator
	}
	defer logBackend.Close()

	logLevel, ok := slog.LevelFromString(cfg.DebugLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.DebugLevel)
	}
	logBknd := slog.NewBackend(logBackend)
	newLogger := func(subsys string) slog.Logger {
		l := logBknd.Logger(subsys)
		l.SetLevel(logLevel)
		return l
	}
	log := newLogger("ARTD")
	log.Infof("Running audiorouted version %s", version.String())

	// Main context.
	errMainCtxCanceled := errors.New("main context canceled")
	sigCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, mainCancel := context.WithCancelCause(context.Background())
	go func() {
		<-sigCtx.Done()
		log.Infof("Interrupt detected. Shutting down.")
		mainCancel(errMainCtxCanceled)
	}()

	// Single instance.
	lf, err := acquireLock(ctx, cfg.LockFile)
	if err != nil {
		return err
	}
	defer lf.Close()

	// Presence sources and sink.
	presLog := newLogger("PRES")
	bt, err := newPresenceSource(router.PeripheralBluetooth, cfg.Bluetooth, presLog)
	if err != nil {
		return err
	}
	wired, err := newPresenceSource(router.PeripheralWired, cfg.Wired, presLog)
	if err != nil {
		return err
	}
	cmdSink, closeSink, err := newSink(cfg.Sink, newLogger("SINK"))
	if err != nil {
		return err
	}
	defer closeSink()

	// Router.
	opts := []router.Option{
		router.WithLogger(newLogger("ROUT")),
		router.WithObserver(func(selected router.Device, available router.DeviceSet) {
			log.Infof("Audio output is %s (available %s)", selected, available)
		}),
	}
	if cfg.Fallback != "" {
		opts = append(opts, router.WithFallbackDevice(cfg.Fallback))
	}
	r := router.New(cmdSink, bt, wired, opts...)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.ListenPrometheus != "" {
		g.Go(func() error { return runPrometheusListener(gctx, cfg.ListenPrometheus, r, log) })
	}
	g.Go(func() error { return runRouter(gctx, r, cfg.Pin, log) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) && context.Cause(ctx) == errMainCtxCanceled {
		// Ignore graceful shutdown error.
		return nil
	}
	return err
}

func main() {
	err := realMain()
	if err != nil {
		fmt.Println("Error:", err.Error())
		os.Exit(1)
	}
}

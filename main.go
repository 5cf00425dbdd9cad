package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"media-gateway/internal/admission"
	"media-gateway/internal/command"
	"media-gateway/internal/fetch"
	"media-gateway/internal/gateway"
	"media-gateway/internal/handlers"
	"media-gateway/internal/logging"
	"media-gateway/internal/memory"
	"media-gateway/internal/metrics"
	"media-gateway/internal/middleware"
	"media-gateway/internal/startup"
	"media-gateway/internal/streaming"
	"media-gateway/internal/transcoder"
	"media-gateway/internal/workers"
)

const serviceName = "media-gateway"

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	mc := memory.Configure(config.MemoryLimit, config.MemoryRatio)
	startup.LogMemoryConfig(startup.MemoryConfig{
		Configured:     mc.Configured,
		Source:         mc.Source,
		ContainerLimit: mc.ContainerLimit,
		GoMemLimit:     mc.GoMemLimit,
		Ratio:          mc.Ratio,
	})

	checkCtx, cancelCheck := context.WithTimeout(context.Background(), 10*time.Second)
	tools := startup.CheckTools(checkCtx, config.FFmpegPath, config.FFprobePath)
	cancelCheck()
	if !tools.Ready() {
		logging.Warn("External tools missing; /readyz will report not_ready")
	}

	trans := transcoder.New(transcoder.Config{
		FFmpegPath:  config.FFmpegPath,
		FFprobePath: config.FFprobePath,
		ChunkSize:   config.ChunkSize,
		StderrLimit: config.StderrLimit,
		KillGrace:   config.KillGrace,
	})

	pool := admission.NewPool(
		workers.Resolve(config.Workers, workers.DefaultLimit),
		config.Concurrency,
		admission.WithTimeout(config.AdmissionTimeout),
		admission.WithWaitObserver(func(d time.Duration) {
			metrics.AdmissionWaitDuration.Observe(d.Seconds())
		}),
		admission.WithDoubleReleaseObserver(func() {
			metrics.AdmissionDoubleReleasesTotal.Inc()
		}),
	)

	// Validate already rejected unknown modes.
	fetchMode, _ := gateway.ParseFetchMode(config.FetchMode)
	fetcher := fetch.New(fetch.Config{
		Ceiling: config.FetchCeiling,
		Timeout: config.FetchTimeout,
	})

	gw := gateway.New(pool, gateway.TranscoderRunner{T: trans}, fetcher, gateway.Config{
		FetchMode: fetchMode,
		Stream:    streamingConfig(config),
	})

	// Metrics
	kinds := make([]string, 0, len(command.Kinds))
	for _, k := range command.Kinds {
		kinds = append(kinds, string(k))
	}
	metrics.InitializeMetrics(kinds)
	buildInfo := startup.GetBuildInfo()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion)
	collector := metrics.NewCollector(pool, 15*time.Second)
	collector.Start()

	h := handlers.New(gw, tools)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           buildHandler(router, config),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Streams enforce their own per-write deadlines.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if metricsSrv != nil {
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(ctx, config.ShutdownTimeout, srv, metricsSrv, collector, trans)
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		Workers:         pool.Workers(),
		Concurrency:     config.Concurrency,
		StartupDuration: time.Since(startTime),
	})

	if err := g.Wait(); err != nil {
		startup.LogFatal("Server error: %v", err)
	}
}

// buildHandler wraps the router in the middleware stack, outermost first.
func buildHandler(router http.Handler, config *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	handler := middleware.Compression(middleware.DefaultCompressionConfig())(router)
	handler = middleware.RateLimit(middleware.RateLimitConfig{
		RequestLimit: config.RateLimitRequests,
		WindowSize:   config.RateLimitWindow,
	})(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	if config.TracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	handler = middleware.RequestID(handler)
	return middleware.Recoverer(handler)
}

func streamingConfig(config *startup.Config) streaming.TimeoutWriterConfig {
	return streaming.TimeoutWriterConfig{
		WriteTimeout: config.StreamWriteTimeout,
		IdleTimeout:  config.StreamIdleTimeout,
		MaxDuration:  config.StreamMaxDuration,
		ChunkSize:    config.ChunkSize,
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = handlers.NotFound()
	r.MethodNotAllowedHandler = handlers.MethodNotAllowed()

	// Health check and info routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.HandleFunc("/buildinfo", h.GetBuildInfo).Methods("GET")

	// Transforms
	r.HandleFunc("/thumb", h.Thumbnail).Methods("GET")
	r.HandleFunc("/video", h.VideoFrame).Methods("GET")
	r.HandleFunc("/preview", h.Preview).Methods("GET")
	r.HandleFunc("/webm", h.WebM).Methods("GET")
	r.HandleFunc("/meta", h.Meta).Methods("GET")

	return r
}

// shutdown stops the servers once ctx is done. Running tools are killed
// before srv.Shutdown so open streams end.
func shutdown(ctx context.Context, timeout time.Duration, srv, metricsSrv *http.Server, collector *metrics.Collector, trans *transcoder.Transcoder) error {
	if ctx.Err() != nil {
		startup.LogShutdownInitiated("signal")
	} else {
		startup.LogShutdownInitiated("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep(fmt.Sprintf("Terminating %d running tools", trans.Running()))
	trans.Cleanup()
	startup.LogShutdownStepComplete("Tools terminated")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
	return nil
}

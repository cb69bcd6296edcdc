package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deep-rent/wiring/cache"
	"github.com/deep-rent/wiring/config"
	"github.com/deep-rent/wiring/di"
	"github.com/deep-rent/wiring/internal/service"
	"github.com/deep-rent/wiring/log"
	"github.com/deep-rent/wiring/metrics"
	"github.com/deep-rent/wiring/middleware"
	"github.com/deep-rent/wiring/router"
	"github.com/deep-rent/wiring/tracing"
)

func (f *flags) load() (*config.Config, error) {
	var opts []config.Option
	if f.file != "" {
		opts = append(opts, config.WithFile(f.file))
	}
	if len(f.envFiles) > 0 {
		opts = append(opts, config.WithEnvFiles(f.envFiles...))
	}
	return config.Load(opts...)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return log.New(
		log.WithLevel(cfg.LogLevel),
		log.WithFormat(cfg.LogFormat),
	)
}

// assemble wires the injector and the router of the puppy service.
func assemble(cfg *config.Config, logger *slog.Logger) *router.Router {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs := metrics.New()
	obs.MustRegister(registry)

	values := cache.New(
		cache.WithCapacity[string, any](cfg.CacheSize),
		cache.WithLogger[string, any](logger),
	)

	secret := []byte(cfg.JWTSecret)
	in := di.New(
		di.WithAmbient(router.Ambient()),
		di.WithComponents(service.Components(service.Options{
			Secret: secret,
			Logger: logger,
		})...),
		di.WithValueCache(values),
		di.WithObserver(obs),
		di.WithObserver(tracing.New()),
		di.WithLogger(logger),
	)

	r := router.New(
		router.WithInjector(in),
		router.WithLogger(logger),
		router.WithMiddleware(
			middleware.Recover(logger),
			middleware.RequestID(),
			middleware.Log(logger),
		),
	)
	service.Routes(r, len(secret) > 0)
	r.Mount("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return r
}

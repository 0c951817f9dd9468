package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coffeeroaster/internal/adapters/httpapi"
	"coffeeroaster/internal/machines/watch"
	"coffeeroaster/internal/reports"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, export worker and roast log watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, cmd)
		},
	}
}

func runServe(parent context.Context, ctx *commandContext, cmd *cobra.Command) error {
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := ctx.openRuntime(signalCtx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.cfg
	logger := rt.logger

	catalog, err := reports.NewDefaultCatalog(rt.svc)
	if err != nil {
		return err
	}
	worker, err := rt.exportWorker(rt.registry)
	if err != nil {
		return err
	}

	var watcher *watch.Watcher
	if dir := cfg.Machines.WatchDir; dir != "" {
		watcher, err = watch.New(dir, rt.svc.DropImporter(cfg.Machines.Adapter),
			watch.WithLogger(logger.Named("watch")),
			watch.WithDebounce(cfg.Machines.Debounce()),
			watch.WithExtensions(cfg.Machines.Extensions...),
		)
		if err != nil {
			return err
		}
	}
	worker.Start()

	opts := []httpapi.Option{
		httpapi.WithReports(catalog),
		httpapi.WithExports(worker),
		httpapi.WithLogger(logger.Named("http")),
	}
	if cfg.Server.MetricsEnabled {
		opts = append(opts, httpapi.WithGatherer(rt.registry))
	}
	server := &http.Server{
		Addr:         cfg.Server.Bind,
		Handler:      httpapi.NewRouter(rt.svc, opts...),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		BaseContext:  func(net.Listener) context.Context { return signalCtx },
	}

	g, gctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("bind", cfg.Server.Bind))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
		defer cancel()
		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := worker.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("export worker shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	logger.Info("roasterd stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

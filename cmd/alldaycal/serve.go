package main

import (
	"context"
	"net"
	"time"

	"github.com/spf13/cobra"

	"alldaycal/internal/capture"
	appLog "alldaycal/internal/log"
	"alldaycal/internal/refresh"
	"alldaycal/internal/render"
	"alldaycal/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout over HTTP and refresh it on schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	appLog.Info("alldaycal starting", "version", version, "listen", cfg.Listen, "sources", len(cfg.Sources))

	store := refresh.NewStore()
	pipeline := refresh.NewPipeline(cfg, nil)

	var hook refresh.Hook
	if cfg.Capture {
		hook = a.captureHook()
	}
	sched, err := refresh.NewScheduler(cfg.RefreshCron, cfg.Location(), pipeline, store, hook)
	if err != nil {
		return err
	}

	srv := web.NewServer(cfg, store, sched)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	sched.Start(ctx)
	err = <-errCh

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sched.Stop(stopCtx)
	appLog.Info("alldaycal exiting")
	return err
}

// captureHook screenshots /allday into the preview path after a refresh.
func (a *app) captureHook() refresh.Hook {
	cfg := a.cfg
	return func(ctx context.Context, snap *refresh.Snapshot) {
		w, h := render.Size(snap, render.DefaultTheme())
		opts := capture.Options{
			URL:        localURL(cfg.Listen) + "/allday",
			OutputPath: cfg.PreviewPath,
			Width:      int(w + 0.5),
			Height:     int(h + 0.5),
			TriColor:   cfg.TriColor,
		}
		if cfg.BasicAuth != nil {
			opts.Username, opts.Password = cfg.BasicAuth.Username, cfg.BasicAuth.Password
		}
		if err := capture.PNG(ctx, opts); err != nil {
			appLog.Error("preview capture failed", err, "snapshot", snap.ID)
		}
	}
}

// localURL returns the loopback base URL of a listen address.
func localURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

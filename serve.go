package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rss-scn/internal/logx"
	"rss-scn/internal/metrics"
	"rss-scn/internal/products"
	"rss-scn/internal/server"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /api/messages as RSS",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			// 标签目录加载失败时拒绝启动
			tags, err := products.Load(cfg.ProductsFile)
			if err != nil {
				return fmt.Errorf("load managed tags: %w", err)
			}
			logx.Infof("loaded %d managed tags from %s", tags.Len(), cfg.ProductsFile)

			m := metrics.New()
			_, cc, err := newCommunity(cfg, cfg.Community.Retry, m)
			if err != nil {
				return err
			}
			api := server.New(cfg, tags, cc, m)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx, server.NewHTTPServer(cfg, api.Routes()))
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override LISTEN / PORT (e.g. :3100)")
	return cmd
}

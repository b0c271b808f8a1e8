package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rss-scn/internal/follow"
	"rss-scn/internal/logx"
	"rss-scn/internal/metrics"
	"rss-scn/internal/opml"
)

func opmlCmd(g *globalFlags) *cobra.Command {
	var (
		profileID   string
		output      string
		metricsFile string
	)
	cmd := &cobra.Command{
		Use:   "opml",
		Short: "Export the feeds of everyone a profile follows as OPML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if profileID == "" {
				profileID = cfg.OPML.ProfileID
			}
			if profileID == "" {
				return errors.New("profile id required: set OPML.profile_id or pass --profile")
			}
			if output == "" {
				output = cfg.OPML.Output
			}

			m := metrics.New()
			cl, cc, err := newCommunity(cfg, cfg.OPML.Retry, m)
			if err != nil {
				return err
			}
			res := follow.New(cl, cc, follow.Options{
				ProfileAPI:  cfg.OPML.ProfileAPI,
				ProfileSite: cfg.OPML.ProfileSite,
				SearchProxy: cfg.OPML.SearchProxy,
				FeedBaseURL: cfg.OPML.FeedBaseURL,
				Concurrency: cfg.OPML.Concurrency,
				Observe:     m.ObserveFollower,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := export(ctx, res, profileID, output); err != nil {
				return err
			}
			if metricsFile != "" {
				if err := m.WriteTextfile(metricsFile); err != nil {
					logx.Warnf("write metrics textfile %s: %v", metricsFile, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "profile id whose follow list is exported (overrides OPML.profile_id)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (overrides OPML.output)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write run metrics in Prometheus textfile format")
	return cmd
}

func export(ctx context.Context, res *follow.Resolver, profileID, output string) error {
	outcomes, err := res.Run(ctx, profileID)
	if err != nil {
		return err
	}
	resolved, skipped := follow.Summary(outcomes)
	if err := opml.WriteFile(output, follow.Feeds(outcomes), time.Now()); err != nil {
		return err
	}
	logx.Infof("OPML written to %s: %d feeds, %d skipped", output, resolved, skipped)
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"auctionhub/internal/auth"
	"auctionhub/internal/extractor"
	"auctionhub/internal/feed"
	"auctionhub/internal/models"
	"auctionhub/internal/repository/memory"
	"auctionhub/internal/service"
)

func scrapeCmd() *cobra.Command {
	var houseID int
	var sync bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "scrape one auction house, or all of them.",
		Long:  "scrape one auction house, or all of them. Without --sync, houses start staggered and overlap.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()
			store, closeStore, err := e.openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			locker, closeLocker, err := e.openLocker(cmd.Context())
			if err != nil {
				return err
			}
			defer closeLocker()

			svc := &service.ScrapeService{
				Registry: extractor.DefaultRegistry(extractor.NewFetcher(e.cfg.HTTP, e.logger), e.cfg.Aggregator, e.logger),
				Lots:     store,
				Runs:     store,
				Locker:   locker,
				Logger:   e.logger,
				Config:   e.cfg.Scrape,
			}
			ctx := cmd.Context()

			if houseID != 0 {
				run, err := svc.RunHouse(ctx, houseID, models.TriggerCLI)
				if err != nil {
					return err
				}
				printRuns(cmd, []models.ScrapeRun{*run})
				if run.Status == models.RunFailed {
					return errors.New("scrape failed")
				}
				return nil
			}

			runs := svc.RunAll(ctx, service.RunAllOptions{Sync: sync, Stagger: e.cfg.Scrape.Stagger, Trigger: models.TriggerCLI})
			printRuns(cmd, runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&houseID, "house", 0, "auction house id (default all)")
	cmd.Flags().BoolVar(&sync, "sync", false, "run houses one after another")
	return cmd
}

func printRuns(cmd *cobra.Command, runs []models.ScrapeRun) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HOUSE\tNAME\tSTATUS\tFOUND\tNEW\tDURATION\tERROR")
	for _, r := range runs {
		msg := ""
		if r.ErrorMessage != nil {
			msg = *r.ErrorMessage
			if rs := []rune(msg); len(rs) > 60 {
				msg = string(rs[:60]) + "..."
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.AuctionHouseID, r.HouseName, r.Status, r.LotsFound, r.LotsNew,
			(time.Duration(r.DurationMs) * time.Millisecond).String(), msg)
	}
	_ = w.Flush()
}

func updateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-status",
		Short: "mark past upcoming lots unsold.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()
			store, closeStore, err := e.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			sweep := &service.StatusSweepService{Lots: store, Logger: e.logger, Location: e.cfg.Cron.Location()}
			n, err := sweep.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d lots unsold\n", n)
			return nil
		},
	}
}

func feedCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "crawl the aggregator and write the JSON feed.",
		Long:  "crawl the aggregator into memory and write the JSON feed. No database is needed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()
			if out == "" {
				out = e.cfg.Feed.Path
			}

			locker, closeLocker, err := e.openLocker(cmd.Context())
			if err != nil {
				return err
			}
			defer closeLocker()

			reg := extractor.NewRegistry()
			reg.Register(extractor.NewAggregator(e.cfg.Aggregator, extractor.NewFetcher(e.cfg.HTTP, e.logger), e.logger))
			store := memory.New()
			svc := &service.ScrapeService{
				Registry: reg,
				Lots:     store,
				Runs:     store,
				Locker:   locker,
				Logger:   e.logger,
				Config:   e.cfg.Scrape,
			}
			run, err := svc.RunHouse(cmd.Context(), extractor.HouseAggregator, models.TriggerCLI)
			if err != nil {
				return err
			}
			if run.Status == models.RunFailed {
				// Keep the previous feed rather than publish an empty one.
				return fmt.Errorf("aggregator crawl failed: %s", deref(run.ErrorMessage))
			}

			feedSvc := &service.FeedService{
				Lots:            store,
				Writer:          &feed.Writer{Path: out},
				Logger:          e.logger,
				Location:        e.cfg.Cron.Location(),
				RefreshInterval: e.cfg.Feed.RefreshInterval,
			}
			stats, err := feedSvc.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			e.logger.Info("feed done", zap.String("path", out), zap.Int("total", stats.Total), zap.Any("by_type", stats.ByType))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d unique lots)\n", out, stats.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default feed.path)")
	return cmd
}

func housesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "houses",
		Short: "list registered auction houses.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()
			reg := extractor.DefaultRegistry(extractor.NewFetcher(e.cfg.HTTP, e.logger), e.cfg.Aggregator, e.logger)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, h := range reg.Houses() {
				fmt.Fprintf(w, "%d\t%s\n", h.ID, h.Name)
			}
			return w.Flush()
		},
	}
}

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "mint an admin API token.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()
			if ttl <= 0 {
				ttl = e.cfg.Admin.TokenTTL
			}
			j := auth.JWT{Secret: []byte(e.cfg.Admin.JWTSecret), TokenTTL: ttl}
			token, exp, err := j.Sign(subject, auth.RoleAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default admin.token_ttl)")
	return cmd
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

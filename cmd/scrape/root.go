package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"timeline_syncer/internal/app"
	"timeline_syncer/internal/config"
	"timeline_syncer/internal/domain"
	"timeline_syncer/internal/service"
)

const allAuthors = "*"

type options struct {
	configFile string
	count      int
	force      bool
	noInput    bool
}

type scraper interface {
	Scrape(ctx context.Context, ref domain.AuthorRef, count int, onlyRecent bool) (*domain.ScrapeResult, error)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "scrape [flags] <handle|*>",
		Short: "Scrape Twitter timelines for new photos",
		Long: `Scrape fetches the recent timeline of one account and stores every new photo.

Passing * rescrapes every known author by stable ID and requires --force.`,
		Example: `  # Fetch photos posted since the last scrape
  scrape alice

  # Examine the last 1000 posts regardless of the previous scrape
  scrape -c 1000 -f alice

  # Rescrape every known author without prompting
  scrape -f -y '*'`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.configFile, "config", "config.yaml", "path to config file")
	cmd.Flags().IntVarP(&opts.count, "count", "c", 0, "number of timeline items to examine, at least 5 (default sync.default_count)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "rescrape the whole window instead of only items since the last scrape")
	cmd.Flags().BoolVarP(&opts.noInput, "no-input", "y", false, "do not ask for confirmation")

	cmd.CompletionOptions.DisableDefaultCmd = true

	return cmd
}

func runScrape(cmd *cobra.Command, opts *options, target string) error {
	if target == allAuthors && !opts.force {
		return errors.New("rescraping every author requires --force")
	}

	countSet := cmd.Flags().Changed("count")
	if countSet {
		if err := validateCount(opts.count); err != nil {
			return err
		}
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}

	count := cfg.Sync.DefaultCount
	if countSet {
		count = opts.count
	}

	logger := app.NewLogger(cfg.LogLevel)
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := cmd.OutOrStdout()

	if target != allAuthors {
		return scrapeOne(ctx, out, a.Scraper, domain.ByHandle(target), count, !opts.force)
	}

	authors, err := a.Authors.List(ctx)
	if err != nil {
		return err
	}
	images, err := a.Media.Count(ctx)
	if err != nil {
		return err
	}

	if !opts.noInput && !confirm(cmd.InOrStdin(), out, len(authors), images) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	return scrapeAll(ctx, out, a.Scraper, authors, count)
}

func validateCount(count int) error {
	if count < service.MinCount {
		return fmt.Errorf("%w: --count must be at least %d", domain.ErrInvalidArgument, service.MinCount)
	}
	return nil
}

func scrapeOne(ctx context.Context, out io.Writer, s scraper, ref domain.AuthorRef, count int, onlyRecent bool) error {
	result, err := s.Scrape(ctx, ref, count, onlyRecent)
	if err != nil {
		return fmt.Errorf("%s: %w", ref, err)
	}
	fmt.Fprintf(out, "%s: examined %d, found %d, added %d\n",
		ref, result.ItemsExamined, result.MediaFound, result.MediaAdded)
	return nil
}

// scrapeAll runs a full rescrape of every author. A rate limit stops the
// batch; any other failure is reported and skipped.
func scrapeAll(ctx context.Context, out io.Writer, s scraper, authors []domain.Author, count int) error {
	var failed int
	for _, author := range authors {
		err := scrapeOne(ctx, out, s, domain.ByPlatformID(author.PlatformID), count, false)
		if err == nil {
			continue
		}
		if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, context.Canceled) {
			return err
		}
		failed++
		fmt.Fprintf(out, "skipping @%s: %v\n", author.Handle, err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d authors failed", failed, len(authors))
	}
	return nil
}

func confirm(in io.Reader, out io.Writer, users int, images int64) bool {
	fmt.Fprintf(out, "Are you sure you want to rescrape %d users and %d images? [y/N] ", users, images)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

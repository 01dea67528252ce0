// Command rest-pager collects all pages of a paginated REST endpoint and
// writes the normalized records as NDJSON to stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/rest-pager/internal/config"
	"github.com/Sternrassler/rest-pager/pkg/fetch"
	"github.com/Sternrassler/rest-pager/pkg/logging"
	"github.com/Sternrassler/rest-pager/pkg/normalize"
	"github.com/Sternrassler/rest-pager/pkg/paginate"
)

type collectFlags struct {
	configPath  string
	baseURL     string
	segments    []string
	params      []string
	pageParam   string
	maxPages    int
	maxRecords  int
	recordsPath string
	pagesField  string
	countField  string
	pageField   string
	sizeField   string
	bareArray   bool
	separator   string
	emptyStops  bool
	parallel    bool
	concurrency int
	metricsAddr string
}

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rest-pager",
		Short:         "Collect paginated REST API data as flat records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCollectCmd())
	return root
}

func newCollectCmd() *cobra.Command {
	flags := &collectFlags{}

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Paginate an endpoint and write NDJSON records to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "config.yaml", "path to YAML config file")
	cmd.Flags().StringVar(&flags.baseURL, "base-url", "", "endpoint base URL (required)")
	cmd.Flags().StringSliceVar(&flags.segments, "path", nil, "path segment, repeatable")
	cmd.Flags().StringArrayVar(&flags.params, "param", nil, "query parameter as key=value, repeatable")
	cmd.Flags().StringVar(&flags.pageParam, "page-param", "page", "query key carrying the page cursor")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", 0, "maximum pages to fetch (0 = unbounded)")
	cmd.Flags().IntVar(&flags.maxRecords, "max-records", 0, "maximum records to accumulate (0 = unbounded)")
	cmd.Flags().StringVar(&flags.recordsPath, "records-field", "records", "envelope path of the record list")
	cmd.Flags().StringVar(&flags.pagesField, "pages-field", "pages", "envelope key holding the total page count")
	cmd.Flags().StringVar(&flags.countField, "count-field", "count", "envelope key holding the total record count")
	cmd.Flags().StringVar(&flags.pageField, "page-field", "page", "envelope key holding the current page")
	cmd.Flags().StringVar(&flags.sizeField, "size-field", "per_page", "envelope key holding the page size")
	cmd.Flags().BoolVar(&flags.bareArray, "bare-array", false, "the body is a plain JSON array with no envelope")
	cmd.Flags().StringVar(&flags.separator, "separator", ".", "separator for flattened record keys")
	cmd.Flags().BoolVar(&flags.emptyStops, "empty-page-stops", false, "terminate on the first empty page instead of trusting totals")
	cmd.Flags().BoolVar(&flags.parallel, "parallel", false, "fetch pages 2..N in parallel once page 1 reveals the total")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 10, "worker count for --parallel")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address during the run")
	cmd.MarkFlagRequired("base-url")

	return cmd
}

func runCollect(ctx context.Context, flags *collectFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	params, err := parseParams(flags.params)
	if err != nil {
		return err
	}

	fetchCfg := fetch.DefaultConfig(cfg.UserAgent)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		fetchCfg.Redis = redisClient
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Response cache enabled")
	}

	fetcher, err := fetch.New(fetchCfg)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	metricsAddr := flags.metricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.Metrics.Addr
	}
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info().Str("addr", metricsAddr).Msg("Serving Prometheus metrics")
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Warn().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	opts := paginate.Options{
		PageParam:  flags.pageParam,
		MaxPages:   flags.maxPages,
		MaxRecords: flags.maxRecords,
		BareArray:  flags.bareArray,
		Separator:  flags.separator,
	}
	if !flags.bareArray {
		opts.Fields = normalize.FieldMap{
			PageField:    flags.pageField,
			PagesField:   flags.pagesField,
			CountField:   flags.countField,
			SizeField:    flags.sizeField,
			RecordsField: flags.recordsPath,
		}
	}
	if flags.emptyStops {
		opts.Policy = paginate.EmptyPagePolicy
	}

	var result *paginate.Result
	var runErr error
	if flags.parallel {
		bc := paginate.NewBatchCollector(fetcher, opts, paginate.BatchConfig{
			MaxConcurrency: flags.concurrency,
		})
		result, runErr = bc.Collect(ctx, flags.baseURL, flags.segments, params)
	} else {
		c := paginate.NewController(fetcher, opts)
		result, runErr = c.Run(ctx, flags.baseURL, flags.segments, params)
	}

	// Emit whatever was collected, even on failure: partial data is still
	// data, and the exit code tells the caller the run was incomplete.
	if result != nil {
		if err := writeNDJSON(os.Stdout, result); err != nil {
			return fmt.Errorf("write records: %w", err)
		}
	}

	if runErr != nil {
		var partial *paginate.PartialError
		if errors.As(runErr, &partial) {
			log.Error().
				Err(runErr).
				Int("records", len(partial.Partial.Records)).
				Msg("Collection incomplete - partial records written")
		}
		return runErr
	}

	log.Info().
		Int("pages", result.Pages).
		Int("records", len(result.Records)).
		Str("stop", string(result.Stop)).
		Msg("Collection complete")

	return nil
}

// parseParams converts repeated key=value flags into a parameter map.
// A key given twice keeps the later value.
func parseParams(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

// writeNDJSON writes one JSON object per record line.
func writeNDJSON(w *os.File, result *paginate.Result) error {
	enc := json.NewEncoder(w)
	for _, record := range result.Records {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	return nil
}

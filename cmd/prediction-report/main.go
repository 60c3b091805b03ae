package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/radiusdt/prediction-monitor/internal/config"
	"github.com/radiusdt/prediction-monitor/internal/database"
	"github.com/radiusdt/prediction-monitor/internal/export"
	"github.com/radiusdt/prediction-monitor/internal/guidelines"
	"github.com/radiusdt/prediction-monitor/internal/httpserver"
	"github.com/radiusdt/prediction-monitor/internal/middleware"
	"github.com/radiusdt/prediction-monitor/internal/prediction"
	"github.com/radiusdt/prediction-monitor/internal/reporting"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:          "prediction-report",
		Short:        "Summarize prediction health from the configured snapshot source",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before configuration")

	open := func(ctx context.Context) (*reporting.Service, func(), error) {
		return openService(ctx, envFile)
	}

	rootCmd.AddCommand(
		newChannelsCmd(open),
		newOverallCmd(open),
		newReportCmd(open),
		newTrendCmd(open),
		newStatusCmd(open),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type openFunc func(ctx context.Context) (*reporting.Service, func(), error)

// openService connects to the stores the configuration asks for and builds
// the reporting service. The returned func closes the connections.
func openService(ctx context.Context, envFile string) (*reporting.Service, func(), error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, "console")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		_ = logger.Sync()
	}

	deps := &httpserver.Dependencies{Config: cfg, Logger: logger}

	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Warn("PostgreSQL not available, custom mappings disabled", zap.Error(err))
		} else {
			closers = append(closers, db.Close)
			deps.DB = db
		}
	}

	if cfg.Report.Source == config.SourceClickHouse {
		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = ch.Close() })
		deps.ClickHouse = ch
	}

	svc, err := httpserver.NewReportingService(deps)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return svc, closeAll, nil
}

// summaryFlags are the summary parameters shared by the commands.
type summaryFlags struct {
	start    string
	end      string
	window   string
	period   string
	debug    bool
	mappings []string
}

func (f *summaryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "First day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "Last day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.window, "window", "", "Window length in days or as a duration (7, 168h)")
	cmd.Flags().StringVar(&f.period, "period", "", "Bucket the summary by period: 1d, 2w, 1mo, 1q, 1y")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Keep the Period column in channel summaries")
	cmd.Flags().StringArrayVar(&f.mappings, "mapping", nil, "Custom mapping name,channel,direction[,standard[,multichannel]] (repeatable)")
}

func (f *summaryFlags) request() (reporting.Request, error) {
	req := reporting.Request{Period: f.period, Debug: f.debug}

	var err error
	if req.StartDate, err = parseDate("start", f.start); err != nil {
		return req, err
	}
	if req.EndDate, err = parseDate("end", f.end); err != nil {
		return req, err
	}
	if f.window != "" {
		d, err := prediction.ParseWindow(f.window)
		if err != nil {
			return req, err
		}
		req.Window = &d
	}
	for _, raw := range f.mappings {
		m, err := guidelines.ParseMapping(raw)
		if err != nil {
			return req, err
		}
		req.Mappings = append(req.Mappings, m)
	}
	return req, nil
}

func parseDate(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", name, v)
	}
	return &t, nil
}

func newChannelsCmd(open openFunc) *cobra.Command {
	var flags summaryFlags

	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Summarize predictions per channel and direction",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			svc, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := svc.ChannelSummary(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	flags.register(cmd)
	return cmd
}

func newOverallCmd(open openFunc) *cobra.Command {
	var flags summaryFlags

	cmd := &cobra.Command{
		Use:   "overall",
		Short: "Summarize all predictions into one row per period",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			svc, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := svc.OverallSummary(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	flags.register(cmd)
	return cmd
}

func newReportCmd(open openFunc) *cobra.Command {
	var flags summaryFlags
	var output, format string

	cmd := &cobra.Command{
		Use:     "report",
		Aliases: []string{"export"},
		Short:   "Write both summaries as JSON or as an Excel workbook",
		Long: `Write the channel and overall summaries of one load.

Example: prediction-report report --period 1w --format xlsx --output predictions.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "xlsx" {
				return fmt.Errorf("unknown format %q: want json or xlsx", format)
			}
			if format == "xlsx" && output == "" {
				return fmt.Errorf("--output is required for xlsx")
			}
			req, err := flags.request()
			if err != nil {
				return err
			}
			svc, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := svc.Report(cmd.Context(), req)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if format == "xlsx" {
				return export.WriteWorkbook(w, report)
			}
			return writeJSON(w, report)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (stdout when empty)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json|xlsx")
	return cmd
}

func newTrendCmd(open openFunc) *cobra.Command {
	var req reporting.TrendRequest

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Print a per period series of one channel summary metric",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			points, err := svc.Trend(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), points)
		},
	}
	cmd.Flags().StringVar(&req.Period, "period", prediction.DefaultTrendPeriod, "Bucket period")
	cmd.Flags().StringVar(&req.Metric, "metric", string(prediction.TrendPerformance), "Metric: Performance|Lift|CTR|Responses")
	cmd.Flags().StringVar(&req.Prediction, "prediction", "", "Only this prediction")
	cmd.Flags().StringVar(&req.Channel, "channel", "", "Only this channel")
	return cmd
}

func newStatusCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether prediction data is available and valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			st, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), st)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Command soundmotif discovers recurring audio patterns in a Parquet frame
// table and writes the discovery snapshot and a detections table.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/soundmotif/config"
	"github.com/katalvlaran/soundmotif/logging"
	"github.com/katalvlaran/soundmotif/pipeline"
	"github.com/katalvlaran/soundmotif/sequence"
)

type rootFlags struct {
	configPath string
	envFile    string
}

type discoverFlags struct {
	input      string
	out        string
	detections string
	quiet      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:          "soundmotif",
		Short:        "Unsupervised discovery of recurring audio patterns",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&rf.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&rf.envFile, "env", ".env", "dotenv file applied before SOUNDMOTIF_* variables")

	root.AddCommand(newDiscoverCmd(rf), newConfigCmd(rf))

	return root
}

func newConfigCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rf.configPath, rf.envFile)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()

			return enc.Encode(cfg)
		},
	}
}

func newDiscoverCmd(rf *rootFlags) *cobra.Command {
	df := &discoverFlags{}
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Align, cluster and model every segment of a frame table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runDiscover(ctx, rf, df, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&df.input, "input", "i", "", "Parquet frame table (segment_id, source, start_sec, stop_sec, frame_index, values)")
	cmd.Flags().StringVarP(&df.out, "out", "o", "", "JSON snapshot path (stdout when empty)")
	cmd.Flags().StringVar(&df.detections, "detections", "", "tab-separated detections path")
	cmd.Flags().BoolVarP(&df.quiet, "quiet", "q", false, "disable progress bars")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runDiscover(ctx context.Context, rf *rootFlags, df *discoverFlags, stdout, stderr io.Writer) error {
	cfg, err := config.Load(rf.configPath, rf.envFile)
	if err != nil {
		return err
	}
	lc := cfg.LoggingConfig()
	lc.Output = stderr
	logger, err := logging.NewLogger(lc)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, logger)
		defer shutdown()
	}

	store, err := sequence.ReadParquet(df.input)
	if err != nil {
		return err
	}
	logger.Info("frame table loaded",
		zap.String("path", df.input),
		zap.Int("segments", store.Len()),
		zap.Int("dim", store.Dim()),
	)

	var opts []pipeline.Option
	var bars *barProgress
	if !df.quiet {
		bars = newBarProgress(stderr)
		opts = append(opts, pipeline.WithProgress(bars))
	}
	p, err := pipeline.New(*cfg, logger, opts...)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx, store)
	if bars != nil {
		bars.Wait()
	}
	if err != nil {
		return err
	}

	if err = writeTo(df.out, stdout, func(w io.Writer) error { return pipeline.WriteJSON(w, res) }); err != nil {
		return err
	}
	if df.detections != "" {
		if err = writeTo(df.detections, nil, func(w io.Writer) error { return pipeline.WriteDetections(w, res) }); err != nil {
			return err
		}
	}

	return nil
}

// writeTo runs write against path, or against fallback when path is empty.
func writeTo(path string, fallback io.Writer, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(fallback)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return write(f)
}

// serveMetrics exposes the Prometheus registry on addr until the returned
// function is called.
func serveMetrics(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(fmt.Errorf("shutdown %s: %w", addr, err)))
		}
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tordrt/schemasync"
	"github.com/tordrt/schemasync/internal/authority"
	"github.com/tordrt/schemasync/internal/config"
	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/script"
)

// cliOptions holds every flag; config file values fill whatever was not set
type cliOptions struct {
	configPath string
	debug      bool

	dbURL       string
	tables      string
	exclude     string
	schemaName  string
	outputFile  string
	outputDir   string
	format      string
	snapshotOut string

	snapshot   string
	scriptPath string
	reject     string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "schemasync",
		Short:         "Edit schema designs optimistically against an authority",
		Long:          `schemasync imports database schemas as design snapshots and replays edit scripts through the optimistic command queue, printing every identifier the authority assigns.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Verbose development logging")
	rootCmd.PersistentFlags().StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&opts.outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	rootCmd.PersistentFlags().StringVarP(&opts.format, "format", "f", "", "Output format: text or markdown (default: markdown)")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Read a live database into a snapshot and render it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}
	importCmd.Flags().StringVar(&opts.dbURL, "db-url", "", "Database URL (postgres://, mysql:// or sqlite://)")
	importCmd.Flags().StringVarP(&opts.tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	importCmd.Flags().StringVarP(&opts.exclude, "exclude", "x", "", "Tables to leave out (comma-separated)")
	importCmd.Flags().StringVarP(&opts.schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL)")
	importCmd.Flags().StringVar(&opts.snapshotOut, "snapshot-out", "", "Also save the snapshot as YAML")
	_ = importCmd.MarkFlagRequired("db-url")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Run an edit script against the simulated authority",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts)
		},
	}
	replayCmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "Snapshot YAML to start from")
	replayCmd.Flags().StringVar(&opts.dbURL, "db-url", "", "Import the starting snapshot from this database instead")
	replayCmd.Flags().StringVar(&opts.scriptPath, "script", "", "Edit script (YAML)")
	replayCmd.Flags().StringVar(&opts.reject, "reject", "", "Names the authority rejects (comma-separated)")
	_ = replayCmd.MarkFlagRequired("script")

	rootCmd.AddCommand(importCmd, replayCmd)
	return rootCmd
}

// loadConfig reads the config file and layers the flags on top
func loadConfig(opts *cliOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.debug {
		cfg.Log.Debug = true
		cfg.Log.Level = "debug"
	}
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}
	if opts.reject != "" {
		cfg.Authority.RejectNames = append(cfg.Authority.RejectNames, splitList(opts.reject)...)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.Output.Dir != "" && opts.outputFile != "" {
		return cfg, fmt.Errorf("cannot use both --output-dir and --output flags")
	}
	return cfg, nil
}

// newLogger writes to stderr so stdout only carries rendered output
func newLogger(cfg config.LogConfig) (*zap.SugaredLogger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	var zc zap.Config
	if cfg.Debug {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}

func runImport(cmd *cobra.Command, opts *cliOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	snapshot, err := schemasync.ImportSnapshot(cmd.Context(), opts.dbURL, &schemasync.ImportOptions{
		Tables:        splitList(opts.tables),
		ExcludeTables: splitList(opts.exclude),
		SchemaName:    opts.schemaName,
	})
	if err != nil {
		return fmt.Errorf("failed to import snapshot: %w", err)
	}
	log.Infow("Snapshot imported", "database", snapshot.Name, "tables", countTables(snapshot))

	if opts.snapshotOut != "" {
		if err := schemasync.SaveSnapshot(opts.snapshotOut, snapshot); err != nil {
			return err
		}
	}
	return render(cmd, opts, cfg, snapshot)
}

func runReplay(cmd *cobra.Command, opts *cliOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()

	var snapshot *schema.Database
	switch {
	case opts.snapshot != "" && opts.dbURL != "":
		return fmt.Errorf("only one of --snapshot or --db-url can be specified")
	case opts.snapshot != "":
		snapshot, err = schemasync.LoadSnapshot(opts.snapshot)
	case opts.dbURL != "":
		snapshot, err = schemasync.ImportSnapshot(ctx, opts.dbURL, nil)
	default:
		snapshot = &schema.Database{}
	}
	if err != nil {
		return err
	}

	sc, err := script.Load(opts.scriptPath)
	if err != nil {
		return err
	}

	sim := authority.NewSimulator(log, authority.Options{
		Latency:     cfg.Authority.Latency,
		RejectNames: cfg.Authority.RejectNames,
		IDPrefix:    cfg.Authority.IDPrefix,
	})
	session, err := schemasync.Open(log, sim, snapshot, schemasync.Options{})
	if err != nil {
		return err
	}
	defer session.Close()

	errOut := cmd.ErrOrStderr()
	session.Queue().OnIdentifierMapped(func(prov, real string, typ schema.EntityType) {
		_, _ = fmt.Fprintf(errOut, "mapped %s %s → %s\n", typ, prov, real)
	})

	replayErr := session.Replay(ctx, sc)
	if replayErr != nil {
		_, _ = fmt.Fprintf(errOut, "rolled back: %v\n", replayErr)
	}
	if err := render(cmd, opts, cfg, session.Synced()); err != nil {
		return err
	}
	return replayErr
}

func render(cmd *cobra.Command, opts *cliOptions, cfg config.Config, d *schema.Database) error {
	out := &schemasync.OutputOptions{OutputDir: cfg.Output.Dir, Format: cfg.Output.Format}
	if cfg.Output.Dir == "" {
		var writer io.Writer = cmd.OutOrStdout()
		if opts.outputFile != "" {
			f, err := os.Create(opts.outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer func() {
				if err := f.Close(); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close output file: %v\n", err)
				}
			}()
			writer = f
		}
		out.Writer = writer
	}

	if err := schemasync.FormatDatabase(d, out); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

// splitList parses a comma-separated flag
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	list := strings.Split(s, ",")
	for i, item := range list {
		list[i] = strings.TrimSpace(item)
	}
	return list
}

func countTables(d *schema.Database) int {
	n := 0
	for _, s := range d.Schemas {
		n += len(s.Tables)
	}
	return n
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

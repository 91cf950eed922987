package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/internal/config"
)

// rootOptions holds global flags and the resolved configuration.
type rootOptions struct {
	configPath string
	storeDir   string
	backend    string
	format     string
	lock       bool
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
	// searchDir is set when no store directory was configured: stores are
	// then looked up from the working directory upwards.
	searchDir bool
}

// newRootCommand creates the root command for the tally CLI.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Track expenses and tasks in small local stores",
		Long: `Tally keeps expenses and tasks in single-document stores (JSON, YAML or
SQLite). Ids are small integers; the id of a deleted record is reused first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/tally/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.storeDir, "store-dir", "", "directory holding the stores")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "storage backend (file|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "", "document format (json|yaml)")
	cmd.PersistentFlags().BoolVar(&opts.lock, "lock", false, "hold a lock file while writing")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newExpenseCommand(opts))
	cmd.AddCommand(newTaskCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("store-dir") {
		cfg.Store.Dir = o.storeDir
	}
	if flags.Changed("backend") {
		cfg.Store.Backend = o.backend
	}
	if flags.Changed("format") {
		cfg.Store.Format = o.format
	}
	if flags.Changed("lock") {
		cfg.Store.Lock = o.lock
	}

	switch cfg.Store.Backend {
	case tally.BackendFile, tally.BackendSQLite:
	default:
		return fmt.Errorf("invalid backend %q: must be file or sqlite", cfg.Store.Backend)
	}
	switch cfg.Store.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("invalid format %q: must be json or yaml", cfg.Store.Format)
	}

	level := slog.LevelWarn
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	if o.verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), handlerOpts))
	slog.SetDefault(o.logger)

	o.cfg = cfg
	o.searchDir = !flags.Changed("store-dir") && cfg.Store.Dir == config.Default().Store.Dir
	return nil
}

// location returns where the store with the given default file name lives.
// Without a configured directory, the nearest existing store in the working
// directory or one of its parents is used, else a new one in the working
// directory.
func (o *rootOptions) location(defaultFile string) string {
	name := defaultFile
	switch {
	case o.cfg.Store.Backend == tally.BackendSQLite:
		name = o.cfg.Store.Database
	case o.cfg.Store.Format == "yaml":
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".yaml"
	}
	if o.searchDir {
		if found, err := tally.FindStore(o.cfg.Store.Dir, name); err == nil {
			o.logger.Debug("using store found upwards", "path", found)
			return found
		}
	}
	return filepath.Join(o.cfg.Store.Dir, name)
}

// storeOptions builds the options to open a store. Reads never write or lock.
func (o *rootOptions) storeOptions(readOnly bool) []tally.Option {
	return []tally.Option{
		tally.WithLogger(o.logger),
		tally.WithBackend(o.cfg.Store.Backend),
		tally.WithFormat(o.cfg.Store.Format),
		tally.WithReadOnly(readOnly),
		tally.WithLocking(o.cfg.Store.Lock && !readOnly),
		tally.WithLockTimeout(o.cfg.Store.LockTimeout),
		tally.WithConflictCheck(o.cfg.Store.Lock),
		tally.WithForceTemp(tally.IsDevRun()),
	}
}

package wsctl

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"worksheetd/internal/config"
	"worksheetd/internal/manager"
)

// Options are the persistent flags shared by every subcommand.
type Options struct {
	ConfigPath  string
	LogLevel    string
	Interpreter string
	DataDir     string
	PollMs      int
}

// DefaultOptions reads WSCTL_* environment defaults.
func DefaultOptions() *Options {
	return &Options{
		ConfigPath:  envStr("WSCTL_CONFIG", ""),
		LogLevel:    envStr("WSCTL_LOG_LEVEL", "warn"),
		Interpreter: envStr("WSCTL_INTERPRETER", ""),
		DataDir:     envStr("WSCTL_DATA_DIR", ""),
		PollMs:      envInt("WSCTL_POLL_MS", 0),
	}
}

// loadConfig merges the config file, if any, with flag overrides.
func (o *Options) loadConfig() (config.Config, error) {
	var cfg config.Config
	if o.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return cfg, err
		}
	}
	if o.Interpreter != "" {
		cfg.Interpreter = o.Interpreter
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.PollMs > 0 {
		cfg.PollTimeoutMs = o.PollMs
	}
	return cfg, nil
}

func (o *Options) openSession(cmd *cobra.Command) (*Session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return NewSession(cfg, newLogger(cmd.ErrOrStderr(), o.LogLevel))
}

// BuildRootCmd constructs the wsctl command tree.
func BuildRootCmd(opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "wsctl",
		Short:         "Evaluate worksheets from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> Options
	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Config file (.yaml, .json or .toml; defaults WSCTL_CONFIG)")
	pf.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug|info|warn|error (defaults WSCTL_LOG_LEVEL or warn)")
	pf.StringVar(&opts.Interpreter, "interpreter", opts.Interpreter, "Interpreter: python|reference")
	pf.StringVar(&opts.DataDir, "data-dir", opts.DataDir, "Data directory for worksheets and scratch space")
	pf.IntVar(&opts.PollMs, "poll-ms", opts.PollMs, "Output poll interval in milliseconds")

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive worksheet with line editing and history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return runREPL(s, cmd.OutOrStdout())
		},
	}

	var keepGoing bool
	runCmd := &cobra.Command{
		Use:     "run <file>",
		Short:   "Evaluate a script whose cells are separated by " + CellMarker + " lines",
		Example: "  wsctl run analysis.py\n  wsctl --interpreter reference run sums.expr",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runFile(ctx, s, args[0], cmd.OutOrStdout(), keepGoing)
		},
	}
	runCmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue after an interrupted cell")

	sanityCmd := &cobra.Command{
		Use:   "sanity",
		Short: "Check that the interpreter and data directory are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg = cfg.Defaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			mc, err := cfg.ManagerConfig()
			if err != nil {
				return err
			}
			mc.Logger = newLogger(cmd.ErrOrStderr(), opts.LogLevel)
			mgr := manager.NewWithConfig(mc)
			defer mgr.Close()
			return printSanity(cmd, mgr.SanityCheck())
		},
	}

	root.AddCommand(replCmd, runCmd, sanityCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	root.AddCommand(completionCmd)

	return root
}

func printSanity(cmd *cobra.Command, r manager.SanityReport) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "interpreter=%s variant=%s\n", r.Interpreter, r.Variant)
	for _, c := range r.Checks {
		status := "ok"
		if !c.OK {
			status = "FAIL"
		}
		if c.Message != "" {
			fmt.Fprintf(out, "  %-24s %s  %s\n", c.Name, status, c.Message)
		} else {
			fmt.Fprintf(out, "  %-24s %s\n", c.Name, status)
		}
	}
	if !r.OK {
		return fmt.Errorf("sanity check failed")
	}
	return nil
}

// Execute runs wsctl with the given arguments.
func Execute(ctx context.Context, args []string) error {
	root := BuildRootCmd(DefaultOptions())
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

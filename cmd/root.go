// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/browser"
	"github.com/xkilldash9x/scalpel-e2e/internal/config"
	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
	"github.com/xkilldash9x/scalpel-e2e/internal/observability"
	"github.com/xkilldash9x/scalpel-e2e/internal/report"
)

// ExitError carries a process exit status out of a command. Err may be nil when
// the status alone says everything, e.g. a run whose checks failed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a command error to the status CI sees: 0 on success, 2 for
// configuration problems, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return report.ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if errs.Kind(err) == errs.CategoryConfiguration {
		return report.ExitConfig
	}
	return report.ExitFailed
}

// app is the state shared by every subcommand of one root command.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
	// launcher starts browser sessions; nil means Chrome.
	launcher browser.Launcher
	tracer   trace.Tracer
	// bindings maps each command's flag names to config keys. Only the
	// executing command's flags are bound, since subcommands share keys.
	bindings map[*cobra.Command]map[string]string
}

// NewRootCommand builds a fresh command tree with its own viper instance, so
// repeated executions (tests) never share flag state.
func NewRootCommand() *cobra.Command {
	return newRootCommand(nil)
}

func newRootCommand(launcher browser.Launcher) *cobra.Command {
	a := &app{v: viper.New(), launcher: launcher, bindings: make(map[*cobra.Command]map[string]string)}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:           "scalpel-e2e",
		Short:         "End-to-end verification of a deployed web front end and its API.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			mustBind(a.v, cmd.Flags(), a.bindings[cmd])
			return a.initialize()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./scalpel-e2e.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	mustBind(a.v, rootCmd.PersistentFlags(), map[string]string{"log-level": "logger.level"})
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newRunCmd(a), newListCmd(a), newVersionCmd())
	return rootCmd
}

// Execute runs the command tree with args and returns the process exit status.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, NewRootCommand(), args, stdout, stderr)
}

func execute(ctx context.Context, rootCmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	code := ExitCode(err)
	// A bare exit status has already been reported by the command itself.
	var ee *ExitError
	if err != nil && !(errors.As(err, &ee) && ee.Err == nil) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	observability.Sync()
	return code
}

// bind records flag-to-key bindings for cmd, applied when cmd executes.
func (a *app) bind(cmd *cobra.Command, keys map[string]string) {
	a.bindings[cmd] = keys
}

// initialize reads the config file and environment, then sets up logging.
func (a *app) initialize() error {
	if err := config.BindEnv(a.v); err != nil {
		return err
	}
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("scalpel-e2e")
		a.v.SetConfigType("yaml")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errs.Config("config", "error reading config file: %v", err)
		}
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.Report.NoColor {
		cfg.Logger.NoColor = true
	}
	observability.InitializeLogger(cfg.Logger)
	a.logger = observability.GetLogger()
	a.logger.Debug("Configuration loaded",
		zap.String("config_file", a.v.ConfigFileUsed()),
		zap.String("base_url", cfg.Target.BaseURL),
		zap.String("api_url", cfg.Target.APIURL))
	return nil
}

// mustBind binds flags (by name) to config keys so a flag set on the command line
// overrides the file and environment. A missing flag is a programming error.
func mustBind(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag --%s to %s: %v", name, key, err))
		}
	}
}

package main

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/toyz/tyx/internal/cli"
	"github.com/toyz/tyx/internal/metadata"
	"github.com/toyz/tyx/internal/utils"
)

// errReported marks a failure that was already printed through diagnostics
var errReported = stderrors.New("reported")

// session is the state shared by one CLI invocation
type session struct {
	configPath  string
	config      *cli.Config
	diagnostics *utils.DiagnosticSystem
	log         *zap.Logger
	out         io.Writer
}

// execute runs the CLI with args and returns the process exit code
func execute(args []string, out, errOut io.Writer) int {
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.Execute(); err != nil {
		if !stderrors.Is(err, errReported) {
			fmt.Fprintln(errOut, "Error:", err)
		}
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:   "tyx",
		Short: "Inspect tyx api and service metadata",
		Long: `tyx scans Go packages for //tyx:: annotations, commits the declared
apis and services into a metadata registry and reports routes, the
dependency activation plan or the full metadata graph.

Directories ending in /... are scanned recursively.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.configPath, "config", "", "Configuration file (defaults to ./tyx.yaml when present)")
	flags.String("module", "", "Custom module name for imports (defaults to go.mod module)")
	flags.Bool("verbose", false, "Enable verbose output and detailed error reporting")
	flags.Bool("quiet", false, "Only show errors and final results")
	flags.String("format", cli.FormatText, "Output format: text, json or yaml")
	flags.String("prefix", "", "Annotation prefix (defaults to tyx)")

	root.AddCommand(
		newCheckCommand(s),
		newRoutesCommand(s),
		newPlanCommand(s),
		newGraphCommand(s),
	)
	return root
}

// load reads the configuration, scans the directories in args and returns
// the committed registry. Failures are reported before returning.
func (s *session) load(cmd *cobra.Command, args []string) (*metadata.Registry, *cli.Runner, error) {
	v := cli.NewViper()
	for _, name := range []string{"module", "verbose", "quiet", "format", "prefix"} {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(name, flag); err != nil {
			return nil, nil, err
		}
	}
	if len(args) > 0 {
		v.Set("directories", args)
	}

	config, err := cli.LoadConfig(v, s.configPath)
	if err != nil {
		return nil, nil, err
	}
	s.config = config
	s.out = cmd.OutOrStdout()

	s.diagnostics = utils.NewDiagnosticSystem(utils.LevelFromFlags(config.Verbose, config.Quiet))
	if config.Format == cli.FormatText {
		s.diagnostics.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	} else {
		// keep stdout clean for the encoded payload
		s.diagnostics.SetOutput(cmd.ErrOrStderr(), cmd.ErrOrStderr())
	}
	s.log = newLogger(config.Verbose, cmd.ErrOrStderr())

	runner := cli.NewRunner(s.diagnostics, s.log)
	reg, err := runner.Run(config)
	if err != nil {
		return nil, nil, s.fail("Loading failed", err)
	}
	return reg, runner, nil
}

// fail reports err through diagnostics and returns errReported
func (s *session) fail(title string, err error) error {
	s.diagnostics.Error("%s", title)
	s.diagnostics.Indent()
	s.diagnostics.ReportError(err)
	s.diagnostics.Unindent()
	return errReported
}

// encoded reports whether output should be JSON or YAML instead of text
func (s *session) encoded() bool {
	return s.config.Format != cli.FormatText
}

func newLogger(verbose bool, w io.Writer) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core)
}

package utils

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/toyz/tyx/internal/errors"
)

// DiagnosticLevel represents the level of diagnostic output
type DiagnosticLevel int

const (
	DiagnosticSilent DiagnosticLevel = iota
	DiagnosticError
	DiagnosticWarn
	DiagnosticInfo
	DiagnosticVerbose
	DiagnosticDebug
)

// LevelFromFlags maps the --verbose and --quiet flags onto a level
func LevelFromFlags(verbose, quiet bool) DiagnosticLevel {
	switch {
	case quiet:
		return DiagnosticError
	case verbose:
		return DiagnosticVerbose
	default:
		return DiagnosticInfo
	}
}

// DiagnosticSystem provides structured, user-friendly output
type DiagnosticSystem struct {
	level    DiagnosticLevel
	showTime bool
	output   io.Writer
	errorOut io.Writer
	indent   int

	palette map[string]*color.Color
}

// NewDiagnosticSystem creates a new diagnostic system writing to stdout and stderr
func NewDiagnosticSystem(level DiagnosticLevel) *DiagnosticSystem {
	d := &DiagnosticSystem{
		level:    level,
		showTime: level >= DiagnosticVerbose,
		output:   os.Stdout,
		errorOut: os.Stderr,
		palette: map[string]*color.Color{
			"ERROR":   color.New(color.FgRed, color.Bold),
			"WARN":    color.New(color.FgYellow),
			"INFO":    color.New(color.FgBlue),
			"SUCCESS": color.New(color.FgGreen),
			"VERBOSE": color.New(color.FgHiBlack),
			"DEBUG":   color.New(color.FgMagenta),
			"header":  color.New(color.FgCyan),
		},
	}
	d.SetColors(shouldUseColors())
	return d
}

// SetOutput redirects regular and error output
func (d *DiagnosticSystem) SetOutput(out, errOut io.Writer) {
	d.output = out
	d.errorOut = errOut
}

// SetColors enables or disables colored output
func (d *DiagnosticSystem) SetColors(enabled bool) {
	for _, c := range d.palette {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// SetShowTime toggles timestamps in front of leveled messages
func (d *DiagnosticSystem) SetShowTime(show bool) {
	d.showTime = show
}

// Level returns the configured level
func (d *DiagnosticSystem) Level() DiagnosticLevel {
	return d.level
}

// Writer returns the regular output, for callers that render their own payloads
func (d *DiagnosticSystem) Writer() io.Writer {
	return d.output
}

// Error outputs error messages (always shown unless silent)
func (d *DiagnosticSystem) Error(format string, args ...interface{}) {
	if d.level >= DiagnosticError {
		d.writeMessage(d.errorOut, "ERROR", format, args...)
	}
}

// Warn outputs warning messages
func (d *DiagnosticSystem) Warn(format string, args ...interface{}) {
	if d.level >= DiagnosticWarn {
		d.writeMessage(d.output, "WARN", format, args...)
	}
}

// Info outputs informational messages
func (d *DiagnosticSystem) Info(format string, args ...interface{}) {
	if d.level >= DiagnosticInfo {
		d.writeMessage(d.output, "INFO", format, args...)
	}
}

// Success outputs success messages with emphasis
func (d *DiagnosticSystem) Success(format string, args ...interface{}) {
	if d.level >= DiagnosticInfo {
		d.writeMessage(d.output, "SUCCESS", format, args...)
	}
}

// Verbose outputs detailed messages (verbose mode only)
func (d *DiagnosticSystem) Verbose(format string, args ...interface{}) {
	if d.level >= DiagnosticVerbose {
		d.writeMessage(d.output, "VERBOSE", format, args...)
	}
}

// Debug outputs debug messages (highest verbosity)
func (d *DiagnosticSystem) Debug(format string, args ...interface{}) {
	if d.level >= DiagnosticDebug {
		d.writeMessage(d.output, "DEBUG", format, args...)
	}
}

// Header outputs the tool banner
func (d *DiagnosticSystem) Header(message string) {
	if d.level >= DiagnosticInfo {
		d.palette["header"].Fprintf(d.output, "tyx: %s\n", message)
	}
}

// Section creates a prominent section header
func (d *DiagnosticSystem) Section(title string) {
	if d.level >= DiagnosticInfo {
		fmt.Fprintf(d.output, "\n[%s]\n", title)
	}
}

// List outputs a bulleted list item
func (d *DiagnosticSystem) List(format string, args ...interface{}) {
	if d.level >= DiagnosticInfo {
		fmt.Fprintf(d.output, "%s- %s\n", d.getIndent(), fmt.Sprintf(format, args...))
	}
}

// Indent increases the indentation level
func (d *DiagnosticSystem) Indent() {
	d.indent++
}

// Unindent decreases the indentation level
func (d *DiagnosticSystem) Unindent() {
	if d.indent > 0 {
		d.indent--
	}
}

// Summary outputs a final summary with statistics, keys sorted
func (d *DiagnosticSystem) Summary(title string, stats map[string]interface{}) {
	if d.level < DiagnosticInfo {
		return
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Fprintf(d.output, "\n%s\n", title)
	for _, key := range keys {
		fmt.Fprintf(d.output, "   %s: %v\n", key, stats[key])
	}
}

// ReportError prints err with its location, context and suggestions. A
// MultipleErrors is reported entry by entry.
func (d *DiagnosticSystem) ReportError(err error) {
	if err == nil || d.level < DiagnosticError {
		return
	}

	var multi *errors.MultipleErrors
	if stderrors.As(err, &multi) {
		for _, item := range multi.Errors {
			d.ReportError(item)
		}
		return
	}

	d.Error("%v", err)
	var tyxErr errors.TyxError
	if !stderrors.As(err, &tyxErr) {
		return
	}

	d.Indent()
	defer d.Unindent()
	if d.level >= DiagnosticVerbose {
		ctx := tyxErr.Context()
		keys := make([]string, 0, len(ctx))
		for key := range ctx {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(d.errorOut, "%s%s: %v\n", d.getIndent(), key, ctx[key])
		}
	}
	for _, hint := range tyxErr.Suggestions() {
		fmt.Fprintf(d.errorOut, "%shint: %s\n", d.getIndent(), hint)
	}
}

func (d *DiagnosticSystem) writeMessage(writer io.Writer, level, format string, args ...interface{}) {
	var output strings.Builder
	output.WriteString(d.getIndent())
	if d.showTime {
		output.WriteString(time.Now().Format("15:04:05 "))
	}
	output.WriteString(d.palette[level].Sprintf("[%s]", level))
	output.WriteString(" ")
	output.WriteString(fmt.Sprintf(format, args...))
	output.WriteString("\n")

	fmt.Fprint(writer, output.String())
}

func (d *DiagnosticSystem) getIndent() string {
	return strings.Repeat("  ", d.indent)
}

// shouldUseColors honours NO_COLOR and FORCE_COLOR before falling back to
// the terminal detection done by fatih/color.
func shouldUseColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return !color.NoColor
}

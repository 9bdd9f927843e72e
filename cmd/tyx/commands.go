package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toyz/tyx/pkg/tyx"
)

func newCheckCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "check [directories...]",
		Short: "Load and commit every annotated class, reporting errors",
		Example: `  tyx check ./...
  tyx check --verbose ./internal/...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, runner, err := s.load(cmd, args)
			if err != nil {
				return err
			}
			summary := runner.GetSummary()
			if s.encoded() {
				return tyx.Encode(s.out, s.config.Format, summary.Stats())
			}
			s.diagnostics.Summary("Check complete", summary.Stats())
			s.diagnostics.Success("%d definitions committed", summary.Committed)
			return nil
		},
	}
}

func newRoutesCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "routes [directories...]",
		Short: "List HTTP routes and event bindings of every committed api",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := s.load(cmd, args)
			if err != nil {
				return err
			}
			table := tyx.BuildRouteTable(reg)
			if s.encoded() {
				return tyx.Encode(s.out, s.config.Format, table)
			}
			return writeRoutes(s.out, table)
		},
	}
}

func newPlanCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [directories...]",
		Short: "Print the dependency activation order of every committed service",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := s.load(cmd, args)
			if err != nil {
				return err
			}
			plan, err := tyx.BuildPlan(reg)
			if err != nil {
				return s.fail("Planning failed", err)
			}
			if s.encoded() {
				return tyx.Encode(s.out, s.config.Format, plan)
			}
			writePlan(s.out, plan)
			return nil
		},
	}
}

func newGraphCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [directories...]",
		Short: "Export the committed metadata graph as JSON or YAML",
		Long:  "Export the committed metadata graph. The text format writes YAML.",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := s.load(cmd, args)
			if err != nil {
				return err
			}
			format := s.config.Format
			if format != tyx.FormatJSON {
				format = tyx.FormatYAML
			}
			return tyx.ExportGraph(reg).Write(s.out, format)
		},
	}
}

func writeRoutes(w io.Writer, table *tyx.RouteTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERB\tPATH\tHANDLER\tSERVICE\tAUTH")
	for _, r := range table.Routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Verb, r.Path, r.Key(), dash(r.Service), dash(r.Auth))
	}
	if len(table.Events) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "SOURCE\tRESOURCE\tHANDLER\tSERVICE\tACTIONS")
		for _, e := range table.Events {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Source, e.Resource, e.Key(), dash(e.Service), dash(strings.Join(e.Actions, ",")))
		}
	}
	return tw.Flush()
}

func writePlan(w io.Writer, plan *tyx.Plan) {
	for i, sp := range plan.Services {
		fmt.Fprintf(w, "%d. %s", i+1, sp.Service)
		if sp.Alias != "" {
			fmt.Fprintf(w, " (%s)", sp.Alias)
		}
		fmt.Fprintln(w)
		for _, step := range append(sp.Constructor, sp.Properties...) {
			fmt.Fprintf(w, "   inject %s <- %s", step.Key, step.Resource)
			if step.Provider != "" && step.Provider != step.Resource {
				fmt.Fprintf(w, " [%s]", step.Provider)
			}
			if step.Provider == "" {
				fmt.Fprint(w, " (external)")
			}
			fmt.Fprintln(w)
		}
		for _, hook := range sp.Activation {
			fmt.Fprintf(w, "   %s %s\n", hook.Kind, hook.Method)
		}
		if sp.HasSelector() {
			fmt.Fprintf(w, "   selector %s\n", sp.Selector)
		}
		for _, hook := range sp.Teardown {
			fmt.Fprintf(w, "   %s %s\n", hook.Kind, hook.Method)
		}
	}
	if len(plan.External) > 0 {
		fmt.Fprintf(w, "\nexternal: %s\n", strings.Join(plan.External, ", "))
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

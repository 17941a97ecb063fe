package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aescanero/dago-pathway-router/internal/engine"
	"github.com/aescanero/dago-pathway-router/internal/patient"
	"github.com/aescanero/dago-pathway-router/internal/router"
)

func runRoute(cmd *cobra.Command, _ []string) error {
	rec, err := readRecord(cmd.InOrStdin())
	if err != nil {
		return err
	}
	a, err := build(!lenient)
	if err != nil {
		return err
	}

	var results []router.ActivationResult
	if routeAll {
		results, err = a.Router.RouteAll(cmd.Context(), rec)
	} else {
		results, err = a.Router.Route(cmd.Context(), rec)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, results)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No pathways activated.")
		return nil
	}
	for _, res := range results {
		printResult(out, res)
	}
	return nil
}

func runValidate(cmd *cobra.Command, _ []string) error {
	a, err := build(false)
	if err != nil {
		return err
	}
	report := a.Report
	out := cmd.OutOrStdout()

	if jsonOutput {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		for _, issue := range report.Issues {
			fmt.Fprintln(out, issue.String())
		}
		fmt.Fprintf(out, "%d pathways checked, %d issues\n", report.Pathways, len(report.Issues))
	}
	if !report.OK() {
		return fmt.Errorf("content validation failed with %d issue(s)", len(report.Issues))
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := build(false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	type entry struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Version string `json:"version"`
		Nodes   int    `json:"nodes"`
	}
	entries := make([]entry, 0, a.Store.Len())
	for _, id := range a.Store.ListIDs() {
		p, err := a.Store.Get(id)
		if err != nil {
			return err
		}
		entries = append(entries, entry{ID: p.ID, Title: p.Title, Version: p.Version, Nodes: len(p.Nodes)})
	}

	if jsonOutput {
		return writeJSON(out, entries)
	}
	fmt.Fprintf(out, "content version %s\n", a.Store.Manifest().Version)
	for _, e := range entries {
		fmt.Fprintf(out, "%-30s %-8s %3d nodes  %s\n", e.ID, e.Version, e.Nodes, e.Title)
	}
	return nil
}

func runCalculator(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		rec, err := readRecord(cmd.InOrStdin())
		if err != nil {
			return err
		}

		var calc engine.Calculator
		switch name {
		case "uticalc":
			calc = engine.UTICalc{}
		case "centor":
			calc = engine.Centor{}
		default:
			return fmt.Errorf("unknown calculator %q", name)
		}

		values, summary := calc.Compute(patient.Normalize(rec))
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, map[string]any{"values": values, "summary": summary})
		}
		fmt.Fprintln(out, summary)
		return nil
	}
}

func readRecord(stdin io.Reader) (patient.Record, error) {
	r := stdin
	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var rec patient.Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode patient record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("patient record must be a JSON object")
	}
	return rec, nil
}

func printResult(out io.Writer, res router.ActivationResult) {
	header := fmt.Sprintf("%s [%s]", res.PathwayID, res.Status)
	if res.Critical() {
		header += " CRITICAL"
	}
	if res.Title != "" {
		header += " - " + res.Title
	}
	fmt.Fprintln(out, header)
	for _, reason := range res.Reasons {
		fmt.Fprintln(out, "  "+strings.TrimSpace(reason))
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

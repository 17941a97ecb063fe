package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aescanero/dago-pathway-router/internal/app"
)

var (
	contentDir  string
	stepFactor  int
	maxParallel int
	verbose     bool

	inputFile  string
	routeAll   bool
	jsonOutput bool
	lenient    bool

	rootCmd = &cobra.Command{
		Use:           "pathwayctl",
		Short:         "Route patient records through clinical pathways from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	routeCmd = &cobra.Command{
		Use:   "route",
		Short: "Route a patient record (JSON, from --input or stdin) through every pathway",
		Args:  cobra.NoArgs,
		RunE:  runRoute,
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check pathway content and report every issue",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the pathways in manifest order",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	uticalcCmd = &cobra.Command{
		Use:   "uticalc",
		Short: "Run the UTICalc pretest lookup on a patient record",
		Args:  cobra.NoArgs,
		RunE:  runCalculator("uticalc"),
	}

	centorCmd = &cobra.Command{
		Use:   "centor",
		Short: "Compute the Modified Centor score for a patient record",
		Args:  cobra.NoArgs,
		RunE:  runCalculator("centor"),
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&contentDir, "content", "", "Directory holding manifest.yaml (default: embedded content)")
	rootCmd.PersistentFlags().IntVar(&stepFactor, "step-factor", 0, "Traversal step ceiling per pathway node (default 4)")
	rootCmd.PersistentFlags().IntVar(&maxParallel, "max-parallel", 0, "Pathways evaluated concurrently (1 = sequential)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of text")

	for _, cmd := range []*cobra.Command{routeCmd, uticalcCmd, centorCmd} {
		cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Patient record JSON file (default: stdin)")
	}
	routeCmd.Flags().BoolVar(&routeAll, "all", false, "Include pathways that did not activate")
	routeCmd.Flags().BoolVar(&lenient, "lenient", false, "Route even when content validation reports issues")

	rootCmd.AddCommand(routeCmd, validateCmd, listCmd, uticalcCmd, centorCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// build wires the router from the global flags.
func build(strict bool) (*app.App, error) {
	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = l
	}
	return app.Build(app.Options{
		ContentDir:  contentDir,
		StepFactor:  stepFactor,
		MaxParallel: maxParallel,
		Strict:      strict,
	}, logger)
}

package main

import (
	"fmt"

	"github.com/mark3labs/specflow/internal/integrity"
	"github.com/mark3labs/specflow/internal/specerrors"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the integrity checks over the spec graph",
	Long: `Load every spec under the configured root and run the eight structural
integrity checks: duplicate ids, format, required fields, file location,
filename match, reference validity, task dependency scope, and acyclic
dependencies.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	report := integrity.Validate(a.graph, integrity.Config{ArchivedDir: a.cfg.ArchivedDir})
	for _, f := range report.Findings {
		fmt.Printf("[%s] %s %s: %s\n", f.Severity, f.Check, f.SpecID, f.Message)
		if f.Recommendation != "" {
			fmt.Printf("    -> %s\n", f.Recommendation)
		}
	}
	if graphErrs := a.graph.Errors(); len(graphErrs) > 0 {
		for _, e := range graphErrs {
			fmt.Printf("[error] parse %s: %s\n", e.Path, e.Message)
		}
	}

	if report.HasErrors() {
		return specerrors.New(specerrors.KindIntegrityError,
			fmt.Sprintf("%d integrity finding(s) require attention", len(report.Findings)), "fix the listed findings and re-run validate")
	}
	fmt.Println("no integrity findings")
	return nil
}

// Package cli implements the scanpaie command line.
package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// ErrCriticalAnomalies is returned by scan --fail-on-critical when the
// report contains at least one critical anomaly
var ErrCriticalAnomalies = errors.New("critical payroll anomalies found")

// NewRootCmd builds the scanpaie command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scanpaie",
		Short: "ScanPaie - payroll anomaly detection",
		Long: `ScanPaie reads payroll exports (xlsx or csv), checks every entry against
salary, overtime, deduction, tax and bonus rules, and prints a risk report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newScanCmd())

	return rootCmd
}

// Execute runs the command line with os.Args
func Execute() error {
	return NewRootCmd().Execute()
}

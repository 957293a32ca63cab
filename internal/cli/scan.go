package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/garyjia/scanpaie/internal/ai"
	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/garyjia/scanpaie/internal/payroll"
	"github.com/garyjia/scanpaie/pkg/utils"
)

type scanOptions struct {
	file           string
	history        string
	period         string
	output         string
	failOnCritical bool
	verbose        bool
}

func newScanCmd() *cobra.Command {
	var opts scanOptions
	var jsonOutput bool

	v := viper.New()
	v.SetEnvPrefix("SCANPAIE")
	v.AutomaticEnv()
	v.SetDefault("locale", ai.LocaleFR)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Analyze a payroll file and print the anomaly report",
		Example: `  scanpaie scan --file paie-2024-12.xlsx
  scanpaie scan --file paie.csv --history paie-2024-11.csv --locale en --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				opts.output = "json"
			}
			return runScan(cmd, opts, v.GetString("locale"))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "payroll file to analyze (.xlsx or .csv)")
	flags.StringVar(&opts.history, "history", "", "previous payroll file used as salary baseline")
	flags.StringVar(&opts.period, "period", "", "payroll period for rows without one (e.g. 2024-12)")
	flags.String("locale", ai.LocaleFR, "report language: fr or en (env SCANPAIE_LOCALE)")
	flags.StringVarP(&opts.output, "output", "o", "table", "output format: table, json, yaml")
	flags.BoolVar(&jsonOutput, "json", false, "shorthand for --output json")
	flags.BoolVar(&opts.failOnCritical, "fail-on-critical", false, "exit with status 1 when a critical anomaly is found")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log import details to stderr")
	_ = cmd.MarkFlagRequired("file")
	_ = v.BindPFlag("locale", flags.Lookup("locale"))

	return cmd
}

func runScan(cmd *cobra.Command, opts scanOptions, locale string) error {
	if !ai.IsSupportedLocale(locale) {
		return fmt.Errorf("unsupported locale %q (use %s)", locale, strings.Join(ai.SupportedLocales, ", "))
	}
	switch opts.output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q", opts.output)
	}

	level := "error"
	if opts.verbose {
		level = "debug"
	}
	logger, err := utils.NewLogger(utils.LoggerConfig{Level: level, OutputPath: "stderr", Format: "console"})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	importer := payroll.NewImporter(logger)

	current, err := importFile(importer, opts.file, opts.period)
	if err != nil {
		return err
	}
	printImportIssues(cmd, current)

	var historical []entity.PayrollEntry
	if opts.history != "" {
		previous, err := importFile(importer, opts.history, "")
		if err != nil {
			return err
		}
		historical = previous.Entries()
		logger.Debug("Loaded salary baseline", zap.Int("entries", len(historical)))
	}

	detector := ai.NewScanPaieDetector(ai.WithLocale(locale))
	report, err := detector.Analyze(cmd.Context(), current.Entries(), historical)
	if err != nil {
		return fmt.Errorf("failed to analyze payroll: %w", err)
	}

	out := newPrinter(cmd.OutOrStdout())
	switch opts.output {
	case "json":
		err = out.json(report)
	case "yaml":
		err = out.yaml(report)
	default:
		out.report(report, locale, len(current.Entries()))
	}
	if err != nil {
		return err
	}

	if opts.failOnCritical && report.CriticalAnomalies > 0 {
		return ErrCriticalAnomalies
	}
	return nil
}

func importFile(importer *payroll.Importer, path, period string) (*payroll.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	result, err := importer.Parse(path, f, period)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}
	return result, nil
}

// printImportIssues lists rejected and suspicious rows on stderr
func printImportIssues(cmd *cobra.Command, result *payroll.ImportResult) {
	w := cmd.ErrOrStderr()
	for _, notice := range result.Notices {
		fmt.Fprintf(w, "notice: %s\n", notice)
	}
	for _, row := range result.Rows {
		if row.Status == entity.ImportStatusValid {
			continue
		}
		fmt.Fprintf(w, "%s: row %d: %s\n", row.Status, row.Row, strings.Join(row.Messages, "; "))
	}
}

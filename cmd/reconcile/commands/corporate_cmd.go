package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reconciliation-engine/internal/engine"
	"reconciliation-engine/internal/logging"
	"reconciliation-engine/internal/types"
)

var (
	corporateInput            string
	corporateOutputFormat     string
	corporateReferenceCol     string
	corporateJournalCol       string
	corporateForeignDebitCol  string
	corporateForeignCreditCol string
	corporatePercentThreshold float64
	corporateTolerance        float64
)

var corporateCmd = &cobra.Command{
	Use:   "corporate",
	Short: "Classify corporate settlement rows into the six-batch scheme",
	RunE:  runCorporate,
}

func init() {
	rootCmd.AddCommand(corporateCmd)

	corporateCmd.Flags().StringVarP(&corporateInput, "input", "i", "", "path to corporate settlements CSV file (required)")
	corporateCmd.Flags().StringVarP(&corporateOutputFormat, "output-format", "f", "console", "output format: console, json")
	corporateCmd.MarkFlagRequired("input")

	corporateCmd.Flags().StringVar(&corporateReferenceCol, "reference-column", "reference", "column name for reference")
	corporateCmd.Flags().StringVar(&corporateJournalCol, "journal-column", "journal_number", "column name for journal number")
	corporateCmd.Flags().StringVar(&corporateForeignDebitCol, "foreign-debit-column", "foreign_debit", "column name for foreign debit")
	corporateCmd.Flags().StringVar(&corporateForeignCreditCol, "foreign-credit-column", "foreign_credit", "column name for foreign credit")
	corporateCmd.Flags().Float64Var(&corporatePercentThreshold, "percent-threshold", 5.0, "percent variance threshold for batch 3/4")
	corporateCmd.Flags().Float64Var(&corporateTolerance, "tolerance", 0.01, "absolute tolerance for batch 2 exact match")

	for _, name := range []string{
		"input", "output-format", "reference-column", "journal-column",
		"foreign-debit-column", "foreign-credit-column", "percent-threshold", "tolerance",
	} {
		viper.BindPFlag(name, corporateCmd.Flags().Lookup(name))
	}
}

func runCorporate(cmd *cobra.Command, args []string) error {
	logging.SetLevel(viper.GetString("log-level"))

	raw, _, err := loadCSVFile(viper.GetString("input"))
	if err != nil {
		return fmt.Errorf("reading corporate settlements file: %w", err)
	}

	refCol := viper.GetString("reference-column")
	journalCol := viper.GetString("journal-column")
	debitCol := viper.GetString("foreign-debit-column")
	creditCol := viper.GetString("foreign-credit-column")

	rows := make([]types.CorporateRow, 0, len(raw))
	for i, r := range raw {
		rows = append(rows, types.CorporateRow{
			RowID:         int64(i),
			Reference:     cellString(r[refCol]),
			JournalNumber: cellString(r[journalCol]),
			ForeignDebit:  parseDecimalOrZero(cellString(r[debitCol])),
			ForeignCredit: parseDecimalOrZero(cellString(r[creditCol])),
		})
	}

	settings := types.CorporateSettings{
		PercentThreshold: viper.GetFloat64("percent-threshold"),
		Tolerance:        decimal.NewFromFloat(viper.GetFloat64("tolerance")),
	}

	// The "output-format" viper key is shared with the reconcile
	// command, whose binding wins, so an explicit flag here takes
	// precedence over it.
	format := viper.GetString("output-format")
	if cmd.Flags().Changed("output-format") {
		format = corporateOutputFormat
	}

	result := engine.ClassifyCorporate(rows, settings)
	return writeCorporateReport(result, format, os.Stdout)
}

func cellString(v any) string {
	s, _ := v.(string)
	return s
}

func parseDecimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return decimal.NewFromFloat(f)
		}
		return decimal.Zero
	}
	return d
}

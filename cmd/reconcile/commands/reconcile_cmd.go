package commands

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reconciliation-engine/internal/engine"
	"reconciliation-engine/internal/ingest"
	"reconciliation-engine/internal/logging"
	"reconciliation-engine/internal/types"
)

var (
	ledgerFile    string
	statementFile string
	outputFormat  string
	logLevel      string

	ledgerDateCol   string
	ledgerRefCol    string
	ledgerDebitCol  string
	ledgerCreditCol string
	ledgerDescCol   string

	stmtDateCol string
	stmtRefCol  string
	stmtAmtCol  string
	stmtDescCol string

	matchDates       bool
	dateToleranceDay int
	matchRefs        bool
	fuzzyEnabled     bool
	fuzzyThreshold   int
	matchAmounts     bool
	amountMode       string
	splitEnabled     bool
	splitTolerance   float64
	splitMaxParts    int
	foreignThreshold float64
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a ledger CSV against a bank statement CSV",
	RunE:  runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&ledgerFile, "ledger", "l", "", "path to ledger CSV file (required)")
	reconcileCmd.Flags().StringVarP(&statementFile, "statement", "s", "", "path to bank statement CSV file (required)")
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json")
	reconcileCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	reconcileCmd.MarkFlagRequired("ledger")
	reconcileCmd.MarkFlagRequired("statement")

	reconcileCmd.Flags().StringVar(&ledgerDateCol, "ledger-date-column", "date", "ledger column name for date")
	reconcileCmd.Flags().StringVar(&ledgerRefCol, "ledger-reference-column", "reference", "ledger column name for reference")
	reconcileCmd.Flags().StringVar(&ledgerDebitCol, "ledger-debit-column", "debit", "ledger column name for debit")
	reconcileCmd.Flags().StringVar(&ledgerCreditCol, "ledger-credit-column", "credit", "ledger column name for credit")
	reconcileCmd.Flags().StringVar(&ledgerDescCol, "ledger-description-column", "description", "ledger column name for description")

	reconcileCmd.Flags().StringVar(&stmtDateCol, "statement-date-column", "date", "statement column name for date")
	reconcileCmd.Flags().StringVar(&stmtRefCol, "statement-reference-column", "reference", "statement column name for reference")
	reconcileCmd.Flags().StringVar(&stmtAmtCol, "statement-amount-column", "amount", "statement column name for amount")
	reconcileCmd.Flags().StringVar(&stmtDescCol, "statement-description-column", "description", "statement column name for description")

	def := types.DefaultSettings()
	reconcileCmd.Flags().BoolVar(&matchDates, "match-dates", def.MatchDates, "enable date matching")
	reconcileCmd.Flags().IntVar(&dateToleranceDay, "date-tolerance-days", def.DateToleranceDays, "date tolerance in days (0 or 1)")
	reconcileCmd.Flags().BoolVar(&matchRefs, "match-references", def.MatchReferences, "enable reference matching")
	reconcileCmd.Flags().BoolVar(&fuzzyEnabled, "fuzzy", def.FuzzyEnabled, "enable fuzzy reference matching")
	reconcileCmd.Flags().IntVar(&fuzzyThreshold, "fuzzy-threshold", def.FuzzyThreshold, "fuzzy match threshold [0,100]")
	reconcileCmd.Flags().BoolVar(&matchAmounts, "match-amounts", def.MatchAmounts, "enable amount matching")
	reconcileCmd.Flags().StringVar(&amountMode, "amount-mode", string(def.AmountMode), "amount mode: both, debits, credits")
	reconcileCmd.Flags().BoolVar(&splitEnabled, "split", def.SplitEnabled, "enable split-transaction detection")
	reconcileCmd.Flags().Float64Var(&splitTolerance, "split-tolerance", def.SplitTolerance, "split amount tolerance, fractional")
	reconcileCmd.Flags().IntVar(&splitMaxParts, "split-max-components", def.SplitMaxComponents, "max rows combined into one split")
	foreignDefault, _ := def.ForeignCreditThreshold.Float64()
	reconcileCmd.Flags().Float64Var(&foreignThreshold, "foreign-credit-threshold", foreignDefault, "foreign credit amount threshold")

	for _, name := range []string{
		"ledger", "statement", "output-format", "log-level",
		"ledger-date-column", "ledger-reference-column", "ledger-debit-column", "ledger-credit-column", "ledger-description-column",
		"statement-date-column", "statement-reference-column", "statement-amount-column", "statement-description-column",
		"match-dates", "date-tolerance-days", "match-references", "fuzzy", "fuzzy-threshold",
		"match-amounts", "amount-mode", "split", "split-tolerance", "split-max-components", "foreign-credit-threshold",
	} {
		viper.BindPFlag(name, reconcileCmd.Flags().Lookup(name))
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	logging.SetLevel(viper.GetString("log-level"))

	ledgerRaw, _, err := loadCSVFile(viper.GetString("ledger"))
	if err != nil {
		return fmt.Errorf("reading ledger file: %w", err)
	}
	stmtRaw, _, err := loadCSVFile(viper.GetString("statement"))
	if err != nil {
		return fmt.Errorf("reading statement file: %w", err)
	}

	ledgerMapping := types.ColumnMapping{
		Date:        viper.GetString("ledger-date-column"),
		Reference:   viper.GetString("ledger-reference-column"),
		Debit:       viper.GetString("ledger-debit-column"),
		Credit:      viper.GetString("ledger-credit-column"),
		Description: viper.GetString("ledger-description-column"),
	}
	stmtMapping := types.ColumnMapping{
		Date:        viper.GetString("statement-date-column"),
		Reference:   viper.GetString("statement-reference-column"),
		Amount:      viper.GetString("statement-amount-column"),
		Description: viper.GetString("statement-description-column"),
	}

	settings := types.Settings{
		MatchDates:             viper.GetBool("match-dates"),
		DateToleranceDays:      viper.GetInt("date-tolerance-days"),
		MatchReferences:        viper.GetBool("match-references"),
		FuzzyEnabled:           viper.GetBool("fuzzy"),
		FuzzyThreshold:         viper.GetInt("fuzzy-threshold"),
		MatchAmounts:           viper.GetBool("match-amounts"),
		AmountMode:             types.AmountMode(viper.GetString("amount-mode")),
		SplitEnabled:           viper.GetBool("split"),
		SplitTolerance:         viper.GetFloat64("split-tolerance"),
		SplitMaxComponents:     viper.GetInt("split-max-components"),
		ForeignCreditThreshold: decimal.NewFromFloat(viper.GetFloat64("foreign-credit-threshold")),
	}
	if settings.SplitMaxComponents == 0 {
		settings.SplitMaxComponents = types.DefaultSettings().SplitMaxComponents
	}
	if settings.SkipSplitIfMatchRateExceeds == 0 {
		d := types.DefaultSettings()
		settings.SkipSplitIfMatchRateExceeds = d.SkipSplitIfMatchRateExceeds
		settings.SkipSplitIfUnmatchedExceeds = d.SkipSplitIfUnmatchedExceeds
		settings.MaxSplitRecordsPerSubPhase = d.MaxSplitRecordsPerSubPhase
		settings.MaxSplitCandidates = d.MaxSplitCandidates
		settings.MaxFuzzyCandidatesPerRow = d.MaxFuzzyCandidatesPerRow
	}
	if viper.GetBool("verbose") {
		settings.ProgressCB = func(phase string, current, total int) {
			fmt.Fprintf(os.Stderr, "%s: %d/%d\n", phase, current, total)
		}
	}

	result, err := engine.Reconcile(ledgerRaw, stmtRaw, ledgerMapping, stmtMapping, settings)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	return writeReconciliationReport(result, viper.GetString("output-format"), os.Stdout)
}

func loadCSVFile(path string) ([]types.RawRow, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ingest.LoadCSV(f)
}

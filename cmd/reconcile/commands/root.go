// Package commands wires the reconcile CLI's cobra command tree and
// viper configuration, following the teacher's invoice-matching
// engine's way of exposing a library as a command (originally an HTTP
// API; here a CLI since spec scope stops at the matching engine
// itself, not at serving it).
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a ledger against a bank statement",
	Long: `reconcile compares a ledger export against a bank statement export,
classifying each row as a perfect match, a fuzzy match, a foreign-credit
match, part of a split transaction, or unmatched.`,
	SilenceUsage: true,
}

// Execute runs the root command; callers only need the returned error.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.reconcile.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".reconcile")
		}
	}
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("RECONCILE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

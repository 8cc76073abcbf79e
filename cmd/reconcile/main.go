package main

import (
	"fmt"
	"os"

	"reconciliation-engine/cmd/reconcile/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

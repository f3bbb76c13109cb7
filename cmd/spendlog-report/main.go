// Package main is the entry point for the spendlog-report CLI.
package main

import (
	"os"
	_ "time/tzdata"

	"spendlog/cmd/spendlog-report/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main provides the entry point for the leasedesk CLI.
package main

import (
	"os"

	"github.com/leasedesk/leasedesk/cmd/leasedesk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

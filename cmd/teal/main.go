// cmd/teal/main.go
//
// Entry point for the teal task editor.

package main

import (
	"fmt"
	"os"

	"github.com/kingrea/teal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

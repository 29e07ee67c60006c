package main

import (
	"fmt"
	"os"

	"github.com/platinummonkey/cog/pkg/cli"
)

func main() {
	rootCmd := cli.NewRootCommand(nil, nil)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

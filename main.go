package main

import (
	"os"

	"github.com/finprep/finprep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

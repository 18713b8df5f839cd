package main

import (
	"os"

	"github.com/Yanlewen/TradeTrap/cmd/tradetrap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

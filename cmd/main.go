package main

import (
	"os"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

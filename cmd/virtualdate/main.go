package main

import (
	"os"

	"github.com/watzon/virtualdate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

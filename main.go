package main

import (
	"os"

	"github.com/srcserve/srcserve/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

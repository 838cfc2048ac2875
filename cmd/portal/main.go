package main

import (
	"os"

	"github.com/spec-kit/diagnostic-login/cmd/portal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

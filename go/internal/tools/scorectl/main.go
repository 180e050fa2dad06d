package main

import (
	"os"

	"github.com/mcdev12/streamscore/go/internal/logging"
)

func main() {
	logging.Setup(os.Getenv("LOG_LEVEL"), "console")

	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"quitz-service/internal/cli"
	"quitz-service/internal/logger"
)

func main() {
	logger.InitLogger()
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

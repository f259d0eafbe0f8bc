// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package main is the entry point for the application
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	pipacmd "github.com/defenseunicorns/pipa/cmd"
)

func main() {
	ctx := context.Background()
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Level:           log.DebugLevel,
	})
	logger.SetStyles(pipacmd.DefaultStyles())
	ctx = log.WithContext(ctx, logger)

	if err := pipacmd.NewMigrateCmd().ExecuteContext(ctx); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"io"

	"github.com/google/uuid"

	"strada-check/internal/config"
	"strada-check/internal/observability"
)

// NewObserver builds the run observer: step tracing under debug, operation
// metrics otherwise.
func NewObserver(debug bool, w io.Writer) *observability.StandardObserver {
	if debug {
		return observability.NewDebugObserver(w).StandardObserver
	}
	return observability.NewStandardObserver(observability.ObservabilityMetrics, w)
}

// BuildVerifyConfig combines the file configuration with the effective run
// settings. Observer and suppressions are left to the caller.
func BuildVerifyConfig(cfg *config.Config, run config.RunSettings) VerifyConfig {
	return VerifyConfig{
		Checks:        ParseCheckIDs(run.Checks),
		IncludeDomain: run.Domain,
		Parallel:      cfg.Defaults.Parallel,
		YearStart:     run.YearStart,
		YearEnd:       run.YearEnd,
		Settings:      cfg.Checks,
	}
}

// BuildClassifyConfig is the classification counterpart of BuildVerifyConfig
func BuildClassifyConfig(cfg *config.Config, run config.RunSettings) ClassifyConfig {
	return ClassifyConfig{
		Rules:     cfg.Classification,
		Columns:   cfg.Columns,
		YearStart: run.YearStart,
		YearEnd:   run.YearEnd,
	}
}

func runID(observer *observability.StandardObserver) string {
	if id := observer.RunID(); id != "" {
		return id
	}
	return uuid.NewString()
}

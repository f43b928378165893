// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugObserver provides detailed step-by-step debugging
type DebugObserver struct {
	*StandardObserver
	console *zap.Logger
	indent  int
}

// NewDebugObserver creates a debug observer with step-by-step logging
func NewDebugObserver(writer io.Writer) *DebugObserver {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.CallerKey = ""
	d := &DebugObserver{
		StandardObserver: NewStandardObserver(ObservabilityDebug, writer),
		console:          newLogger(ObservabilityDebug, writer, zapcore.NewConsoleEncoder(enc)),
		indent:           0,
	}
	d.StandardObserver.DebugObserver = d
	return d
}

// StartStep begins a processing step with indentation
func (d *DebugObserver) StartStep(component, step, source string) func(success bool, details string) {
	start := time.Now()
	indentStr := strings.Repeat("  ", d.indent)

	d.console.Debug(indentStr+"🔄 "+component+": "+step, zap.String("source", source))
	d.indent++

	return func(success bool, details string) {
		d.indent--
		duration := time.Since(start)
		indentStr := strings.Repeat("  ", d.indent)
		fields := []zap.Field{zap.Int64("duration_ms", duration.Milliseconds())}
		if details != "" {
			fields = append(fields, zap.String("details", details))
		}

		if success {
			d.console.Debug(indentStr+"✅ "+component+": "+step+" completed", fields...)
		} else {
			d.console.Debug(indentStr+"❌ "+component+": "+step+" failed", fields...)
		}
	}
}

// LogDetail logs a detail within the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	indentStr := strings.Repeat("  ", d.indent)
	d.console.Debug(indentStr + "   → " + component + ": " + detail)
}

// LogMetric logs a metric value
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	indentStr := strings.Repeat("  ", d.indent)
	d.console.Debug(indentStr+"   📊 "+component+": "+metric, zap.Any("value", value))
}

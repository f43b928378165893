// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StandardObserver implements observability for all components
type StandardObserver struct {
	level         ObservabilityLevel
	logger        *zap.Logger
	runID         string
	DebugObserver *DebugObserver // Reference to debug observer when in debug mode
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// NewStandardObserver creates observability component writing JSON lines to writer
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:  level,
		logger: newLogger(level, writer, zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())),
		runID:  uuid.NewString(),
	}
}

// NewLoggerObserver wraps an existing logger, e.g. the web server's
func NewLoggerObserver(level ObservabilityLevel, logger *zap.Logger) *StandardObserver {
	if logger == nil || level == ObservabilityOff {
		logger = zap.NewNop()
	}
	return &StandardObserver{level: level, logger: logger, runID: uuid.NewString()}
}

// NewNopObserver returns an observer that discards everything
func NewNopObserver() *StandardObserver {
	return &StandardObserver{level: ObservabilityOff, logger: zap.NewNop(), runID: uuid.NewString()}
}

func newLogger(level ObservabilityLevel, writer io.Writer, enc zapcore.Encoder) *zap.Logger {
	if level == ObservabilityOff || writer == nil {
		return zap.NewNop()
	}
	min := zapcore.InfoLevel
	if level == ObservabilityDebug {
		min = zapcore.DebugLevel
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(writer), zap.NewAtomicLevelAt(min))
	return zap.New(core)
}

// Logger exposes the underlying zap logger
func (o *StandardObserver) Logger() *zap.Logger {
	if o == nil {
		return zap.NewNop()
	}
	return o.logger
}

// RunID identifies every record emitted during one run
func (o *StandardObserver) RunID() string {
	if o == nil {
		return ""
	}
	return o.runID
}

// Level returns the configured level
func (o *StandardObserver) Level() ObservabilityLevel {
	if o == nil {
		return ObservabilityOff
	}
	return o.level
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, source string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		duration := time.Since(start)

		data := StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			Source:     source,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}

		o.LogOperation(data)
	}
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil || o.level == ObservabilityOff {
		return
	}

	data.RunID = o.runID

	fields := []zap.Field{
		zap.String("component", data.Component),
		zap.String("operation", data.Operation),
		zap.String("run_id", data.RunID),
		zap.Bool("success", data.Success),
	}
	if data.Source != "" {
		fields = append(fields, zap.String("source", data.Source))
	}
	if data.DurationMs > 0 {
		fields = append(fields, zap.Int64("duration_ms", data.DurationMs))
	}
	if data.RowCount > 0 {
		fields = append(fields, zap.Int("row_count", data.RowCount))
	}
	if data.IssueCount > 0 {
		fields = append(fields, zap.Int("issue_count", data.IssueCount))
	}
	if len(data.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", data.Metadata))
	}

	if data.Error != "" {
		o.logger.Warn(data.Operation, append(fields, zap.String("error", data.Error))...)
		return
	}
	// Per-operation records are only emitted in debug mode
	o.logger.Debug(data.Operation, fields...)
}

// Sync flushes buffered log entries
func (o *StandardObserver) Sync() {
	if o == nil {
		return
	}
	_ = o.logger.Sync()
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	RunID      string                 `json:"run_id"`
	Source     string                 `json:"source,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	RowCount   int                    `json:"row_count,omitempty"`
	IssueCount int                    `json:"issue_count,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

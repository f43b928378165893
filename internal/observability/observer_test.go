// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStandardObserver_OffWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityOff, &buf)
	o.StartTiming("checks", "run", "G1")(true, nil)
	assert.Empty(t, buf.String())
}

func TestStandardObserver_DebugWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityDebug, &buf)
	o.LogOperation(StandardObservabilityData{
		Component:  "checks",
		Operation:  "run_check",
		Source:     "G4",
		Success:    true,
		IssueCount: 3,
	})

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "checks", rec["component"])
	assert.Equal(t, "G4", rec["source"])
	assert.Equal(t, o.RunID(), rec["run_id"])
	assert.EqualValues(t, 3, rec["issue_count"])
}

func TestStandardObserver_MetricsOnlyLogsErrors(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityMetrics, &buf)
	o.LogOperation(StandardObservabilityData{Component: "checks", Operation: "ok", Success: true})
	assert.Empty(t, buf.String())

	o.LogOperation(StandardObservabilityData{Component: "checks", Operation: "panic", Error: "boom"})
	assert.Contains(t, buf.String(), "boom")
}

func TestNilObserverIsSafe(t *testing.T) {
	var o *StandardObserver
	o.LogOperation(StandardObservabilityData{Operation: "x"})
	o.Sync()
	assert.NotNil(t, o.Logger())
	assert.Nil(t, Debug(o))
}

func TestDebugObserver_Steps(t *testing.T) {
	var buf bytes.Buffer
	d := NewDebugObserver(&buf)
	done := d.StartStep("classify", "pipeline", "personer.csv")
	d.LogDetail("classify", "1 solo crash")
	d.LogMetric("classify", "total_cycling", 4)
	done(true, "")

	out := buf.String()
	assert.Contains(t, out, "classify: pipeline")
	assert.Contains(t, out, "total_cycling")
	assert.Contains(t, out, "completed")
	assert.Same(t, d, Debug(d.StandardObserver))
}

func TestLoggerObserver_SharesLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	o := NewLoggerObserver(ObservabilityDebug, zap.New(core))
	o.StartTiming("web", "verify", "upload")(false, map[string]interface{}{"reason": "bad csv"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "verify", entry.Message)
	assert.Equal(t, o.RunID(), entry.ContextMap()["run_id"])

	off := NewLoggerObserver(ObservabilityOff, zap.New(core))
	off.LogOperation(StandardObservabilityData{Operation: "ignored", Error: "x"})
	assert.Equal(t, 1, logs.Len())
}

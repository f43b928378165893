// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates every table the export writes to.
// Safe to call multiple times.
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
-- One row per verify or classify invocation
CREATE TABLE IF NOT EXISTS run (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL CHECK (kind IN ('verify', 'classify')),
    started_at TEXT NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    crash_count INTEGER NOT NULL DEFAULT 0,
    person_count INTEGER NOT NULL DEFAULT 0,
    total_issues INTEGER NOT NULL DEFAULT 0,
    source TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_run_started_at ON run(started_at);

-- Check results; sub-checks reference their parent check id
CREATE TABLE IF NOT EXISTS check_result (
    run_id TEXT NOT NULL REFERENCES run(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    check_id TEXT NOT NULL,
    parent_id TEXT,
    name TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('pass', 'warning', 'fail')),
    summary TEXT NOT NULL,
    issue_count INTEGER NOT NULL DEFAULT 0,
    details TEXT,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_check_result_check ON check_result(run_id, check_id);

-- Classification columns of every person in a classify run
CREATE TABLE IF NOT EXISTS classified_person (
    run_id TEXT NOT NULL REFERENCES run(id) ON DELETE CASCADE,
    row_index INTEGER NOT NULL,
    crash_id TEXT NOT NULL,
    category_main TEXT NOT NULL,
    category_sub TEXT NOT NULL,
    micromobility_type TEXT NOT NULL,
    confidence TEXT NOT NULL,
    step TEXT NOT NULL,
    conflict_partner TEXT NOT NULL,
    PRIMARY KEY (run_id, row_index)
);

CREATE INDEX IF NOT EXISTS idx_classified_person_type ON classified_person(run_id, micromobility_type);

-- Flattened pipeline counters: group is 'type', 'step', 'guard' or 'total'
CREATE TABLE IF NOT EXISTS classification_stat (
    run_id TEXT NOT NULL REFERENCES run(id) ON DELETE CASCADE,
    stat_group TEXT NOT NULL,
    name TEXT NOT NULL,
    value INTEGER NOT NULL,
    PRIMARY KEY (run_id, stat_group, name)
);
`

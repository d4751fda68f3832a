package db

import "time"

// Component names recorded in the ledger.
const (
	ComponentScrape   = "scrape"
	ComponentValidate = "validate"
	ComponentOrganize = "organize"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Dataset kinds stored in the pronunciations snapshot.
const (
	DatasetAuto   = "auto"
	DatasetManual = "manual"
)

// Run is one invocation of a pipeline component.
type Run struct {
	ID           string
	Component    string
	StartedAt    time.Time
	FinishedAt   time.Time // zero while running
	Status       string
	AutoCount    int
	ManualCount  int
	ErrorCount   int
	WarningCount int
	AutoDigest   string
	ManualDigest string
	Message      string
}

// Outcome is what a finished run reports back.
type Outcome struct {
	Status       string
	AutoCount    int
	ManualCount  int
	ErrorCount   int
	WarningCount int
	AutoDigest   string
	ManualDigest string
	Message      string
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// JobStatus indicates the final state of a conversion job.
type JobStatus string

const (
	JobDone   JobStatus = "done"
	JobFailed JobStatus = "failed"
)

// Job is the ledger record for one conversion job: a single invocation of the
// external document→markdown tool for one uploaded document.
type Job struct {
	// Document is the upload's stem (filename without extension).
	Document string `json:"document" yaml:"document"`

	// InputPath is the persisted upload the job was run against.
	InputPath string `json:"input_path" yaml:"input_path"`

	// MarkdownPath is the resolved conversion output. Empty for failed jobs.
	MarkdownPath string `json:"markdown_path,omitempty" yaml:"markdown_path,omitempty"`

	// Status records whether the job completed.
	Status JobStatus `json:"status" yaml:"status"`

	// Error holds the failure detail for failed jobs.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Duration is the wall-clock time of the whole pipeline run.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// TableCount is the number of tables harvested from the markdown, set
	// after a filter run. -1 means tables were never extracted.
	TableCount int `json:"table_count" yaml:"table_count"`

	// CreatedAt is when the job was recorded.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

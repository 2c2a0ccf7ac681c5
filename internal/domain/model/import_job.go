package model

import (
	"strings"
	"time"
)

type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusError      ImportStatus = "error"
)

// ImportJob tracks one uploaded file from submission to a terminal status.
type ImportJob struct {
	ID          string       `json:"import_id"`
	FileName    string       `json:"file_name"`
	Status      ImportStatus `json:"status"`
	StartedAt   time.Time    `json:"start_time"`
	EndedAt     *time.Time   `json:"end_time,omitempty"`
	TotalRows   int          `json:"total_rows"`
	SuccessRows int          `json:"success_rows"`
	Errors      []string     `json:"error_messages"`
}

// NewImportJob returns a job in the processing state with zeroed counters.
func NewImportJob(id, fileName string, now time.Time) *ImportJob {
	return &ImportJob{
		ID:        id,
		FileName:  fileName,
		Status:    ImportStatusProcessing,
		StartedAt: now,
		Errors:    []string{},
	}
}

func (j *ImportJob) IsTerminal() bool {
	return j.Status == ImportStatusCompleted || j.Status == ImportStatusError
}

// ErrorText is the persisted form of Errors.
func (j *ImportJob) ErrorText() string {
	return JoinErrors(j.Errors)
}

// FinalStatus is error whenever at least one message was recorded.
func FinalStatus(errs []string) ImportStatus {
	if len(errs) > 0 {
		return ImportStatusError
	}
	return ImportStatusCompleted
}

// JoinErrors flattens messages to one line each before joining them with "\n".
func JoinErrors(errs []string) string {
	flat := make([]string, len(errs))
	for i, e := range errs {
		flat[i] = strings.ReplaceAll(e, "\n", " ")
	}
	return strings.Join(flat, "\n")
}

func SplitErrors(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	return strings.Split(text, "\n")
}

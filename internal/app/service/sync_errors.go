package service

import "fmt"

// SyncStage names the step of a sync at which one record failed.
type SyncStage string

const (
	StageLookup    SyncStage = "lookup"
	StageCreate    SyncStage = "create"
	StageUpdate    SyncStage = "update"
	StageFetch     SyncStage = "fetch"
	StageTransform SyncStage = "transform"
)

// SyncError is one per-record failure collected by a batch operation.
type SyncError struct {
	Name     string    `json:"name"`
	SourceID string    `json:"source_id,omitempty"`
	Stage    SyncStage `json:"stage"`
	Err      error     `json:"-"`
}

func (e SyncError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Name, e.Stage, e.Err)
}

func (e SyncError) Unwrap() error {
	return e.Err
}

// Messages renders errs for summaries and reports.
func Messages(errs []SyncError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

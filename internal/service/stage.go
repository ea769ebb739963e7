package service

import "fmt"

// Pipeline stage names, as reported in StageError.
const (
	StageValidate     = "validate"
	StageAssociations = "associations"
	StageInput        = "gsea-input"
	StageEnrichment   = "enrichment"
	StagePathways     = "pathways"
	StageScoring      = "scoring"
	StageInteractions = "interactions"
	StageExport       = "export"
)

// StageError names the pipeline stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

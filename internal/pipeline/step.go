package pipeline

import (
	"fmt"

	"github.com/legaldrishti/backend/internal/models"
)

// stepOrder is the fixed processing order. There is exactly one path through
// the pipeline; documents never skip steps.
var stepOrder = [...]models.Step{
	models.StepUpload,
	models.StepTextExtraction,
	models.StepChunking,
	models.StepMetadata,
	models.StepSummarization,
	models.StepQualityAssurance,
	models.StepPublish,
}

// Steps returns the pipeline steps in processing order.
func Steps() []models.Step {
	out := make([]models.Step, len(stepOrder))
	copy(out, stepOrder[:])
	return out
}

// NextStep returns the successor of step, or ok=false when step is the
// terminal publish step. An unknown step is a programming error and panics.
func NextStep(step models.Step) (models.Step, bool) {
	for i, s := range stepOrder {
		if s == step {
			if i == len(stepOrder)-1 {
				return "", false
			}
			return stepOrder[i+1], true
		}
	}
	panic(fmt.Sprintf("pipeline: unknown step %q", step))
}

// StatusForStep maps a completed step to the document status it implies.
// Every call site derives status through this table so the mapping cannot
// drift.
func StatusForStep(step models.Step) models.DocumentStatus {
	switch step {
	case models.StepUpload:
		return models.DocStatusUploaded
	case models.StepTextExtraction:
		return models.DocStatusTextExtracted
	case models.StepChunking:
		return models.DocStatusChunked
	case models.StepMetadata:
		return models.DocStatusMetadataAdded
	case models.StepSummarization:
		return models.DocStatusSummarized
	case models.StepQualityAssurance:
		return models.DocStatusQAApproved
	case models.StepPublish:
		return models.DocStatusPublished
	default:
		panic(fmt.Sprintf("pipeline: unknown step %q", step))
	}
}

// ValidStep reports whether s is one of the seven pipeline steps.
func ValidStep(s models.Step) bool {
	for _, step := range stepOrder {
		if step == s {
			return true
		}
	}
	return false
}

package pipeline

import (
	"testing"

	"github.com/legaldrishti/backend/internal/models"
)

func TestNextStepOrder(t *testing.T) {
	tests := []struct {
		step models.Step
		next models.Step
		ok   bool
	}{
		{models.StepUpload, models.StepTextExtraction, true},
		{models.StepTextExtraction, models.StepChunking, true},
		{models.StepChunking, models.StepMetadata, true},
		{models.StepMetadata, models.StepSummarization, true},
		{models.StepSummarization, models.StepQualityAssurance, true},
		{models.StepQualityAssurance, models.StepPublish, true},
		{models.StepPublish, "", false},
	}
	for _, tt := range tests {
		next, ok := NextStep(tt.step)
		if ok != tt.ok || next != tt.next {
			t.Errorf("NextStep(%s) = (%s, %v), want (%s, %v)", tt.step, next, ok, tt.next, tt.ok)
		}
	}
}

func TestNextStepUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown step")
		}
	}()
	NextStep(models.Step("ocr"))
}

func TestStatusForStep(t *testing.T) {
	tests := []struct {
		step   models.Step
		status models.DocumentStatus
	}{
		{models.StepUpload, models.DocStatusUploaded},
		{models.StepTextExtraction, models.DocStatusTextExtracted},
		{models.StepChunking, models.DocStatusChunked},
		{models.StepMetadata, models.DocStatusMetadataAdded},
		{models.StepSummarization, models.DocStatusSummarized},
		{models.StepQualityAssurance, models.DocStatusQAApproved},
		{models.StepPublish, models.DocStatusPublished},
	}
	for _, tt := range tests {
		if got := StatusForStep(tt.step); got != tt.status {
			t.Errorf("StatusForStep(%s) = %s, want %s", tt.step, got, tt.status)
		}
	}
}

func TestStepsCoversEveryStepOnce(t *testing.T) {
	steps := Steps()
	if len(steps) != 7 {
		t.Fatalf("got %d steps, want 7", len(steps))
	}
	seen := make(map[models.Step]bool)
	for _, s := range steps {
		if seen[s] {
			t.Errorf("step %s appears twice", s)
		}
		seen[s] = true
		if !ValidStep(s) {
			t.Errorf("ValidStep(%s) = false", s)
		}
	}
	if ValidStep("ocr") {
		t.Error("ValidStep accepted an unknown step")
	}
}

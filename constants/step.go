package constants

// Step is a position in the extraction workflow. Steps advance in the
// declared order; only explicit navigation moves backward.
type Step string

const (
	StepAnalyze Step = "analyze"
	StepSelect  Step = "select"
	StepExtract Step = "extract"
	StepActions Step = "actions"
)

var stepOrder = []Step{StepAnalyze, StepSelect, StepExtract, StepActions}

// StepIndex returns the position of s in the workflow, or -1 if unknown.
func StepIndex(s Step) int {
	for i, st := range stepOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// StepAt returns the step at position i, clamped to the valid range.
func StepAt(i int) Step {
	if i < 0 {
		i = 0
	}
	if i >= len(stepOrder) {
		i = len(stepOrder) - 1
	}
	return stepOrder[i]
}

func IsValidStep(s Step) bool { return StepIndex(s) >= 0 }

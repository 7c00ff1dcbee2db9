package pipeline

import "fmt"

// Stage is a state of the run.
type Stage int

const (
	StageInit Stage = iota
	StageLocate
	StageCapture
	StageExtract
	StageNormalize
	StageCalendarCommit
	StageConfirm
	StageDone
	StageAborted
)

var stageNames = [...]string{
	StageInit:           "INIT",
	StageLocate:         "LOCATE",
	StageCapture:        "CAPTURE",
	StageExtract:        "EXTRACT",
	StageNormalize:      "NORMALIZE",
	StageCalendarCommit: "CALENDAR_COMMIT",
	StageConfirm:        "CONFIRM",
	StageDone:           "DONE",
	StageAborted:        "ABORTED",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Terminal reports whether no stage follows s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageAborted
}

func (s Stage) next() Stage {
	if s.Terminal() {
		return s
	}
	return s + 1
}

// Status is how a stage ended.
type Status int

const (
	StatusSuccess Status = iota
	StatusFail
	StatusSkip
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFail:
		return "fail"
	case StatusSkip:
		return "skip"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Kind classifies a non-success outcome.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindCapture
	KindExtraction
	KindNormalizeSkip
	KindCalendar
	KindPublish
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindCapture:
		return "capture"
	case KindExtraction:
		return "extraction"
	case KindNormalizeSkip:
		return "normalize_skip"
	case KindCalendar:
		return "calendar"
	case KindPublish:
		return "publish"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is what every stage returns, fatal or not.
type Outcome struct {
	Stage  Stage
	Status Status
	Kind   Kind
	Err    error
}

func success(s Stage) Outcome { return Outcome{Stage: s, Status: StatusSuccess} }

func fail(s Stage, k Kind, err error) Outcome {
	return Outcome{Stage: s, Status: StatusFail, Kind: k, Err: err}
}

// abortKinds are the failures that end the run cleanly, keyed by the only
// stage allowed to raise them. Both happen before any side effect.
var abortKinds = map[Kind]Stage{
	KindNotFound:   StageLocate,
	KindExtraction: StageExtract,
}

// Transition returns the stage that follows o. Success and skip advance.
// A NotFound or Extraction failure aborts. A Publish failure still reaches
// DONE. Every other failure is a fault and is returned as an error.
func Transition(o Outcome) (Stage, error) {
	if o.Stage.Terminal() {
		return o.Stage, fmt.Errorf("pipeline: no transition out of %s", o.Stage)
	}
	switch o.Status {
	case StatusSuccess, StatusSkip:
		return o.Stage.next(), nil
	case StatusFail:
		if at, ok := abortKinds[o.Kind]; ok && at == o.Stage {
			return StageAborted, nil
		}
		if o.Kind == KindPublish && o.Stage == StageConfirm {
			return o.Stage.next(), nil
		}
		if o.Err == nil {
			return o.Stage, fmt.Errorf("pipeline: %s: %s failure", o.Stage, o.Kind)
		}
		return o.Stage, fmt.Errorf("pipeline: %s: %w", o.Stage, o.Err)
	}
	return o.Stage, fmt.Errorf("pipeline: %s: unknown status %s", o.Stage, o.Status)
}

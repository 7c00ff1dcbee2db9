// Package pipeline runs one poster through locate, capture, extraction,
// date normalization, calendar entry and chat confirmation, in that order.
// There are no loops and no retries.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	appLog "posteragent/internal/log"
	"posteragent/internal/model"
)

// Locator finds the most recent poster in the chat.
type Locator interface {
	LocateLatestPoster(ctx context.Context) (model.ImageHandle, error)
}

// Capturer turns a located poster into the extraction payload.
type Capturer interface {
	Capture(ctx context.Context, h model.ImageHandle) ([]byte, error)
}

// Extractor reads an EventRecord off the payload.
type Extractor interface {
	Analyze(ctx context.Context, jpeg []byte) (model.EventRecord, error)
}

// Normalizer corrects the record's date.
type Normalizer interface {
	Normalize(rec model.EventRecord) (model.EventRecord, error)
}

// CalendarCommitter creates the calendar entry.
type CalendarCommitter interface {
	CreateCalendarEntry(ctx context.Context, sentence string) error
}

// ArtifactWriter stores a file copy of the event.
type ArtifactWriter interface {
	ExportEvent(rec model.EventRecord) error
}

// Publisher posts the confirmation reply.
type Publisher interface {
	Publish(ctx context.Context, rec model.EventRecord) error
}

// Deps are the collaborators of a run. Exporter is optional.
type Deps struct {
	Locator    Locator
	Capturer   Capturer
	Extractor  Extractor
	Normalizer Normalizer
	Calendar   CalendarCommitter
	Exporter   ArtifactWriter
	Publisher  Publisher
}

func (d Deps) validate() error {
	var errs []error
	if d.Locator == nil {
		errs = append(errs, errors.New("pipeline: locator is required"))
	}
	if d.Capturer == nil {
		errs = append(errs, errors.New("pipeline: capturer is required"))
	}
	if d.Extractor == nil {
		errs = append(errs, errors.New("pipeline: extractor is required"))
	}
	if d.Normalizer == nil {
		errs = append(errs, errors.New("pipeline: normalizer is required"))
	}
	if d.Calendar == nil {
		errs = append(errs, errors.New("pipeline: calendar committer is required"))
	}
	if d.Publisher == nil {
		errs = append(errs, errors.New("pipeline: publisher is required"))
	}
	return errors.Join(errs...)
}

// Pipeline sequences the stages of one run.
type Pipeline struct {
	deps Deps
}

// New checks that every required collaborator is present.
func New(d Deps) (*Pipeline, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &Pipeline{deps: d}, nil
}

// Report is the record of one run.
type Report struct {
	RunID string
	// Final is DONE, ABORTED, or the stage that faulted.
	Final Stage
	// AbortKind is set when Final is ABORTED.
	AbortKind Kind
	Outcomes  []Outcome
	Handle    model.ImageHandle
	Record    model.EventRecord
}

// Aborted reports whether the run ended in ABORTED.
func (r *Report) Aborted() bool { return r.Final == StageAborted }

// PublishErr returns the confirmation failure of a run that otherwise
// completed, or nil.
func (r *Report) PublishErr() error {
	for _, o := range r.Outcomes {
		if o.Kind == KindPublish {
			return o.Err
		}
	}
	return nil
}

// run carries the data handed from stage to stage.
type run struct {
	handle model.ImageHandle
	image  []byte
	record model.EventRecord
}

// Run executes the stages until DONE or ABORTED. A non-nil error means a
// stage faulted; the report then ends at that stage.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: uuid.NewString(), Final: StageInit}
	appLog.Info("pipeline started", "run", rep.RunID)

	var st run
	stage := StageInit
	for !stage.Terminal() {
		start := time.Now()
		o := p.step(ctx, stage, &st)
		rep.Outcomes = append(rep.Outcomes, o)
		logOutcome(rep.RunID, o, time.Since(start))

		next, err := Transition(o)
		rep.Handle, rep.Record = st.handle, st.record
		if err != nil {
			rep.Final = stage
			appLog.Error("pipeline fault", err, "run", rep.RunID, "stage", stage)
			return rep, err
		}
		if next == StageAborted {
			rep.AbortKind = o.Kind
		}
		stage = next
	}

	rep.Final = stage
	appLog.Info("pipeline finished", "run", rep.RunID, "final", stage, "abort_kind", rep.AbortKind)
	return rep, nil
}

func (p *Pipeline) step(ctx context.Context, stage Stage, st *run) Outcome {
	switch stage {
	case StageInit:
		return success(stage)

	case StageLocate:
		h, err := p.deps.Locator.LocateLatestPoster(ctx)
		if err != nil {
			// Nothing has happened yet, so any locate failure aborts.
			return fail(stage, KindNotFound, err)
		}
		st.handle = h
		return success(stage)

	case StageCapture:
		img, err := p.deps.Capturer.Capture(ctx, st.handle)
		if err != nil {
			return fail(stage, KindCapture, err)
		}
		st.image = img
		return success(stage)

	case StageExtract:
		rec, err := p.deps.Extractor.Analyze(ctx, st.image)
		if err != nil {
			return fail(stage, KindExtraction, err)
		}
		st.record = rec
		return success(stage)

	case StageNormalize:
		rec, err := p.deps.Normalizer.Normalize(st.record)
		if err != nil {
			// The record passes through unchanged.
			return Outcome{Stage: stage, Status: StatusSkip, Kind: KindNormalizeSkip, Err: err}
		}
		st.record = rec
		return success(stage)

	case StageCalendarCommit:
		if p.deps.Exporter != nil {
			if err := p.deps.Exporter.ExportEvent(st.record); err != nil {
				appLog.Warn("event export failed", "err", err)
			}
		}
		if err := p.deps.Calendar.CreateCalendarEntry(ctx, st.record.CalendarSentence); err != nil {
			return fail(stage, KindCalendar, err)
		}
		return success(stage)

	case StageConfirm:
		if err := p.deps.Publisher.Publish(ctx, st.record); err != nil {
			return fail(stage, KindPublish, err)
		}
		return success(stage)
	}
	return fail(stage, KindNone, errors.New("no such stage"))
}

func logOutcome(runID string, o Outcome, took time.Duration) {
	switch {
	case o.Status == StatusSuccess:
		appLog.Info("stage done", "run", runID, "stage", o.Stage, "took", took.Round(time.Millisecond))
	case o.Status == StatusSkip:
		appLog.Warn("stage skipped", "run", runID, "stage", o.Stage, "kind", o.Kind, "err", o.Err)
	default:
		appLog.Error("stage failed", o.Err, "run", runID, "stage", o.Stage, "kind", o.Kind)
	}
}

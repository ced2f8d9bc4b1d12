package triage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/feedbackrelay/internal/bus"
	"github.com/nextlevelbuilder/feedbackrelay/internal/classifier"
	"github.com/nextlevelbuilder/feedbackrelay/internal/feedback"
	"github.com/nextlevelbuilder/feedbackrelay/internal/providers"
)

// Stage is a pipeline state. Runs move forward through
// Received, Validated, Normalized, Classified, Dispatched and Confirmed,
// or stop at Rejected or Ignored.
type Stage string

const (
	StageReceived   Stage = "received"
	StageValidated  Stage = "validated"
	StageNormalized Stage = "normalized"
	StageClassified Stage = "classified"
	StageDispatched Stage = "dispatched"
	StageConfirmed  Stage = "confirmed"
	StageRejected   Stage = "rejected"
	StageIgnored    Stage = "ignored"
)

const (
	tracerName     = "github.com/nextlevelbuilder/feedbackrelay/internal/triage"
	publishTimeout = 5 * time.Second
)

// Run is the record of one pipeline execution.
type Run struct {
	ID         string
	UpdateID   int64
	ChatID     int64
	Stage      Stage
	Normalized Normalized
	Outcome    classifier.Outcome
	Result     feedback.ActionResult
}

// Deps are the collaborators of a Pipeline. Transcriber, Issues and Events
// may be nil; the affected stage degrades instead of failing.
type Deps struct {
	AuthorizedChatID int64
	Messenger        Messenger
	Transcriber      providers.Transcriber
	Classifier       Classifier
	Issues           IssueCreator
	Events           bus.EventPublisher
	Tracer           trace.Tracer
}

// Pipeline processes inbound updates end to end.
type Pipeline struct {
	gate       Gate
	messenger  Messenger
	normalizer *Normalizer
	classifier Classifier
	dispatcher *Dispatcher
	events     bus.EventPublisher
	tracer     trace.Tracer
}

func New(d Deps) *Pipeline {
	events := d.Events
	if events == nil {
		events = bus.NopPublisher{}
	}
	tracer := d.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Pipeline{
		gate:       Gate{AuthorizedChatID: d.AuthorizedChatID},
		messenger:  d.Messenger,
		normalizer: NewNormalizer(d.Messenger, d.Transcriber),
		classifier: d.Classifier,
		dispatcher: NewDispatcher(d.Messenger, d.Issues),
		events:     events,
		tracer:     tracer,
	}
}

// Gate returns the admission check used by Process.
func (p *Pipeline) Gate() Gate { return p.gate }

// Process runs update through every stage. Inner stages absorb their own
// failures; the only error returned is a failure to deliver the final
// confirmation, in which case Run.Stage is StageDispatched.
func (p *Pipeline) Process(ctx context.Context, update *telego.Update) (*Run, error) {
	run := &Run{ID: uuid.NewString(), Stage: StageReceived}
	if update != nil {
		run.UpdateID = int64(update.UpdateID)
	}
	log := slog.With("run_id", run.ID, "update_id", run.UpdateID)

	run.Stage = p.gate.Check(update)
	switch run.Stage {
	case StageRejected:
		if update != nil && update.Message != nil {
			log.Info("triage.rejected", "chat_id", update.Message.Chat.ID)
		} else {
			log.Debug("triage.rejected", "reason", "no message")
		}
		return run, nil
	case StageIgnored:
		log.Debug("triage.ignored", "chat_id", update.Message.Chat.ID)
		return run, nil
	}

	msg := update.Message
	run.ChatID = msg.Chat.ID

	ctx, span := p.tracer.Start(ctx, "triage.process", trace.WithAttributes(
		attribute.String("triage.run_id", run.ID),
		attribute.Int64("telegram.update_id", run.UpdateID),
		attribute.Int64("telegram.chat_id", run.ChatID),
	))
	defer span.End()

	// Normalize
	nctx, nspan := p.tracer.Start(ctx, "triage.normalize")
	run.Normalized = p.normalizer.Normalize(nctx, msg)
	nspan.SetAttributes(attribute.String("triage.source", string(run.Normalized.Source)))
	if run.Normalized.Err != nil {
		nspan.RecordError(run.Normalized.Err)
	}
	nspan.End()
	run.Stage = StageNormalized
	log.Info("triage.normalized", "source", run.Normalized.Source, "chars", len([]rune(run.Normalized.Text)))

	// Classify
	sendProgress(ctx, p.messenger, run.ChatID, "🤖 Analyzing your feedback...")
	cctx, cspan := p.tracer.Start(ctx, "triage.classify")
	run.Outcome = p.classify(cctx, run.Normalized.Text)
	cspan.SetAttributes(
		attribute.Bool("triage.fallback", run.Outcome.Fallback),
		attribute.String("feedback.type", string(run.Outcome.Record.Type)),
		attribute.String("feedback.action", string(run.Outcome.Record.Action)),
	)
	if run.Outcome.Err != nil {
		cspan.RecordError(run.Outcome.Err)
	}
	cspan.End()
	run.Stage = StageClassified
	log.Info("triage.classified",
		"type", run.Outcome.Record.Type,
		"priority", run.Outcome.Record.Priority,
		"action", run.Outcome.Record.Action,
		"fallback", run.Outcome.Fallback,
	)

	// Dispatch
	dctx, dspan := p.tracer.Start(ctx, "triage.dispatch")
	run.Result = p.dispatcher.Dispatch(dctx, run.ChatID, run.Outcome.Record)
	dspan.SetAttributes(attribute.Bool("triage.success", run.Result.Success))
	if !run.Result.Success {
		dspan.SetStatus(codes.Error, run.Result.Error)
	}
	dspan.End()
	run.Stage = StageDispatched
	log.Info("triage.dispatched", "success", run.Result.Success, "issue", run.Result.IssueNumber, "error", run.Result.Error)

	// Confirm
	fctx, fspan := p.tracer.Start(ctx, "triage.confirm")
	err := p.messenger.SendMarkdown(fctx, run.ChatID, FormatConfirmation(run.Outcome.Record, run.Result))
	if err != nil {
		fspan.RecordError(err)
		fspan.SetStatus(codes.Error, "confirmation not delivered")
		span.SetStatus(codes.Error, "confirmation not delivered")
	}
	fspan.End()

	if err != nil {
		p.publish(ctx, run, bus.EventTriageFailed, err)
		return run, fmt.Errorf("send confirmation: %w", err)
	}
	run.Stage = StageConfirmed
	span.SetAttributes(attribute.String("triage.stage", string(run.Stage)))
	log.Info("triage.confirmed")
	p.publish(ctx, run, bus.EventTriageCompleted, nil)
	return run, nil
}

func (p *Pipeline) classify(ctx context.Context, text string) classifier.Outcome {
	if p.classifier == nil {
		return classifier.Outcome{Record: feedback.DefaultRecord(text), Fallback: true}
	}
	return p.classifier.ClassifyDetailed(ctx, text)
}

// publish emits a triage event. Delivery is best-effort.
func (p *Pipeline) publish(ctx context.Context, run *Run, name string, runErr error) {
	rec := run.Outcome.Record
	ev := bus.TriageEvent{
		ID:         uuid.NewString(),
		Name:       name,
		RunID:      run.ID,
		UpdateID:   run.UpdateID,
		ChatID:     run.ChatID,
		Source:     string(run.Normalized.Source),
		Stage:      string(run.Stage),
		Type:       string(rec.Type),
		Priority:   string(rec.Priority),
		Action:     string(rec.Action.Resolve()),
		Title:      rec.Title,
		Fallback:   run.Outcome.Fallback,
		Success:    run.Result.Success && runErr == nil,
		IssueURL:   run.Result.URL,
		Error:      run.Result.Error,
		OccurredAt: time.Now().UTC(),
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.events.Publish(pctx, ev); err != nil {
		slog.Warn("triage.publish_failed", "run_id", run.ID, "event", name, "error", err)
	}
}

// sendProgress sends an interim status message. Delivery failures are
// logged and never stop the run.
func sendProgress(ctx context.Context, m Messenger, chatID int64, text string) {
	if err := m.SendMarkdown(ctx, chatID, text); err != nil {
		slog.Warn("triage.progress_failed", "chat_id", chatID, "error", err)
	}
}

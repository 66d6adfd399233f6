package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/offerdraft/internal/strategy"
)

const (
	StageNormalize = "normalize"
	StageCompose   = "compose"
	StageOracle    = "oracle"
	StageInterpret = "interpret"
)

const tracerName = "github.com/joelkehle/offerdraft/internal/offer"

type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageNameFromError returns the failing stage, or "" when err did not come
// from a pipeline stage.
func StageNameFromError(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

type StageProgressFn func(stage, message string)

// Generator is the retrying oracle call. *Adapter implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, StageAttemptMetrics, error)
	ModelName() string
}

// Outcome summarises one generation run. It carries no offer content.
type Outcome struct {
	GenerationID string
	StrategyA    strategy.Kind
	StrategyB    strategy.Kind
	WeightA      float64
	Model        string
	Attempts     int
	Elapsed      time.Duration
	Stage        string
	ErrorCode    string
	StartedAt    time.Time
}

type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, o Outcome) error
}

type PipelineResult struct {
	Bundle         OfferBundle
	Oracle         StageAttemptMetrics
	StagesExecuted []string
	StartedAt      time.Time
	CompletedAt    time.Time
}

type Pipeline struct {
	gen      Generator
	logger   *zap.Logger
	tracer   trace.Tracer
	recorder OutcomeRecorder
	now      func() time.Time
	newID    func() string
}

type PipelineOption func(*Pipeline)

func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

func WithRecorder(r OutcomeRecorder) PipelineOption {
	return func(p *Pipeline) { p.recorder = r }
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPipeline(gen Generator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		gen:    gen,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Run(ctx context.Context, raw map[string]any) (PipelineResult, error) {
	return p.RunWithProgress(ctx, raw, nil)
}

func (p *Pipeline) RunWithProgress(ctx context.Context, raw map[string]any, progress StageProgressFn) (PipelineResult, error) {
	ctx, span := p.tracer.Start(ctx, "offer.generate")
	defer span.End()

	res := PipelineResult{StartedAt: p.now()}
	id := p.newID()
	span.SetAttributes(attribute.String("offer.generation_id", id))
	outcome := Outcome{GenerationID: id, StartedAt: res.StartedAt, Model: p.gen.ModelName()}

	res, err := p.run(ctx, raw, progress, res, &outcome)
	outcome.Elapsed = p.now().Sub(res.StartedAt)
	if err != nil {
		outcome.Stage = StageNameFromError(err)
		outcome.ErrorCode = ErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome.ErrorCode)
		p.logger.Warn("offer generation failed",
			zap.String("generation_id", id),
			zap.String("stage", outcome.Stage),
			zap.String("code", outcome.ErrorCode),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(err))
	} else {
		res.Bundle.GenerationID = id
		res.CompletedAt = p.now()
		p.logger.Info("offer generation complete",
			zap.String("generation_id", id),
			zap.String("strategy_a", string(outcome.StrategyA)),
			zap.String("strategy_b", string(outcome.StrategyB)),
			zap.Int("attempts", outcome.Attempts),
			zap.Duration("elapsed", outcome.Elapsed))
	}
	p.record(ctx, outcome)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, raw map[string]any, progress StageProgressFn, res PipelineResult, outcome *Outcome) (PipelineResult, error) {
	emit(progress, StageNormalize, "Validating deal inputs...")
	var req OfferRequest
	err := p.stage(ctx, StageNormalize, func(context.Context) error {
		var err error
		req, err = Normalize(raw)
		return err
	})
	if err != nil {
		return res, err
	}
	res.StagesExecuted = append(res.StagesExecuted, StageNormalize)
	outcome.StrategyA, outcome.StrategyB, outcome.WeightA = req.StrategyA, req.StrategyB, req.Weights.A

	bundle, metrics, err := p.generate(ctx, req, progress, &res)
	res.Oracle = metrics
	outcome.Attempts = metrics.Attempts
	if err != nil {
		return res, err
	}
	res.Bundle = bundle
	return res, nil
}

func (p *Pipeline) generate(ctx context.Context, req OfferRequest, progress StageProgressFn, res *PipelineResult) (OfferBundle, StageAttemptMetrics, error) {
	emit(progress, StageCompose, "Composing offer instructions...")
	var prompt string
	err := p.stage(ctx, StageCompose, func(context.Context) error {
		defA, okA := strategy.Lookup(req.StrategyA)
		defB, okB := strategy.Lookup(req.StrategyB)
		if !okA || !okB {
			return invalid("strategy", "unknown strategy pair %s/%s", req.StrategyA, req.StrategyB)
		}
		prompt = ComposePrompt(req, defA, defB)
		return nil
	})
	if err != nil {
		return OfferBundle{}, StageAttemptMetrics{}, err
	}
	res.StagesExecuted = append(res.StagesExecuted, StageCompose)

	emit(progress, StageOracle, "Drafting both offers...")
	started := p.now()
	var reply string
	var metrics StageAttemptMetrics
	err = p.stage(ctx, StageOracle, func(ctx context.Context) error {
		var err error
		reply, metrics, err = p.gen.Generate(ctx, prompt)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("offer.oracle.attempts", metrics.Attempts))
		return err
	})
	if err != nil {
		return OfferBundle{}, metrics, err
	}
	emit(progress, StageOracle, fmt.Sprintf("Model replied in %s", p.now().Sub(started).Round(time.Millisecond)))
	res.StagesExecuted = append(res.StagesExecuted, StageOracle)

	emit(progress, StageInterpret, "Checking the drafted offers...")
	var bundle OfferBundle
	err = p.stage(ctx, StageInterpret, func(context.Context) error {
		var err error
		bundle, err = Interpret(reply, req)
		return err
	})
	if err != nil {
		return OfferBundle{}, metrics, err
	}
	res.StagesExecuted = append(res.StagesExecuted, StageInterpret)
	bundle.Model = p.gen.ModelName()
	bundle.GeneratedAt = p.now().UTC()
	return bundle, metrics, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "offer."+name)
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorCode(err))
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

func (p *Pipeline) record(ctx context.Context, o Outcome) {
	if p.recorder == nil {
		return
	}
	// The request may already be cancelled; the outcome is still worth keeping.
	if err := p.recorder.RecordOutcome(context.WithoutCancel(ctx), o); err != nil {
		p.logger.Warn("record generation outcome", zap.String("generation_id", o.GenerationID), zap.Error(err))
	}
}

func emit(progress StageProgressFn, stage, message string) {
	if progress != nil {
		progress(stage, message)
	}
}

package offer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/joelkehle/offerdraft/internal/strategy"
)

type recordingRecorder struct {
	outcomes []Outcome
}

func (r *recordingRecorder) RecordOutcome(_ context.Context, o Outcome) error {
	r.outcomes = append(r.outcomes, o)
	return nil
}

func TestPipelineEndToEnd(t *testing.T) {
	gen := &fakeGenerator{reply: wellFormedReply}
	rec := &recordingRecorder{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPipeline(gen, WithRecorder(rec), WithClock(func() time.Time { return fixed }))

	var stages []string
	res, err := p.RunWithProgress(context.Background(), validForm(), func(stage, _ string) {
		if len(stages) == 0 || stages[len(stages)-1] != stage {
			stages = append(stages, stage)
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Bundle.GenerationID == "" {
		t.Fatal("expected generation id")
	}
	if res.Bundle.Offers[0].Strategy != strategy.SubjectTo || res.Bundle.Offers[0].Weight != 80 {
		t.Fatalf("offer A=%s/%v", res.Bundle.Offers[0].Strategy, res.Bundle.Offers[0].Weight)
	}
	if res.Bundle.Model != "fake-model" || !res.Bundle.GeneratedAt.Equal(fixed) {
		t.Errorf("model=%q generated_at=%s", res.Bundle.Model, res.Bundle.GeneratedAt)
	}
	want := []string{StageNormalize, StageCompose, StageOracle, StageInterpret}
	if strings.Join(stages, ",") != strings.Join(want, ",") {
		t.Errorf("progress stages=%v want=%v", stages, want)
	}
	if strings.Join(res.StagesExecuted, ",") != strings.Join(want, ",") {
		t.Errorf("executed=%v", res.StagesExecuted)
	}
	if !strings.Contains(gen.prompt, "Offer A: Subject-To") {
		t.Errorf("prompt did not carry slot A strategy")
	}

	if len(rec.outcomes) != 1 {
		t.Fatalf("outcomes=%d", len(rec.outcomes))
	}
	o := rec.outcomes[0]
	if o.GenerationID != res.Bundle.GenerationID || o.ErrorCode != "" || o.Attempts != 1 {
		t.Errorf("outcome=%+v", o)
	}
}

func TestPipelineValidationNeverReachesOracle(t *testing.T) {
	gen := &fakeGenerator{reply: wellFormedReply}
	rec := &recordingRecorder{}
	p := NewPipeline(gen, WithRecorder(rec))

	form := validForm()
	form["offer_b_weight"] = 30.0
	_, err := p.Run(context.Background(), form)

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if StageNameFromError(err) != StageNormalize {
		t.Errorf("stage=%q", StageNameFromError(err))
	}
	if gen.calls != 0 {
		t.Fatalf("oracle called %d times", gen.calls)
	}
	if rec.outcomes[0].ErrorCode != CodeValidation {
		t.Errorf("recorded code=%q", rec.outcomes[0].ErrorCode)
	}
}

func TestPipelineSurfacesOracleAndMalformedFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	unavailable := &OracleUnavailableError{Attempts: 3, Err: context.DeadlineExceeded}

	p := NewPipeline(&fakeGenerator{err: unavailable}, WithLogger(zap.New(core)))
	_, err := p.Run(context.Background(), validForm())
	if ErrorCode(err) != CodeOracleUnavailable || StageNameFromError(err) != StageOracle {
		t.Fatalf("err=%v code=%s", err, ErrorCode(err))
	}
	if HTTPStatus(err) != 503 {
		t.Errorf("status=%d", HTTPStatus(err))
	}
	if logs.FilterMessage("offer generation failed").Len() != 1 {
		t.Errorf("expected a failure log entry")
	}

	p = NewPipeline(&fakeGenerator{reply: `{"offers": []}`})
	res, err := p.Run(context.Background(), validForm())
	if ErrorCode(err) != CodeMalformedOffer || StageNameFromError(err) != StageInterpret {
		t.Fatalf("err=%v", err)
	}
	if res.Bundle.GenerationID != "" {
		t.Error("failed run must not return a bundle")
	}
}

// Package chat orchestrates one conversational turn: input validation, the
// optional image path (normalize, infer, post-process), prompt construction
// and the language-model call. The orchestrator holds no state across turns.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"

	"github.com/arko007/chexray-api/internal/conditions"
	"github.com/arko007/chexray-api/internal/llm"
	"github.com/arko007/chexray-api/internal/metrics"
	"github.com/arko007/chexray-api/internal/postprocess"
	"github.com/arko007/chexray-api/internal/prompt"
)

// ErrEmptyRequest rejects turns carrying neither text nor an image. Checked
// before any pipeline component runs.
var ErrEmptyRequest = prompt.ErrEmptyRequest

// fallbackExplanation is returned when classification succeeded but the
// interpretation call did not. The scores are kept; classification value is
// never discarded because interpretation failed.
const fallbackExplanation = "The image was analyzed successfully, but a written " +
	"interpretation could not be generated right now. The probability scores below " +
	"are model estimates, not a diagnosis. Please try again in a moment, and consult " +
	"a healthcare professional for any medical concerns."

// Normalizer converts raw upload bytes into a model input tensor.
type Normalizer interface {
	Tensor(data []byte, declaredType string) ([]float32, error)
}

// Classifier runs one forward pass over a prepared tensor.
type Classifier interface {
	Infer(ctx context.Context, tensor []float32) ([]float32, error)
}

// Turn is one incoming chat request. Image bytes are ephemeral: they are
// dropped as soon as the tensor is produced and never logged or stored.
type Turn struct {
	Text      string
	Image     []byte
	ImageType string
}

// Result is the assembled response for one turn. Conditions and Flagged are
// nil when no image analysis occurred.
type Result struct {
	Response         string
	HasImageAnalysis bool
	Conditions       *conditions.Scores
	Flagged          map[string]bool
}

// Orchestrator wires the pipeline components for one process lifetime.
type Orchestrator struct {
	normalizer  Normalizer
	classifier  Classifier
	interpreter llm.Interpreter
	thresholds  map[string]float64
}

func NewOrchestrator(n Normalizer, c Classifier, i llm.Interpreter, thresholds map[string]float64) *Orchestrator {
	return &Orchestrator{
		normalizer:  n,
		classifier:  c,
		interpreter: i,
		thresholds:  thresholds,
	}
}

// Run executes one turn. The five pipeline steps are strictly sequential;
// the image path is skipped entirely when no image is present.
func (o *Orchestrator) Run(ctx context.Context, turn Turn) (*Result, error) {
	if len(turn.Image) == 0 && turn.Text == "" {
		return nil, ErrEmptyRequest
	}

	var scores *conditions.Scores
	var flagged map[string]bool

	if len(turn.Image) > 0 {
		var err error
		scores, err = o.analyzeImage(ctx, turn)
		// The raw bytes are not needed past this point, whatever the outcome.
		turn.Image = nil
		if err != nil {
			return nil, err
		}
		flagged = postprocess.Flags(scores, o.thresholds)
	}

	p, err := prompt.Build(prompt.Request{Scores: scores, UserText: turn.Text})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := o.interpreter.Interpret(ctx, p)
	if err != nil {
		metrics.InterpretationDurationSeconds.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if scores == nil {
			return nil, err
		}
		// Partial-failure policy: surface the successful classification with
		// a generic explanation instead of an error.
		log.WithError(err).Warn("interpretation failed after successful analysis, using fallback text")
		return &Result{
			Response:         fallbackExplanation,
			HasImageAnalysis: true,
			Conditions:       scores,
			Flagged:          flagged,
		}, nil
	}
	metrics.InterpretationDurationSeconds.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	return &Result{
		Response:         text,
		HasImageAnalysis: scores != nil,
		Conditions:       scores,
		Flagged:          flagged,
	}, nil
}

func (o *Orchestrator) analyzeImage(ctx context.Context, turn Turn) (*conditions.Scores, error) {
	start := time.Now()

	tensor, err := o.normalizer.Tensor(turn.Image, turn.ImageType)
	if err != nil {
		return nil, err
	}

	raw, err := o.classifier.Infer(ctx, tensor)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	scores, err := postprocess.Probabilities(raw)
	if err != nil {
		return nil, fmt.Errorf("post-processing: %w", err)
	}

	metrics.InferenceDurationSeconds.Observe(time.Since(start).Seconds())
	return scores, nil
}

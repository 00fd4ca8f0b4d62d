package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arko007/chexray-api/internal/conditions"
	"github.com/arko007/chexray-api/internal/llm"
	"github.com/arko007/chexray-api/internal/llm/stubllm"
	"github.com/arko007/chexray-api/internal/preprocess"
)

type fakeNormalizer struct {
	calls  int
	tensor []float32
	err    error
}

func (f *fakeNormalizer) Tensor(_ []byte, _ string) ([]float32, error) {
	f.calls++
	return f.tensor, f.err
}

type fakeClassifier struct {
	calls int
	raw   []float32
	err   error
}

func (f *fakeClassifier) Infer(_ context.Context, _ []float32) ([]float32, error) {
	f.calls++
	return f.raw, f.err
}

var testThresholds = map[string]float64{"Cardiomegaly": 0.5}

func newFixture() (*fakeNormalizer, *fakeClassifier, *stubllm.Client) {
	raw := make([]float32, conditions.Count)
	raw[2] = 3 // Cardiomegaly well above its threshold
	return &fakeNormalizer{tensor: make([]float32, preprocess.TensorLen)},
		&fakeClassifier{raw: raw},
		stubllm.NewClient()
}

func TestRunEmptyRequestInvokesNothing(t *testing.T) {
	req := require.New(t)
	norm, cls, stub := newFixture()
	o := NewOrchestrator(norm, cls, stub, testThresholds)

	_, err := o.Run(context.Background(), Turn{})
	req.ErrorIs(err, ErrEmptyRequest)
	req.Zero(norm.calls)
	req.Zero(cls.calls)
	req.Zero(stub.Calls)
}

func TestRunTextOnlySkipsImagePath(t *testing.T) {
	req := require.New(t)
	norm, cls, stub := newFixture()
	o := NewOrchestrator(norm, cls, stub, testThresholds)

	result, err := o.Run(context.Background(), Turn{Text: "what is cardiomegaly?"})
	req.NoError(err)

	req.Zero(norm.calls)
	req.Zero(cls.calls)
	req.Equal(1, stub.Calls)
	req.False(result.HasImageAnalysis)
	req.Nil(result.Conditions)
	req.Nil(result.Flagged)
	req.NotEmpty(result.Response)
}

func TestRunImagePath(t *testing.T) {
	req := require.New(t)
	norm, cls, stub := newFixture()
	o := NewOrchestrator(norm, cls, stub, testThresholds)

	result, err := o.Run(context.Background(), Turn{
		Text:      "what does this mean?",
		Image:     []byte{0x01},
		ImageType: "image/jpeg",
	})
	req.NoError(err)

	req.Equal(1, norm.calls)
	req.Equal(1, cls.calls)
	req.Equal(1, stub.Calls)
	req.True(result.HasImageAnalysis)
	req.NotNil(result.Conditions)
	for _, name := range conditions.Names {
		p, ok := result.Conditions.Get(name)
		req.True(ok)
		req.Greater(p, 0.0)
		req.Less(p, 1.0)
	}
	req.True(result.Flagged["Cardiomegaly"])
	req.Contains(result.Response, "Disclaimer")
}

func TestRunImageOnlyWithoutText(t *testing.T) {
	req := require.New(t)
	norm, cls, stub := newFixture()
	o := NewOrchestrator(norm, cls, stub, testThresholds)

	result, err := o.Run(context.Background(), Turn{Image: []byte{0x01}})
	req.NoError(err)
	req.True(result.HasImageAnalysis)
	req.NotNil(result.Conditions)
}

func TestRunNormalizerFailureStopsPipeline(t *testing.T) {
	req := require.New(t)
	norm, cls, stub := newFixture()
	norm.err = preprocess.ErrDecode
	o := NewOrchestrator(norm, cls, stub, testThresholds)

	_, err := o.Run(context.Background(), Turn{Image: []byte{0x01}})
	req.ErrorIs(err, preprocess.ErrDecode)
	req.Zero(cls.calls)
	req.Zero(stub.Calls)
}

func TestRunClassifierFailureStopsPipeline(t *testing.T) {
	req := require.New(t)
	norm, cls, stub := newFixture()
	cls.err = errors.New("session exploded")
	o := NewOrchestrator(norm, cls, stub, testThresholds)

	_, err := o.Run(context.Background(), Turn{Image: []byte{0x01}})
	req.Error(err)
	req.Zero(stub.Calls)
}

func TestRunPartialFailureKeepsScores(t *testing.T) {
	req := require.New(t)
	norm, cls, stub := newFixture()
	stub.Err = llm.ErrTimeout
	o := NewOrchestrator(norm, cls, stub, testThresholds)

	result, err := o.Run(context.Background(), Turn{Image: []byte{0x01}, Text: "explain"})
	req.NoError(err)

	// Classification value is never discarded because interpretation failed.
	req.True(result.HasImageAnalysis)
	req.NotNil(result.Conditions)
	req.NotEmpty(result.Response)
	req.Equal(fallbackExplanation, result.Response)
}

func TestRunGatewayFailureWithoutScoresIsFatal(t *testing.T) {
	req := require.New(t)
	norm, cls, stub := newFixture()
	stub.Err = llm.ErrUnavailable
	o := NewOrchestrator(norm, cls, stub, testThresholds)

	_, err := o.Run(context.Background(), Turn{Text: "hello"})
	req.ErrorIs(err, llm.ErrUnavailable)
}

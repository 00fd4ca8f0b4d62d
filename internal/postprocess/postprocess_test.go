package postprocess

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arko007/chexray-api/internal/conditions"
)

func TestSigmoidContract(t *testing.T) {
	req := require.New(t)

	// Exactly 0.5 at zero.
	req.Equal(0.5, Sigmoid(0))

	// Strictly within (0,1) and strictly increasing.
	inputs := []float64{-50, -10, -1, -0.1, 0.1, 1, 10, 50}
	prev := 0.0
	for _, x := range inputs {
		p := Sigmoid(x)
		req.Greater(p, 0.0)
		req.Less(p, 1.0)
		req.Greater(p, prev)
		prev = p
	}

	// Antisymmetric around zero.
	for _, x := range []float64{0.25, 1, 3.5, 12} {
		req.InDelta(1.0, Sigmoid(x)+Sigmoid(-x), 1e-12)
	}
}

func TestProbabilitiesClosedVocabulary(t *testing.T) {
	req := require.New(t)

	raw := make([]float32, conditions.Count)
	for i := range raw {
		raw[i] = float32(i) - 7
	}

	scores, err := Probabilities(raw)
	req.NoError(err)
	for _, name := range conditions.Names {
		p, ok := scores.Get(name)
		req.True(ok)
		req.Greater(p, 0.0)
		req.Less(p, 1.0)
	}

	_, err = Probabilities(raw[:conditions.Count-2])
	req.Error(err)
}

func TestFlagsOnlyConfiguredConditions(t *testing.T) {
	req := require.New(t)

	raw := make([]float32, conditions.Count)
	raw[2] = 4  // Cardiomegaly, sigmoid ≈ 0.982
	raw[5] = -4 // Edema, sigmoid ≈ 0.018
	scores, err := Probabilities(raw)
	req.NoError(err)

	thresholds := map[string]float64{
		"Cardiomegaly": 0.5,
		"Edema":        0.5,
	}
	flags := Flags(scores, thresholds)

	req.Len(flags, 2)
	req.True(flags["Cardiomegaly"])
	req.False(flags["Edema"])

	// Unconfigured conditions never flag, whatever their probability.
	_, present := flags["Pneumonia"]
	req.False(present)

	req.Empty(Flags(scores, nil))
}

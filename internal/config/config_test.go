package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseThresholds(t *testing.T) {
	req := require.New(t)

	thresholds, err := parseThresholds("Cardiomegaly=0.5,Pleural Effusion=0.65")
	req.NoError(err)
	req.Len(thresholds, 2)
	req.Equal(0.5, thresholds["Cardiomegaly"])
	req.Equal(0.65, thresholds["Pleural Effusion"])
}

func TestParseThresholdsEmpty(t *testing.T) {
	req := require.New(t)

	thresholds, err := parseThresholds("  ")
	req.NoError(err)
	req.Empty(thresholds)
}

func TestParseThresholdsRejectsBadInput(t *testing.T) {
	req := require.New(t)

	_, err := parseThresholds("Cardiomegaly")
	req.Error(err)

	_, err = parseThresholds("Imaginary Condition=0.5")
	req.Error(err)

	_, err = parseThresholds("Cardiomegaly=high")
	req.Error(err)

	_, err = parseThresholds("Cardiomegaly=1.5")
	req.Error(err)
}

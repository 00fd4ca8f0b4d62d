// Package conditions defines the closed vocabulary of classifier outputs.
// The name list is the CheXpert label set; its order matches the output
// layer of the checkpoint and must never change at runtime.
package conditions

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Count is the number of conditions the classifier scores.
const Count = 14

// Names is the fixed, ordered condition vocabulary. Index i corresponds to
// entry i of the raw model output.
var Names = [Count]string{
	"No Finding",
	"Enlarged Cardiomediastinum",
	"Cardiomegaly",
	"Lung Opacity",
	"Lung Lesion",
	"Edema",
	"Consolidation",
	"Pneumonia",
	"Atelectasis",
	"Pneumothorax",
	"Pleural Effusion",
	"Pleural Other",
	"Fracture",
	"Support Devices",
}

var indexByName = func() map[string]int {
	m := make(map[string]int, Count)
	for i, name := range Names {
		m[name] = i
	}
	return m
}()

// Known reports whether name belongs to the vocabulary.
func Known(name string) bool {
	_, ok := indexByName[name]
	return ok
}

// Scores is a fully populated per-condition probability set. The zero value
// is not valid; use NewScores.
type Scores struct {
	values [Count]float64
}

// NewScores builds a Scores from one probability per vocabulary entry, in
// vocabulary order.
func NewScores(probs []float64) (*Scores, error) {
	if len(probs) != Count {
		return nil, fmt.Errorf("expected %d probabilities, got %d", Count, len(probs))
	}
	s := &Scores{}
	copy(s.values[:], probs)
	return s, nil
}

// Get returns the probability for a condition name.
func (s *Scores) Get(name string) (float64, bool) {
	i, ok := indexByName[name]
	if !ok {
		return 0, false
	}
	return s.values[i], true
}

// At returns the probability at vocabulary index i.
func (s *Scores) At(i int) float64 {
	return s.values[i]
}

// MarshalJSON serializes the scores as a JSON object in vocabulary order.
func (s *Scores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(s.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores scores from a JSON object keyed by condition name.
// Every vocabulary entry must be present.
func (s *Scores) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for i, name := range Names {
		v, ok := m[name]
		if !ok {
			return fmt.Errorf("missing condition %q", name)
		}
		s.values[i] = v
	}
	return nil
}

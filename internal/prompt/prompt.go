// Package prompt renders the request sent to the language model. Safety
// constraints are structural properties of the rendered prompt, not advisory
// text: the builder either emits them or fails, there is no path that skips
// them.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/arko007/chexray-api/internal/conditions"
)

// ErrEmptyRequest is returned when there is nothing to interpret: no scores
// and no user text.
var ErrEmptyRequest = errors.New("nothing to interpret: no scores and no user text")

// Request is one interpretation request. Scores may be nil (text-only turn)
// and UserText may be empty (image-only turn), but not both.
type Request struct {
	Scores   *conditions.Scores
	UserText string
}

// Prompt is the rendered request: a system block carrying the safety
// constraints and a user block carrying the data.
type Prompt struct {
	System string
	User   string
}

const systemWithScores = `You are a medical AI assistant that provides educational explanations of chest X-ray analysis results.

CRITICAL RULES (you must follow all):
1. You are NOT a doctor and do NOT provide medical diagnoses
2. Explain what the probabilities mean in simple terms
3. DO NOT claim any condition is definitely present or absent
4. Always emphasize uncertainty and the need for professional evaluation
5. Use calm, clear, non-alarmist language
6. Structure your response to be easy to read
7. Include a clear disclaimer at the end
8. Reference only the conditions provided in the data - do NOT invent or hallucinate other conditions
9. If asked for a diagnosis, firmly state you cannot diagnose and recommend consulting a healthcare professional
10. Explain that these are probabilistic model outputs, not definitive findings

Tone: Professional, calm, educational, careful.`

const systemWithoutScores = `You are a helpful medical education assistant focusing on radiology and chest X-ray knowledge.

CRITICAL RULES:
1. Provide general medical education information only
2. Do NOT provide specific medical advice or diagnoses
3. Do NOT claim to have access to any imaging data
4. Recommend consulting healthcare professionals for specific concerns
5. Use clear, accurate medical terminology while remaining accessible
6. Always include appropriate disclaimers
7. Stay within your knowledge boundaries - if unsure, say so

Tone: Professional, educational, careful, helpful.`

const defaultQuestion = "Please explain these results."

// Build renders a Request into a Prompt. User text is carried verbatim; the
// probability table is serialized in vocabulary order with three decimals.
func Build(req Request) (Prompt, error) {
	text := strings.TrimSpace(req.UserText)

	if req.Scores == nil {
		if text == "" {
			return Prompt{}, ErrEmptyRequest
		}
		return Prompt{System: systemWithoutScores, User: text}, nil
	}

	question := text
	if question == "" {
		question = defaultQuestion
	}

	user := fmt.Sprintf(`The AI model has analyzed a chest X-ray and produced the following probability estimates for different conditions:

%s

User question: %s

Provide an educational interpretation of these results. Remember:
- These are probabilities, not diagnoses
- High probability does NOT guarantee the condition is present
- Low probability does NOT guarantee the condition is absent
- Professional medical evaluation is essential
- Always include a disclaimer`, scoreTable(req.Scores), question)

	return Prompt{System: systemWithScores, User: user}, nil
}

// scoreTable lists every vocabulary entry, never a name outside it.
func scoreTable(scores *conditions.Scores) string {
	lines := lo.Map(conditions.Names[:], func(name string, i int) string {
		return fmt.Sprintf("- %s: %.3f", name, scores.At(i))
	})
	return strings.Join(lines, "\n")
}

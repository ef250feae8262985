package compare

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pkgz/repeater"

	"github.com/videoarena/videoarena/pkg/models"
)

// evaluate asks the judge model to score every collected model response for
// one combination. A failed judge call or a malformed verdict degrades to an
// empty evaluation with an explanatory summary; the model results stand on
// their own, so the job never fails on this path.
func (p *Pipeline) evaluate(ctx context.Context, prompt string, results []models.ModelResult) ([]models.EvaluationScore, string) {
	evalPrompt := buildJudgePrompt(prompt, results)

	var raw string
	rpt := repeater.NewDefault(3, time.Second)
	err := rpt.Do(ctx, func() error {
		var callErr error
		raw, callErr = p.client.GenerateText(ctx, p.modelSet[p.judgeModel], evalPrompt)
		return callErr
	})
	if err != nil {
		slog.Warn("judge call failed", "judge", p.judgeModel, "error", err)
		return nil, fmt.Sprintf("Evaluation failed: %v", err)
	}

	scores, summary, err := parseVerdict(raw)
	if err != nil {
		slog.Warn("judge returned unparseable verdict", "judge", p.judgeModel, "error", err)
		return nil, fmt.Sprintf("Evaluation failed: %v", err)
	}
	return scores, summary
}

func buildJudgePrompt(prompt string, results []models.ModelResult) string {
	var b strings.Builder
	b.WriteString("You are an expert evaluator of AI video understanding capabilities.\n\n")
	b.WriteString("The user asked the following question about a video:\n")
	fmt.Fprintf(&b, "%q\n\n", prompt)
	b.WriteString("Here are the responses from different AI models:\n\n")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(&b, "### %s\n[ERROR: %s]\n\n", r.ModelName, r.Error)
		} else {
			fmt.Fprintf(&b, "### %s\n%s\n\n", r.ModelName, r.Response)
		}
	}

	b.WriteString(`Evaluate each model's response based on how well it addresses the user's specific question. Consider relevance and accuracy, completeness, specificity, timestamp quality where requested, technical insight, actionability, and organization. Weight the criteria by the prompt's focus.

Provide your evaluation in the following JSON format:
{
    "evaluations": [
        {
            "model_name": "model name",
            "score": 8,
            "reasoning": "Brief explanation of the score",
            "strengths": ["strength 1", "strength 2"],
            "weaknesses": ["weakness 1", "weakness 2"]
        }
    ],
    "overall_summary": "A brief comparison summary of all models"
}

Respond ONLY with the JSON, no additional text.`)
	return b.String()
}

type verdict struct {
	Evaluations    []models.EvaluationScore `json:"evaluations"`
	OverallSummary string                   `json:"overall_summary"`
}

// parseVerdict decodes the judge's response, tolerating a markdown code
// fence around the JSON.
func parseVerdict(raw string) ([]models.EvaluationScore, string, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) >= 2 {
			text = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	var v verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, "", fmt.Errorf("judge output is not valid JSON: %w", err)
	}
	return v.Evaluations, v.OverallSummary, nil
}

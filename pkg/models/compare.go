package models

// CompareRequest is the payload of a single-comparison job: one video, one
// prompt, run through every selected model.
type CompareRequest struct {
	VideoID string   `json:"video_id"`
	Prompt  string   `json:"prompt"`
	Models  []string `json:"models,omitempty"` // empty means all supported models
}

// BatchCompareRequest fans a list of videos across a list of prompts; every
// (video, prompt) combination becomes one comparison.
type BatchCompareRequest struct {
	VideoIDs []string `json:"video_ids"`
	Prompts  []string `json:"prompts"`
	Models   []string `json:"models,omitempty"`
}

// ModelResult is the outcome of one model invocation. Exactly one of
// Response and Error is non-empty.
type ModelResult struct {
	ModelName string  `json:"model_name"`
	ModelID   string  `json:"model_id"`
	Response  string  `json:"response"`
	Error     string  `json:"error,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

// EvaluationScore is the judge's verdict on one model's response.
type EvaluationScore struct {
	ModelName  string   `json:"model_name"`
	Score      int      `json:"score"` // 1-10
	Reasoning  string   `json:"reasoning"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// CompareResult holds everything produced for one (video, prompt)
// combination. Evaluation and OverallSummary are nil/empty when the judge
// call failed or returned unparseable output; the model results stand alone.
type CompareResult struct {
	VideoID        string            `json:"video_id"`
	Prompt         string            `json:"prompt"`
	Results        []ModelResult     `json:"results"`
	Evaluation     []EvaluationScore `json:"evaluation,omitempty"`
	OverallSummary string            `json:"overall_summary,omitempty"`
}

// BatchCompareResult is the result payload of a batch job.
type BatchCompareResult struct {
	Comparisons       []CompareResult `json:"comparisons"`
	TotalVideos       int             `json:"total_videos"`
	TotalPrompts      int             `json:"total_prompts"`
	TotalCombinations int             `json:"total_combinations"`
}

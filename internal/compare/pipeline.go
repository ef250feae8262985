// Package compare drives a comparison job: validate inputs, fan the
// video+prompt out to the selected models in parallel, then ask the judge
// model to score the collected responses.
package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/videoarena/videoarena/internal/video"
	"github.com/videoarena/videoarena/pkg/models"
)

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrUnknownVideo = errors.New("unknown video")
	ErrEmptyPrompt  = errors.New("prompt must not be empty")
)

// VideoStore is the storage collaborator the pipeline reads videos through.
type VideoStore interface {
	Resolve(id string) (string, error)
	Read(path string) ([]byte, error)
}

// ProgressReporter receives progress checkpoints and hosts the cosmetic
// estimator for long stages. Implemented by queue.Reporter.
type ProgressReporter interface {
	Set(pct int, message string)
	StartEstimate(base, ceiling int, estimate time.Duration, message string) (stop func())
}

// Pipeline runs single and batch comparisons against a fixed model catalog.
type Pipeline struct {
	client     models.ModelClient
	videos     VideoStore
	modelSet   map[string]string // name -> backend model id
	judgeModel string

	// fixed duration heuristic the estimator extrapolates against;
	// cosmetic only
	stageEstimate time.Duration
}

// New creates a Pipeline. modelSet maps exposed model names to backend ids;
// judgeModel must be a key of modelSet.
func New(client models.ModelClient, videos VideoStore, modelSet map[string]string, judgeModel string) *Pipeline {
	return &Pipeline{
		client:        client,
		videos:        videos,
		modelSet:      modelSet,
		judgeModel:    judgeModel,
		stageEstimate: 60 * time.Second,
	}
}

// ModelNames returns the catalog's model names, sorted.
func (p *Pipeline) ModelNames() []string {
	names := make([]string, 0, len(p.modelSet))
	for name := range p.modelSet {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectModels resolves the requested subset against the catalog, defaulting
// to the full set when empty.
func (p *Pipeline) SelectModels(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return p.ModelNames(), nil
	}
	for _, name := range requested {
		if _, ok := p.modelSet[name]; !ok {
			return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownModel, name, p.ModelNames())
		}
	}
	return requested, nil
}

// ValidateCompare checks a single-comparison request before any job is
// created. Unknown videos or models surface here, at submission time.
func (p *Pipeline) ValidateCompare(req models.CompareRequest) error {
	if req.Prompt == "" {
		return ErrEmptyPrompt
	}
	if _, err := p.SelectModels(req.Models); err != nil {
		return err
	}
	if _, err := p.videos.Resolve(req.VideoID); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownVideo, req.VideoID)
	}
	return nil
}

// ValidateBatch checks a batch request before any job is created.
func (p *Pipeline) ValidateBatch(req models.BatchCompareRequest) error {
	if len(req.VideoIDs) == 0 {
		return fmt.Errorf("%w: at least one video is required", ErrUnknownVideo)
	}
	if len(req.Prompts) == 0 {
		return ErrEmptyPrompt
	}
	for _, prompt := range req.Prompts {
		if prompt == "" {
			return ErrEmptyPrompt
		}
	}
	if _, err := p.SelectModels(req.Models); err != nil {
		return err
	}
	for _, id := range req.VideoIDs {
		if _, err := p.videos.Resolve(id); err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownVideo, id)
		}
	}
	return nil
}

// RunSingle executes one comparison. Per-model failures land in that
// model's result entry; only validation failures, a vanished video, or
// cancellation abort the run.
func (p *Pipeline) RunSingle(ctx context.Context, req models.CompareRequest, rep ProgressReporter) (*models.CompareResult, error) {
	rep.Set(5, "Validating inputs")

	names, err := p.SelectModels(req.Models)
	if err != nil {
		return nil, err
	}
	videoBytes, mimeType, err := p.loadVideo(req.VideoID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := rep.StartEstimate(10, 75, p.stageEstimate,
		fmt.Sprintf("Running %d models", len(names)))
	results := p.runModels(ctx, names, videoBytes, mimeType, req.Prompt)
	stop()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep.Set(80, "Evaluating model responses")
	evaluation, summary := p.evaluate(ctx, req.Prompt, results)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep.Set(95, "Assembling result")
	return &models.CompareResult{
		VideoID:        req.VideoID,
		Prompt:         req.Prompt,
		Results:        results,
		Evaluation:     evaluation,
		OverallSummary: summary,
	}, nil
}

// RunBatch executes every (video, prompt) combination sequentially to bound
// load on the model API; within a combination models run in parallel. Each
// combination owns a proportional progress sub-range. Cancellation is
// checked between combinations, never mid-request.
func (p *Pipeline) RunBatch(ctx context.Context, req models.BatchCompareRequest, rep ProgressReporter) (*models.BatchCompareResult, error) {
	rep.Set(5, "Validating inputs")

	names, err := p.SelectModels(req.Models)
	if err != nil {
		return nil, err
	}

	total := len(req.VideoIDs) * len(req.Prompts)
	comparisons := make([]models.CompareResult, 0, total)
	combo := 0

	for _, videoID := range req.VideoIDs {
		videoBytes, mimeType, err := p.loadVideo(videoID)
		if err != nil {
			return nil, err
		}

		for _, prompt := range req.Prompts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			base := 5 + (90*combo)/total
			next := 5 + (90*(combo+1))/total
			ceiling := base + ((next - base) * 3 / 4)

			stop := rep.StartEstimate(base, ceiling, p.stageEstimate,
				fmt.Sprintf("Combination %d/%d: running %d models", combo+1, total, len(names)))
			results := p.runModels(ctx, names, videoBytes, mimeType, prompt)
			stop()
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			evaluation, summary := p.evaluate(ctx, prompt, results)

			comparisons = append(comparisons, models.CompareResult{
				VideoID:        videoID,
				Prompt:         prompt,
				Results:        results,
				Evaluation:     evaluation,
				OverallSummary: summary,
			})

			combo++
			rep.Set(next, fmt.Sprintf("Completed combination %d/%d", combo, total))
		}
	}

	return &models.BatchCompareResult{
		Comparisons:       comparisons,
		TotalVideos:       len(req.VideoIDs),
		TotalPrompts:      len(req.Prompts),
		TotalCombinations: total,
	}, nil
}

// runModels fans one video+prompt pair out to every named model in
// parallel. Each call is failure-isolated: an error becomes that model's
// result entry and never aborts the siblings.
func (p *Pipeline) runModels(ctx context.Context, names []string, videoBytes []byte, mimeType, prompt string) []models.ModelResult {
	results := make([]models.ModelResult, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = p.runModel(ctx, name, videoBytes, mimeType, prompt)
		}(i, name)
	}
	wg.Wait()
	return results
}

func (p *Pipeline) runModel(ctx context.Context, name string, videoBytes []byte, mimeType, prompt string) models.ModelResult {
	modelID := p.modelSet[name]
	start := time.Now()

	text, err := p.client.Generate(ctx, modelID, videoBytes, mimeType, prompt)
	latency := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		slog.Warn("model call failed", "model", name, "error", err, "latency_ms", latency)
		return models.ModelResult{
			ModelName: name,
			ModelID:   modelID,
			Error:     err.Error(),
			LatencyMS: latency,
		}
	}
	return models.ModelResult{
		ModelName: name,
		ModelID:   modelID,
		Response:  text,
		LatencyMS: latency,
	}
}

func (p *Pipeline) loadVideo(id string) ([]byte, string, error) {
	path, err := p.videos.Resolve(id)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownVideo, id)
	}
	b, err := p.videos.Read(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading video %q: %w", id, err)
	}
	return b, video.MimeType(path), nil
}

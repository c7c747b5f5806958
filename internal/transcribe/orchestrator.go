package transcribe

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/media"
	"github.com/ayumi-support/kiroku-engine/internal/metrics"
)

// DurationProber reports an audio file's total length in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// SegmentCutter extracts one canonical-format time window to a temp file.
type SegmentCutter interface {
	Cut(ctx context.Context, inputPath string, start, duration float64, index int, requestID string) (string, error)
}

// Preprocessor runs the best-effort quality filter chain on a whole file.
type Preprocessor interface {
	Process(ctx context.Context, inputPath string, opts media.PreprocessOptions) (media.PreprocessResult, error)
}

// Client is the external transcription backend, retries included.
type Client interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error)
}

// Options select per-request behavior.
type Options struct {
	// PromptProfile names the canned domain prompt; empty means WELFARE.
	PromptProfile string
	// Preprocess enables the filter chain on short-path audio. Long-path
	// segments are never preprocessed: the cutter already emits canonical
	// 16kHz mono PCM, so a second pass only adds cost.
	Preprocess bool
}

// Orchestrator drives the whole transcription of one uploaded file:
// probe, short/long path branch, sequential segment loop, merge, cleanup.
//
// Segment processing is strictly sequential. The backend rate-limits per
// key, sequential work bounds temp disk to one segment at a time, and the
// first failing segment index stays unambiguous.
type Orchestrator struct {
	prober  DurationProber
	cutter  SegmentCutter
	pre     Preprocessor
	client  Client
	window  float64 // segmentation threshold and window size, seconds
	ceiling float64 // hard duration ceiling, seconds
	log     zerolog.Logger
}

func NewOrchestrator(prober DurationProber, cutter SegmentCutter, pre Preprocessor, client Client, window, ceiling float64, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		prober:  prober,
		cutter:  cutter,
		pre:     pre,
		client:  client,
		window:  window,
		ceiling: ceiling,
		log:     log.With().Str("component", "orchestrator").Logger(),
	}
}

// Transcribe turns the audio at path into a single transcript. It either
// returns a complete result or a typed error; a failure after partial
// segment processing yields no transcript at all, and segment artifacts
// are cleaned up either way.
func (o *Orchestrator) Transcribe(ctx context.Context, path string, opts Options) (*Result, error) {
	duration, err := o.prober.Duration(ctx, path)
	if err != nil {
		return nil, err
	}

	if duration > o.ceiling {
		metrics.TranscriptionsTotal.WithLabelValues("rejected", "too_long").Inc()
		return nil, &TooLongError{Duration: duration, Limit: o.ceiling}
	}

	if duration <= o.window {
		return o.transcribeShort(ctx, path, opts)
	}
	return o.transcribeLong(ctx, path, duration, opts)
}

func (o *Orchestrator) transcribeShort(ctx context.Context, path string, opts Options) (*Result, error) {
	transcribePath := path
	pre := PreprocessInfo{Applied: false, Reason: "disabled"}

	if opts.Preprocess && o.pre != nil {
		processed, err := o.pre.Process(ctx, path, media.DefaultPreprocessOptions())
		if err != nil {
			// Preprocessing is a quality enhancement, never a hard
			// dependency: fall back to the original file.
			o.log.Warn().Err(err).Str("path", path).Msg("preprocessing failed, using original audio")
			pre.Reason = "failed"
		} else {
			transcribePath = processed.Path
			pre = PreprocessInfo{Applied: true}
			defer os.Remove(processed.Path)
		}
	}

	resp, err := o.client.Transcribe(ctx, transcribePath, TranscribeOpts{
		Language: "",
		Prompt:   DomainPrompt(opts.PromptProfile),
	})
	if err != nil {
		metrics.TranscriptionsTotal.WithLabelValues("single", "error").Inc()
		return nil, &TranscriptionError{SegmentIndex: -1, Err: err}
	}

	metrics.TranscriptionsTotal.WithLabelValues("single", "ok").Inc()
	return &Result{
		Transcript: Transcript{
			Text:     resp.Text,
			Language: resp.Language,
			Duration: resp.Duration,
			Spans:    resp.Spans,
		},
		Meta:          Meta{Method: "single"},
		Preprocessing: pre,
	}, nil
}

func (o *Orchestrator) transcribeLong(ctx context.Context, path string, duration float64, opts Options) (*Result, error) {
	plan := PlanSegments(duration, o.window)
	requestID := uuid.NewString()[:8]

	o.log.Info().
		Str("path", path).
		Float64("total_duration", duration).
		Int("segments", len(plan)).
		Msg("long audio, using segmented transcription")

	var segmentFiles []string
	defer func() {
		// Best-effort: every created artifact goes, success or failure.
		for _, f := range segmentFiles {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				o.log.Warn().Err(err).Str("file", f).Msg("segment cleanup failed")
			}
		}
	}()

	prompt := DomainPrompt(opts.PromptProfile)
	fragments := make([]Fragment, 0, len(plan))

	for _, seg := range plan {
		segPath, err := o.cutter.Cut(ctx, path, seg.Start, seg.Duration(), seg.Index, requestID)
		if err != nil {
			metrics.TranscriptionsTotal.WithLabelValues("segmented", "error").Inc()
			return nil, err
		}
		segmentFiles = append(segmentFiles, segPath)

		resp, err := o.client.Transcribe(ctx, segPath, TranscribeOpts{Prompt: prompt})
		if err != nil {
			metrics.TranscriptionsTotal.WithLabelValues("segmented", "error").Inc()
			return nil, &TranscriptionError{SegmentIndex: seg.Index, Err: err}
		}
		metrics.SegmentsProcessedTotal.Inc()

		fragments = append(fragments, Fragment{
			SegmentIndex: seg.Index,
			StartTime:    seg.Start,
			EndTime:      seg.End,
			Text:         resp.Text,
			Language:     resp.Language,
			Duration:     resp.Duration,
			Spans:        resp.Spans,
		})

		o.log.Debug().
			Int("segment", seg.Index+1).
			Int("segments", len(plan)).
			Int("text_len", len(resp.Text)).
			Msg("segment transcribed")
	}

	merged, err := Merge(fragments)
	if err != nil {
		metrics.TranscriptionsTotal.WithLabelValues("segmented", "error").Inc()
		return nil, err
	}

	metrics.TranscriptionsTotal.WithLabelValues("segmented", "ok").Inc()
	return &Result{
		Transcript: merged,
		Meta: Meta{
			Method:          "segmented",
			SegmentCount:    len(plan),
			TotalDuration:   duration,
			SegmentDuration: o.window,
		},
		Preprocessing: PreprocessInfo{Applied: false, Reason: "segments are cut to canonical format"},
	}, nil
}

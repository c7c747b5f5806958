package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/media"
)

type fakeProber struct {
	duration float64
	err      error
}

func (f *fakeProber) Duration(ctx context.Context, path string) (float64, error) {
	return f.duration, f.err
}

type fakeCutter struct {
	dir     string
	cuts    []int
	failAt  int // segment index that fails, -1 for never
	created []string
}

func (f *fakeCutter) Cut(ctx context.Context, inputPath string, start, duration float64, index int, requestID string) (string, error) {
	f.cuts = append(f.cuts, index)
	if index == f.failAt {
		return "", &media.CutError{Index: index, Start: start, Err: errors.New("boom")}
	}
	path := filepath.Join(f.dir, fmt.Sprintf("segment_%s_%03d.wav", requestID, index))
	if err := os.WriteFile(path, []byte("wav"), 0o644); err != nil {
		return "", err
	}
	f.created = append(f.created, path)
	return path, nil
}

type fakePre struct {
	dir    string
	err    error
	called bool
	out    string
}

func (f *fakePre) Process(ctx context.Context, inputPath string, opts media.PreprocessOptions) (media.PreprocessResult, error) {
	f.called = true
	if f.err != nil {
		return media.PreprocessResult{}, f.err
	}
	f.out = filepath.Join(f.dir, "processed.wav")
	if err := os.WriteFile(f.out, []byte("wav"), 0o644); err != nil {
		return media.PreprocessResult{}, err
	}
	return media.PreprocessResult{Path: f.out}, nil
}

type fakeClient struct {
	calls  []string
	failAt int // 0-based call number that fails, -1 for never
	resp   func(call int) *Response
}

func (f *fakeClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	call := len(f.calls)
	f.calls = append(f.calls, audioPath)
	if call == f.failAt {
		return nil, errors.New("backend down")
	}
	if f.resp != nil {
		return f.resp(call), nil
	}
	return &Response{Text: fmt.Sprintf("text %d", call), Language: "ja", Duration: 600}, nil
}

func newTestOrchestrator(t *testing.T, duration float64, clientFailAt, cutFailAt int) (*Orchestrator, *fakeCutter, *fakePre, *fakeClient) {
	t.Helper()
	dir := t.TempDir()
	cutter := &fakeCutter{dir: dir, failAt: cutFailAt}
	pre := &fakePre{dir: dir}
	client := &fakeClient{failAt: clientFailAt}
	o := NewOrchestrator(&fakeProber{duration: duration}, cutter, pre, client, 600, 7200, zerolog.Nop())
	return o, cutter, pre, client
}

func TestOrchestratorShortPath(t *testing.T) {
	t.Run("single_call_no_cuts_at_or_below_window", func(t *testing.T) {
		o, cutter, _, client := newTestOrchestrator(t, 600, -1, -1)

		result, err := o.Transcribe(context.Background(), "input.mp3", Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(client.calls) != 1 {
			t.Errorf("expected 1 backend call, got %d", len(client.calls))
		}
		if len(cutter.cuts) != 0 {
			t.Errorf("expected no cuts on short path, got %d", len(cutter.cuts))
		}
		if result.Meta.Method != "single" {
			t.Errorf("method = %q, want single", result.Meta.Method)
		}
	})

	t.Run("preprocess_output_used_and_removed", func(t *testing.T) {
		o, _, pre, client := newTestOrchestrator(t, 300, -1, -1)

		_, err := o.Transcribe(context.Background(), "input.mp3", Options{Preprocess: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !pre.called {
			t.Fatal("preprocessor was not called")
		}
		if client.calls[0] != pre.out {
			t.Errorf("backend got %q, want preprocessed file %q", client.calls[0], pre.out)
		}
		if _, err := os.Stat(pre.out); !os.IsNotExist(err) {
			t.Error("preprocessed artifact was not cleaned up")
		}
	})

	t.Run("preprocess_failure_falls_back_to_original", func(t *testing.T) {
		o, _, pre, client := newTestOrchestrator(t, 300, -1, -1)
		pre.err = errors.New("ffmpeg exploded")

		result, err := o.Transcribe(context.Background(), "input.mp3", Options{Preprocess: true})
		if err != nil {
			t.Fatalf("preprocessing failure must not fail the request: %v", err)
		}
		if client.calls[0] != "input.mp3" {
			t.Errorf("backend got %q, want original input", client.calls[0])
		}
		if result.Preprocessing.Applied {
			t.Error("result claims preprocessing was applied")
		}
	})

	t.Run("backend_failure_reports_index_minus_one", func(t *testing.T) {
		o, _, _, _ := newTestOrchestrator(t, 300, 0, -1)

		_, err := o.Transcribe(context.Background(), "input.mp3", Options{})
		var te *TranscriptionError
		if !errors.As(err, &te) {
			t.Fatalf("expected TranscriptionError, got %v", err)
		}
		if te.SegmentIndex != -1 {
			t.Errorf("segment index = %d, want -1", te.SegmentIndex)
		}
	})
}

func TestOrchestratorCeiling(t *testing.T) {
	t.Run("rejects_over_ceiling_before_any_work", func(t *testing.T) {
		o, cutter, _, client := newTestOrchestrator(t, 7201, -1, -1)

		_, err := o.Transcribe(context.Background(), "long.mp3", Options{})
		var tle *TooLongError
		if !errors.As(err, &tle) {
			t.Fatalf("expected TooLongError, got %v", err)
		}
		if len(cutter.cuts) != 0 || len(client.calls) != 0 {
			t.Errorf("work happened after rejection: %d cuts, %d calls", len(cutter.cuts), len(client.calls))
		}
	})

	t.Run("exactly_at_ceiling_is_accepted", func(t *testing.T) {
		o, _, _, _ := newTestOrchestrator(t, 7200, -1, -1)
		if _, err := o.Transcribe(context.Background(), "edge.mp3", Options{}); err != nil {
			t.Fatalf("unexpected error at the ceiling: %v", err)
		}
	})
}

func TestOrchestratorLongPath(t *testing.T) {
	t.Run("sequential_segments_merged_in_order", func(t *testing.T) {
		o, cutter, pre, client := newTestOrchestrator(t, 1500, -1, -1)

		result, err := o.Transcribe(context.Background(), "long.mp3", Options{Preprocess: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := []int{0, 1, 2}; len(cutter.cuts) != 3 ||
			cutter.cuts[0] != want[0] || cutter.cuts[1] != want[1] || cutter.cuts[2] != want[2] {
			t.Errorf("cut order = %v, want %v", cutter.cuts, want)
		}
		if result.Meta.Method != "segmented" || result.Meta.SegmentCount != 3 {
			t.Errorf("meta = %+v", result.Meta)
		}
		if result.Transcript.Text != "text 0\ntext 1\ntext 2" {
			t.Errorf("merged text = %q", result.Transcript.Text)
		}
		if pre.called {
			t.Error("segments must not be preprocessed")
		}
		if len(client.calls) != 3 {
			t.Errorf("expected 3 backend calls, got %d", len(client.calls))
		}
	})

	t.Run("segment_failure_aborts_without_partial_result", func(t *testing.T) {
		o, cutter, _, client := newTestOrchestrator(t, 3000, 2, -1) // segment 3 of 5 fails

		result, err := o.Transcribe(context.Background(), "long.mp3", Options{})
		if result != nil {
			t.Fatal("got a partial result after a failed segment")
		}
		var te *TranscriptionError
		if !errors.As(err, &te) {
			t.Fatalf("expected TranscriptionError, got %v", err)
		}
		if te.SegmentIndex != 2 {
			t.Errorf("failed segment index = %d, want 2", te.SegmentIndex)
		}
		if len(client.calls) != 3 {
			t.Errorf("processing continued after failure: %d calls", len(client.calls))
		}
		for _, f := range cutter.created {
			if _, statErr := os.Stat(f); !os.IsNotExist(statErr) {
				t.Errorf("segment artifact %s not cleaned up after failure", f)
			}
		}
	})

	t.Run("cut_failure_aborts", func(t *testing.T) {
		o, _, _, client := newTestOrchestrator(t, 1500, -1, 1)

		_, err := o.Transcribe(context.Background(), "long.mp3", Options{})
		var ce *media.CutError
		if !errors.As(err, &ce) {
			t.Fatalf("expected CutError, got %v", err)
		}
		if len(client.calls) != 1 {
			t.Errorf("expected 1 backend call before the failing cut, got %d", len(client.calls))
		}
	})

	t.Run("segment_artifacts_removed_after_success", func(t *testing.T) {
		o, cutter, _, _ := newTestOrchestrator(t, 1500, -1, -1)

		if _, err := o.Transcribe(context.Background(), "long.mp3", Options{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cutter.created) != 3 {
			t.Fatalf("expected 3 created segments, got %d", len(cutter.created))
		}
		for _, f := range cutter.created {
			if _, err := os.Stat(f); !os.IsNotExist(err) {
				t.Errorf("segment artifact %s not cleaned up after success", f)
			}
		}
	})
}

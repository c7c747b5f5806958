package transcribe

import (
	"strings"
	"testing"
)

func TestMerge(t *testing.T) {
	t.Run("joins_text_with_line_breaks", func(t *testing.T) {
		got, err := Merge([]Fragment{
			{SegmentIndex: 0, StartTime: 0, EndTime: 600, Text: "前半の内容", Language: "ja"},
			{SegmentIndex: 1, StartTime: 600, EndTime: 900, Text: "後半の内容"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Text != "前半の内容\n後半の内容" {
			t.Errorf("merged text = %q", got.Text)
		}
	})

	t.Run("rebases_span_offsets_by_segment_start", func(t *testing.T) {
		got, err := Merge([]Fragment{
			{SegmentIndex: 0, StartTime: 0, EndTime: 600, Text: "a",
				Spans: []Span{{Start: 0, End: 10, Text: "a"}}},
			{SegmentIndex: 1, StartTime: 600, EndTime: 1200, Text: "b",
				Spans: []Span{{Start: 0, End: 8, Text: "b"}}},
			{SegmentIndex: 2, StartTime: 1200, EndTime: 1500, Text: "c",
				Spans: []Span{{Start: 5, End: 8, Text: "c"}}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.Spans) != 3 {
			t.Fatalf("expected 3 spans, got %d", len(got.Spans))
		}
		// span local 5-8 in the segment starting at 1200 becomes 1205-1208
		last := got.Spans[2]
		if last.Start != 1205 || last.End != 1208 {
			t.Errorf("rebased span = [%v, %v], want [1205, 1208]", last.Start, last.End)
		}
	})

	t.Run("duration_is_furthest_end_time", func(t *testing.T) {
		got, err := Merge([]Fragment{
			{SegmentIndex: 0, StartTime: 0, EndTime: 600, Text: "a"},
			{SegmentIndex: 1, StartTime: 600, EndTime: 950, Text: "b"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Duration != 950 {
			t.Errorf("duration = %v, want 950", got.Duration)
		}
	})

	t.Run("language_from_first_fragment_with_ja_fallback", func(t *testing.T) {
		got, _ := Merge([]Fragment{
			{SegmentIndex: 0, Text: "a", Language: "en"},
			{SegmentIndex: 1, Text: "b", Language: "ja"},
		})
		if got.Language != "en" {
			t.Errorf("language = %q, want en", got.Language)
		}

		got, _ = Merge([]Fragment{
			{SegmentIndex: 0, Text: "a"},
		})
		if got.Language != "ja" {
			t.Errorf("fallback language = %q, want ja", got.Language)
		}
	})

	t.Run("rejects_out_of_order_fragments", func(t *testing.T) {
		_, err := Merge([]Fragment{
			{SegmentIndex: 1, Text: "b"},
			{SegmentIndex: 0, Text: "a"},
		})
		if err == nil {
			t.Fatal("expected error for out-of-order fragments")
		}
		if !strings.Contains(err.Error(), "fragment order broken") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects_empty_input", func(t *testing.T) {
		if _, err := Merge(nil); err == nil {
			t.Fatal("expected error for empty input")
		}
	})
}

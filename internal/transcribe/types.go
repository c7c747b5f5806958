package transcribe

// Span is a timestamped stretch of transcribed speech. Inside a Fragment
// the offsets are local to that fragment's audio; inside a Transcript they
// are absolute.
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Segment is a planned time window of the source audio. Windows are
// contiguous, non-overlapping, and cover [0, totalDuration) exactly.
type Segment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"` // inclusive, seconds
	End   float64 `json:"end"`   // exclusive, seconds
}

func (s Segment) Duration() float64 { return s.End - s.Start }

// Fragment is the transcription result for exactly one segment, tagged
// with the segment it came from so merge order never depends on slice
// position alone.
type Fragment struct {
	SegmentIndex int     `json:"segment_index"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	Text         string  `json:"text"`
	Language     string  `json:"language"`
	Duration     float64 `json:"duration"`
	Spans        []Span  `json:"segments"`
}

// Transcript is the single logical result returned to the caller, whether
// it came from one shot or from merged fragments.
type Transcript struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Spans    []Span  `json:"segments"`
}

// Meta tells callers how the transcript was produced.
type Meta struct {
	Method          string  `json:"method"` // "single" or "segmented"
	SegmentCount    int     `json:"segment_count,omitempty"`
	TotalDuration   float64 `json:"total_duration,omitempty"`
	SegmentDuration float64 `json:"segment_duration,omitempty"`
}

// PreprocessInfo reports whether the best-effort preprocessing stage ran.
type PreprocessInfo struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// Result is the orchestrator's complete answer.
type Result struct {
	Transcript    Transcript     `json:"transcription"`
	Meta          Meta           `json:"processing"`
	Preprocessing PreprocessInfo `json:"preprocessing"`
}

package transcribe

import "fmt"

// TooLongError rejects audio over the processing ceiling. The ceiling is
// product policy bounding cost and wall-clock time, not a technical limit.
type TooLongError struct {
	Duration float64 // seconds
	Limit    float64 // seconds
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("audio is %.0f minutes long, maximum is %.0f minutes", e.Duration/60, e.Limit/60)
}

// TranscriptionError reports exhausted retries against the transcription
// backend. SegmentIndex is -1 for single-shot (short path) audio. A failed
// segment aborts the whole operation: a gap in the middle of a time-ordered
// transcript is worse than an explicit failure.
type TranscriptionError struct {
	SegmentIndex int
	Err          error
}

func (e *TranscriptionError) Error() string {
	if e.SegmentIndex < 0 {
		return fmt.Sprintf("transcription failed: %v", e.Err)
	}
	return fmt.Sprintf("transcription of segment %d failed: %v", e.SegmentIndex, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

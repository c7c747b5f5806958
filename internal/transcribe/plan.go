package transcribe

import "math"

// PlanSegments computes the time windows for long audio. Windows start at
// 0, step by exactly the window size, and the last window is clamped to
// the true total duration so the final cut never reads past EOF.
func PlanSegments(totalDuration, window float64) []Segment {
	if totalDuration <= 0 || window <= 0 {
		return nil
	}

	count := int(math.Ceil(totalDuration / window))
	segments := make([]Segment, count)
	for i := 0; i < count; i++ {
		start := float64(i) * window
		end := start + window
		if end > totalDuration {
			end = totalDuration
		}
		segments[i] = Segment{Index: i, Start: start, End: end}
	}
	return segments
}

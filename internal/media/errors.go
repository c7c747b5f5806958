package media

import "fmt"

// InspectionError reports a failed duration/metadata probe. Probe failures
// are deterministic (corrupt or unsupported file) and are never retried.
type InspectionError struct {
	Path string
	Err  error
}

func (e *InspectionError) Error() string {
	return fmt.Sprintf("media inspection failed for %s: %v", e.Path, e.Err)
}

func (e *InspectionError) Unwrap() error { return e.Err }

// CutError reports a failed segment extraction. Extraction failures are
// usually deterministic (unreadable input, unwritable output) and abort the
// whole long-path operation.
type CutError struct {
	Index int
	Start float64
	Err   error
}

func (e *CutError) Error() string {
	return fmt.Sprintf("segment %d extraction failed (start=%.1fs): %v", e.Index, e.Start, e.Err)
}

func (e *CutError) Unwrap() error { return e.Err }

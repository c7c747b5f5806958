package transcribe

import (
	"fmt"
	"strings"
)

// Merge assembles ordered fragments into one transcript. Fragment texts
// are joined with a line break, every span's offsets are rebased by the
// owning segment's absolute start time, language comes from the first
// fragment, and duration is the furthest absolute end time.
//
// Fragments must arrive tagged with strictly ascending segment indices;
// validating here guards against silent misordering if segment processing
// ever becomes parallel.
func Merge(fragments []Fragment) (Transcript, error) {
	if len(fragments) == 0 {
		return Transcript{}, fmt.Errorf("no fragments to merge")
	}

	var b strings.Builder
	var spans []Span
	var duration float64

	for i, frag := range fragments {
		if frag.SegmentIndex != i {
			return Transcript{}, fmt.Errorf("fragment order broken: got segment %d at position %d", frag.SegmentIndex, i)
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(frag.Text)

		if frag.EndTime > duration {
			duration = frag.EndTime
		}
		for _, s := range frag.Spans {
			spans = append(spans, Span{
				Start: s.Start + frag.StartTime,
				End:   s.End + frag.StartTime,
				Text:  s.Text,
			})
		}
	}

	language := fragments[0].Language
	if language == "" {
		language = "ja"
	}

	return Transcript{
		Text:     b.String(),
		Language: language,
		Duration: duration,
		Spans:    spans,
	}, nil
}

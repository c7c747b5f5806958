package extract

import (
	"encoding/json"
	"strings"
)

// Quality scores an analysis result against the transcript it came from.
// All values are in the range 0.0 to 1.0.
type Quality struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Relevance    float64 `json:"relevance"`
	Overall      float64 `json:"overall"`
}

var requiredAnalysisFields = []string{"participants", "current_situation", "goals", "support_content"}

// EvaluateQuality estimates how much of the analysis was actually
// extracted from the transcript rather than filled with placeholders.
func EvaluateQuality(analysis map[string]any, transcript string) Quality {
	var q Quality

	filled := 0
	for _, field := range requiredAnalysisFields {
		v, ok := analysis[field]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && (s == "" || s == "音声から特定できず") {
			continue
		}
		filled++
	}
	q.Completeness = float64(filled) / float64(len(requiredAnalysisFields))

	encoded, err := json.Marshal(analysis)
	if err != nil {
		encoded = []byte("{}")
	}

	if len(transcript) > 0 {
		q.Relevance = float64(len(encoded)) / (float64(len(transcript)) * 0.5)
		if q.Relevance > 1.0 {
			q.Relevance = 1.0
		}
	}

	totalValues := strings.Count(string(encoded), ",") + 1
	placeholders := strings.Count(string(encoded), "音声から")
	q.Accuracy = 1.0 - float64(placeholders)/float64(totalValues)
	if q.Accuracy < 0 {
		q.Accuracy = 0
	}

	q.Overall = q.Completeness*0.4 + q.Accuracy*0.4 + q.Relevance*0.2
	return q
}

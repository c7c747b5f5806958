package media

import "context"

// Quality scores how well a recording suits speech recognition.
type Quality struct {
	Score           int      `json:"score"`
	Grade           string   `json:"grade"`
	Factors         []string `json:"factors"`
	Recommendations []string `json:"recommendations"`
	Stats           Info     `json:"stats"`
}

// EvaluateQuality probes the file and scores it on sample rate, bit rate,
// channel layout, and length. 16kHz mono under 10 minutes is the ideal
// input for the transcription backend.
func (p *Prober) EvaluateQuality(ctx context.Context, path string) (Quality, error) {
	stats, err := p.Probe(ctx, path)
	if err != nil {
		return Quality{}, err
	}
	return ScoreQuality(stats), nil
}

// ScoreQuality grades already-probed audio, 25 points per dimension.
func ScoreQuality(stats Info) Quality {
	var score int
	var factors []string

	switch {
	case stats.SampleRate >= 16000:
		score += 25
	case stats.SampleRate >= 8000:
		score += 15
		factors = append(factors, "low sample rate")
	default:
		score += 5
		factors = append(factors, "very low sample rate")
	}

	switch {
	case stats.BitRate >= 128000:
		score += 25
	case stats.BitRate >= 64000:
		score += 15
		factors = append(factors, "low bit rate")
	default:
		score += 5
		factors = append(factors, "very low bit rate")
	}

	switch stats.Channels {
	case 1:
		score += 25
	case 2:
		score += 20
	default:
		score += 10
		factors = append(factors, "multi-channel audio")
	}

	switch {
	case stats.Duration <= 600:
		score += 25
	case stats.Duration <= 1800:
		score += 20
	default:
		score += 10
		factors = append(factors, "long recording")
	}

	if score > 100 {
		score = 100
	}

	return Quality{
		Score:           score,
		Grade:           qualityGrade(score),
		Factors:         factors,
		Recommendations: qualityRecommendations(stats, factors),
		Stats:           stats,
	}
}

func qualityGrade(score int) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	default:
		return "D"
	}
}

func qualityRecommendations(stats Info, factors []string) []string {
	var recs []string
	if stats.SampleRate < 16000 {
		recs = append(recs, "record at 16kHz or higher")
	}
	if stats.BitRate < 128000 {
		recs = append(recs, "record at 128kbps or higher")
	}
	if stats.Channels > 1 {
		recs = append(recs, "record in mono")
	}
	if stats.Duration > 1800 {
		recs = append(recs, "split recordings longer than 30 minutes")
	}
	if len(factors) == 0 {
		recs = append(recs, "audio quality is good")
	}
	return recs
}

package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// Info describes an audio file as reported by ffprobe.
type Info struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	BitRate    int
	Codec      string
	Format     string
	SizeBytes  int64
}

// Prober reads audio metadata with ffprobe.
type Prober struct {
	ffprobePath string
}

func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// ffprobe reports most numbers as JSON strings.
type probeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		BitRate    string `json:"bit_rate"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		BitRate    string `json:"bit_rate"`
	} `json:"streams"`
}

// Probe returns the file's audio metadata. It fails with *InspectionError
// if the file is unreadable or carries no audio stream.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, &InspectionError{Path: path, Err: fmt.Errorf("ffprobe: %w", err)}
	}

	info, err := parseProbeOutput(out)
	if err != nil {
		return Info{}, &InspectionError{Path: path, Err: err}
	}
	return info, nil
}

// Duration returns only the total duration in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	info, err := p.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

func parseProbeOutput(out []byte) (Info, error) {
	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info Info
	info.Duration, _ = strconv.ParseFloat(po.Format.Duration, 64)
	info.SizeBytes, _ = strconv.ParseInt(po.Format.Size, 10, 64)
	info.Format = po.Format.FormatName

	found := false
	for _, s := range po.Streams {
		if s.CodecType != "audio" {
			continue
		}
		found = true
		info.Codec = s.CodecName
		info.Channels = s.Channels
		info.SampleRate, _ = strconv.Atoi(s.SampleRate)
		if s.BitRate != "" {
			info.BitRate, _ = strconv.Atoi(s.BitRate)
		}
		break
	}
	if !found {
		return Info{}, fmt.Errorf("no audio stream found")
	}
	if info.BitRate == 0 {
		info.BitRate, _ = strconv.Atoi(po.Format.BitRate)
	}
	return info, nil
}

package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Cutter extracts time windows from audio files into transcription-ready
// WAV artifacts: 16kHz, mono, signed 16-bit PCM. Re-encoding to a canonical
// format keeps segment boundaries free of encoder-dependent drift.
type Cutter struct {
	ffmpegPath string
	tempDir    string
}

func NewCutter(ffmpegPath, tempDir string) *Cutter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Cutter{ffmpegPath: ffmpegPath, tempDir: tempDir}
}

// Cut writes a new temporary artifact covering [start, start+duration) of
// inputPath. The caller owns deletion of the returned file. requestID keeps
// segment filenames from colliding across concurrent requests.
func (c *Cutter) Cut(ctx context.Context, inputPath string, start, duration float64, index int, requestID string) (string, error) {
	if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
		return "", &CutError{Index: index, Start: start, Err: fmt.Errorf("mkdir %s: %w", c.tempDir, err)}
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outPath := filepath.Join(c.tempDir, fmt.Sprintf("segment_%s_%03d_%s.wav", requestID, index, base))

	cmd := exec.CommandContext(ctx, c.ffmpegPath,
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(outPath)
		return "", &CutError{Index: index, Start: start, Err: fmt.Errorf("ffmpeg: %w: %s", err, tail(out, 400))}
	}
	return outPath, nil
}

// tail returns the last n bytes of ffmpeg output, which is where the
// actual error message lives.
func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}

package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/metrics"
)

// RetentionPruner deletes expired files from the working directories.
// Uploads, temp artifacts, and generated documents all age out after the
// retention period. Archived copies in S3 are never touched.
type RetentionPruner struct {
	dirs      []string
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewRetentionPruner creates a pruner over the given directories.
func NewRetentionPruner(dirs []string, retention time.Duration, log zerolog.Logger) *RetentionPruner {
	return &RetentionPruner{
		dirs:      dirs,
		retention: retention,
		interval:  1 * time.Hour,
		log:       log.With().Str("component", "retention-pruner").Logger(),
		stop:      make(chan struct{}),
	}
}

func (p *RetentionPruner) Start() {
	go p.loop()
}

func (p *RetentionPruner) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *RetentionPruner) loop() {
	// Run once on startup to clear any backlog from downtime
	p.Prune()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Prune()
		case <-p.stop:
			return
		}
	}
}

// Prune removes every file older than the retention period. Deletes are
// best effort, a file that fails to delete is retried on the next pass.
func (p *RetentionPruner) Prune() {
	if p.retention <= 0 {
		return
	}

	cutoff := time.Now().Add(-p.retention)
	var prunedCount int
	var prunedBytes int64

	for _, dir := range p.dirs {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(path); err == nil {
					prunedCount++
					prunedBytes += info.Size()
					metrics.FilesPrunedTotal.Inc()
				}
			}
			return nil
		})
		p.removeEmptyDirs(dir)
	}

	if prunedCount > 0 {
		p.log.Info().
			Int("pruned", prunedCount).
			Str("freed", humanizeBytes(prunedBytes)).
			Msg("retention prune complete")
	}
}

// removeEmptyDirs clears out date subdirectories left behind by pruning.
func (p *RetentionPruner) removeEmptyDirs(base string) {
	entries, _ := os.ReadDir(base)
	for _, sub := range entries {
		if !sub.IsDir() {
			continue
		}
		subPath := filepath.Join(base, sub.Name())
		p.removeEmptyDirs(subPath)
		remaining, _ := os.ReadDir(subPath)
		if len(remaining) == 0 {
			os.Remove(subPath)
		}
	}
}

func humanizeBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// Package hotfolder watches a drop directory for audio files and runs
// them through transcription without an API call. Staff copy a recording
// into the folder, the transcript JSON appears next to it.
package hotfolder

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/limiter"
	"github.com/ayumi-support/kiroku-engine/internal/transcribe"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
}

// Transcriber runs one file through the transcription pipeline.
// Satisfied by transcribe.Orchestrator.
type Transcriber interface {
	Transcribe(ctx context.Context, path string, opts transcribe.Options) (*transcribe.Result, error)
}

// Watcher monitors the hot folder for new audio files.
type Watcher struct {
	dir         string
	transcriber Transcriber
	slots       *limiter.Slots
	log         zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	watcher *fsnotify.Watcher

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	filesProcessed atomic.Int64
	filesFailed    atomic.Int64
}

func New(dir string, transcriber Transcriber, slots *limiter.Slots, log zerolog.Logger) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:            dir,
		transcriber:    transcriber,
		slots:          slots,
		log:            log.With().Str("component", "hotfolder").Logger(),
		ctx:            ctx,
		cancel:         cancel,
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Start begins watching the hot folder. The directory is created if it
// does not exist yet.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	w.log.Info().Str("dir", w.dir).Msg("hot folder watcher started")
	go w.watchLoop()
	return nil
}

func (w *Watcher) Stop() {
	w.cancel()
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.log.Info().
		Int64("files_processed", w.filesProcessed.Load()).
		Int64("files_failed", w.filesFailed.Load()).
		Msg("hot folder watcher stopped")
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			ext := strings.ToLower(filepath.Ext(event.Name))
			if !audioExtensions[ext] {
				continue
			}
			w.scheduleProcess(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleProcess debounces by 500ms so the file is fully written before
// transcription starts. Copies in progress fire repeated Write events
// that keep pushing the timer forward.
func (w *Watcher) scheduleProcess(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(500 * time.Millisecond)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(500*time.Millisecond, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		w.processFile(path)
	})
}

func (w *Watcher) processFile(path string) {
	outPath := transcriptPath(path)
	if _, err := os.Stat(outPath); err == nil {
		return // already transcribed
	}

	if err := w.slots.Acquire(w.ctx); err != nil {
		return
	}
	defer w.slots.Release()

	start := time.Now()
	w.log.Info().Str("file", filepath.Base(path)).Msg("hot folder file detected")

	result, err := w.transcriber.Transcribe(w.ctx, path, transcribe.Options{Preprocess: true})
	if err != nil {
		w.filesFailed.Add(1)
		w.log.Error().Err(err).Str("file", filepath.Base(path)).Msg("hot folder transcription failed")
		return
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		w.filesFailed.Add(1)
		w.log.Error().Err(err).Str("file", filepath.Base(path)).Msg("transcript encode failed")
		return
	}
	if err := writeAtomic(outPath, data); err != nil {
		w.filesFailed.Add(1)
		w.log.Error().Err(err).Str("file", outPath).Msg("transcript write failed")
		return
	}

	w.filesProcessed.Add(1)
	w.log.Info().
		Str("file", filepath.Base(path)).
		Str("transcript", filepath.Base(outPath)).
		Dur("elapsed", time.Since(start)).
		Msg("hot folder transcription complete")
}

// transcriptPath maps recording.mp3 to recording.transcript.json.
func transcriptPath(audioPath string) string {
	ext := filepath.Ext(audioPath)
	return strings.TrimSuffix(audioPath, ext) + ".transcript.json"
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

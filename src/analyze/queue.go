package analyze

import (
	"context"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/spisarov/cadenza/src/fingerprint"
)

// ErrToolNotInstalled is the reason string stored in negative cache entries
// when the analysis binary is missing from the machine.
const ErrToolNotInstalled = "aubio_not_installed"

// idlePollInterval is how often Idle re-checks whether the queue has
// drained.
const idlePollInterval = 250 * time.Millisecond

// probeTimeout bounds the tool availability probe. A working binary answers
// --help instantly.
const probeTimeout = 10 * time.Second

// Task is a single file to be analyzed.
type Task struct {
	// Path is the absolute path of the audio file.
	Path string

	// StatHint passes along size and mtime when the caller just statted the
	// file anyway, saving the queue a stat of its own. Optional.
	StatHint *fingerprint.StatHint

	// SongID and Storage identify where the results should be pushed to.
	// When SongID is zero or Storage is nil the results only go to the
	// cache and the file's tags.
	SongID  int64
	Storage Storage

	// fastPrint is the file's fast fingerprint, filled in by Enqueue.
	fastPrint string
}

// QueueConfig are the knobs of an analysis queue. The zero value gets
// usable defaults on NewQueue.
type QueueConfig struct {
	// Concurrency is how many files are analyzed at the same time. Defaults
	// to 1 since the analysis is CPU bound.
	Concurrency int

	// TempoTimeout and PitchTimeout limit the two tool invocations per
	// file. The pitch analysis decodes the whole file and needs the more
	// generous limit.
	TempoTimeout time.Duration
	PitchTimeout time.Duration

	// AcceptConfidence is the least confidence at which an estimate is
	// stored. Estimates below it are treated as "no result".
	AcceptConfidence float64

	// Formats lists the analyzable file extensions. Defaults to MP3 only
	// which is what the tool handles reliably everywhere.
	Formats []string
}

// Queue accepts analysis tasks, runs them through the external tool on a
// bounded number of workers and distributes the results to the cache, the
// files' tags and the library database. Failures never propagate out of the
// queue, a failed analysis just leaves its file without BPM and key.
type Queue struct {
	ctx    context.Context
	cfg    QueueConfig
	fs     afero.Fs
	fp     fingerprint.Fingerprinter
	cache  *Cache
	tool   Tool
	tagger Tagger

	mu      sync.Mutex
	seen    map[string]struct{}
	pending []Task
	running int

	availMu      sync.Mutex
	availChecked bool
	avail        bool
}

// NewQueue creates an analysis queue. Workers started by it stop accepting
// new work once ctx is cancelled.
func NewQueue(
	ctx context.Context,
	cfg QueueConfig,
	appfs afero.Fs,
	cache *Cache,
	tool Tool,
	tagger Tagger,
) *Queue {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = []string{".mp3"}
	}

	return &Queue{
		ctx:    ctx,
		cfg:    cfg,
		fs:     appfs,
		fp:     fingerprint.New(appfs),
		cache:  cache,
		tool:   tool,
		tagger: tagger,
		seen:   map[string]struct{}{},
	}
}

// Enqueue adds a file to the queue. Files with unsupported extensions and
// fingerprints already enqueued during this process' lifetime are ignored,
// so callers may hand over everything they see without bookkeeping of
// their own. The dedup is on the fast fingerprint, not the path: a file
// which changed on disk fingerprints differently and is analyzed anew.
func (q *Queue) Enqueue(task Task) {
	if !q.supportedFormat(task.Path) {
		return
	}

	fastPrint, err := q.fp.Fast(task.Path, task.StatHint)
	if err != nil {
		log.Printf("Could not fingerprint %s: %s", task.Path, err)
		return
	}
	task.fastPrint = fastPrint

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.seen[task.fastPrint]; ok {
		return
	}
	q.seen[task.fastPrint] = struct{}{}

	q.pending = append(q.pending, task)
	q.dispatchLocked()
}

func (q *Queue) supportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range q.cfg.Formats {
		if ext == supported {
			return true
		}
	}

	return false
}

// dispatchLocked starts workers for pending tasks up to the concurrency
// limit. Callers must hold q.mu.
func (q *Queue) dispatchLocked() {
	for q.running < q.cfg.Concurrency && len(q.pending) > 0 {
		task := q.pending[0]
		q.pending = q.pending[1:]
		q.running++

		go q.worker(task)
	}
}

func (q *Queue) worker(task Task) {
	defer func() {
		q.mu.Lock()
		q.running--
		q.dispatchLocked()
		q.mu.Unlock()
	}()

	if q.ctx.Err() != nil {
		return
	}

	q.process(task)
}

// Idle blocks until the queue has no pending and no running tasks or until
// ctx is cancelled.
func (q *Queue) Idle(ctx context.Context) error {
	for {
		q.mu.Lock()
		drained := len(q.pending) == 0 && q.running == 0
		q.mu.Unlock()

		if drained {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idlePollInterval):
		}
	}
}

// process analyzes a single file end to end. It never returns an error,
// every failure is logged and the file is left without analysis results.
func (q *Queue) process(task Task) {
	fp := task.fastPrint

	if entry := q.cache.Get(fp); entry != nil {
		if entry.HasResult() {
			q.distribute(task, entry)
		}
		return
	}

	if !q.toolAvailable() {
		q.cache.Set(fp, CacheEntry{
			FilePath:  task.Path,
			Error:     ErrToolNotInstalled,
			UpdatedAt: time.Now().UnixMilli(),
		})
		if err := q.cache.Flush(); err != nil {
			log.Printf("Error flushing analysis cache: %s", err)
		}
		return
	}

	entry := q.analyze(task.Path)
	entry.FilePath = task.Path
	entry.UpdatedAt = time.Now().UnixMilli()

	q.cache.Set(fp, entry)
	if err := q.cache.Flush(); err != nil {
		log.Printf("Error flushing analysis cache: %s", err)
	}

	if entry.HasResult() {
		q.distribute(task, &entry)
	}
}

// analyze runs the two tool invocations for a file and combines their
// parsed outputs into a cache entry.
func (q *Queue) analyze(path string) CacheEntry {
	var entry CacheEntry

	tempoRes := q.tool.Run(q.ctx, []string{"tempo", path}, RunOptions{
		Timeout: q.cfg.TempoTimeout,
	})
	q.logToolStderr("tempo", path, tempoRes)
	if tempoRes.ExitCode != ExitCodeUnavailable {
		code := tempoRes.ExitCode
		entry.TempoExitCode = &code
	}

	tempo := ParseTempo(tempoRes.Stdout)
	if tempo.BPM != nil && tempo.Confidence >= q.cfg.AcceptConfidence {
		entry.BPM = tempo.BPM
		if tempo.Confidence > entry.Confidence {
			entry.Confidence = tempo.Confidence
		}
	}

	pitchRes := q.tool.Run(q.ctx, []string{"pitch", path}, RunOptions{
		Timeout: q.cfg.PitchTimeout,
	})
	q.logToolStderr("pitch", path, pitchRes)
	if pitchRes.ExitCode != ExitCodeUnavailable {
		code := pitchRes.ExitCode
		entry.PitchExitCode = &code
	}

	key := ParseKey(pitchRes.Stdout)
	if key.Key != nil && key.Confidence >= q.cfg.AcceptConfidence {
		entry.Key = key.Key
		if key.Confidence > entry.Confidence {
			entry.Confidence = key.Confidence
		}
	}

	entry.OK = entry.BPM != nil || entry.Key != nil
	if !entry.OK {
		if tempoRes.TimedOut || pitchRes.TimedOut {
			entry.Error = "analysis_timeout"
		} else {
			entry.Error = "no_confident_result"
		}
	}

	return entry
}

// distribute pushes a usable analysis result into the file's tags and the
// library database. Both destinations are best effort.
func (q *Queue) distribute(task Task, entry *CacheEntry) {
	var key string
	if entry.Key != nil {
		key = *entry.Key
	}

	patch := SongPatch{BPM: entry.BPM, Key: entry.Key}

	wrote, err := q.tagger.WriteTags(task.Path, entry.BPM, key)
	if err != nil {
		log.Printf("Could not write analysis tags of %s: %s", task.Path, err)
	}

	if wrote {
		// The tag write just changed the file on disk. Its new mtime is
		// sent along so that the next scan does not take the write for an
		// external modification.
		if stat, err := q.fs.Stat(task.Path); err == nil {
			modTime := stat.ModTime()
			patch.LastModified = &modTime
		}
	}

	if task.Storage == nil || task.SongID == 0 {
		return
	}

	if err := task.Storage.UpdateSong(q.ctx, task.SongID, patch); err != nil {
		log.Printf("Could not store analysis results for %s: %s",
			task.Path, err)
	}
}

// Available reports whether the analysis binary is present on the machine.
// The first call probes the binary, later calls reuse the verdict.
func (q *Queue) Available() bool {
	return q.toolAvailable()
}

// toolAvailable probes the analysis binary once per process lifetime. The
// probe counts as positive when the binary runs at all, even if it exits
// non-zero on --help as some builds do.
func (q *Queue) toolAvailable() bool {
	q.availMu.Lock()
	defer q.availMu.Unlock()

	if q.availChecked {
		return q.avail
	}
	q.availChecked = true

	res := q.tool.Run(q.ctx, []string{"--help"}, RunOptions{
		Timeout: probeTimeout,
	})
	q.avail = res.ExitCode == 0 || res.Stdout != ""

	if !q.avail {
		log.Printf("The audio analysis tool is not installed, " +
			"songs will have no BPM and key information.")
	}

	return q.avail
}

// Lines of tool noise which are normal for slightly malformed media files
// and not worth a log line.
var benignToolStderr = []string{
	"source_avcodec",
	"source_wavread",
	"deprecated",
	"Using gstreamer",
}

var seriousToolStderr = regexp.MustCompile(`(?i)error|invalid|fail|traceback`)

// logToolStderr surfaces the serious-looking parts of a tool invocation's
// stderr. Decoder warnings about imperfect media files are routine and are
// kept out of the log.
func (q *Queue) logToolStderr(op, path string, res RunResult) {
	for _, line := range strings.Split(res.Stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !seriousToolStderr.MatchString(line) {
			continue
		}

		benign := false
		for _, marker := range benignToolStderr {
			if strings.Contains(line, marker) {
				benign = true
				break
			}
		}
		if benign {
			continue
		}

		log.Printf("aubio %s %s: %s", op, path, line)
	}
}

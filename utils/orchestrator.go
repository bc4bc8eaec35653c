package utils

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/HugeFrog24/aya-sight/gesture"
	"github.com/HugeFrog24/aya-sight/metrics"
)

// CaptionBullet prefixes every caption line in the aggregate.
const CaptionBullet = "• "

// Spoken and displayed confirmations for accepted commands.
const (
	StatusPhotoCaptured    = "Photo captured"
	StatusRecordingStarted = "Recording started"
	StatusRecordingStopped = "Recording stopped"
)

type CaptureState int

const (
	CaptureIdle CaptureState = iota
	CaptureRecording
)

func (s CaptureState) String() string {
	if s == CaptureRecording {
		return "recording"
	}
	return "idle"
}

type EventKind string

const (
	EventStatus  EventKind = "status"
	EventCaption EventKind = "caption"
	EventPrompt  EventKind = "prompt"
)

// Event is one piece of user-facing feedback.
type Event struct {
	BatchID      string
	Kind         EventKind
	Text         string
	LanguageCode string
}

// CaptionResult is the outcome for one frame. Err is set when the frame
// could not be extracted or captioned.
type CaptionResult struct {
	Index int
	Text  string
	Err   error
}

func (r CaptionResult) OK() bool {
	return r.Err == nil
}

// AnalysisBatch is the frames and results for one photo or recording.
type AnalysisBatch struct {
	ID       string
	Kind     string
	Frames   []FrameRequest
	Results  []CaptionResult
	Prompt   string
	Language string
}

// FrameSource yields the JPEG bytes for one frame of a batch.
type FrameSource func(ctx context.Context, frame FrameRequest) ([]byte, error)

type OrchestratorConfig struct {
	Language    string
	Prompt      string
	EventBuffer int
	Detector    *LanguageDetector
}

// Orchestrator reacts to gesture commands: it drives the capture device,
// fans frames out to the caption client, and reports the aggregated
// caption on the event channel and through speech. Handle never waits on
// the network. A StartRecording that follows a StopRecording waits until
// the device has finalized the previous clip.
type Orchestrator struct {
	device      CaptureDevice
	captioner   CaptionClient
	speaker     SpeechSink
	transcriber Transcriber
	detector    *LanguageDetector
	logger      *zap.Logger

	// deviceMu orders StartRecording and StopRecording on the device. A stop
	// holds it until the device has handed back the clip.
	deviceMu sync.Mutex

	mu        sync.Mutex
	state     CaptureState
	startedAt time.Time
	language  string
	prompt    string

	events  chan Event
	batches sync.WaitGroup
}

func NewOrchestrator(
	device CaptureDevice,
	captioner CaptionClient,
	speaker SpeechSink,
	transcriber Transcriber,
	logger *zap.Logger,
	cfg OrchestratorConfig,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 16
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Detector == nil {
		cfg.Detector = NewLanguageDetector()
	}
	return &Orchestrator{
		device:      device,
		captioner:   captioner,
		speaker:     speaker,
		transcriber: transcriber,
		detector:    cfg.Detector,
		logger:      logger,
		language:    NormalizeLanguage(cfg.Language),
		prompt:      cfg.Prompt,
		events:      make(chan Event, cfg.EventBuffer),
	}
}

// Events delivers status and caption feedback. It is closed by Close.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

func (o *Orchestrator) State() CaptureState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// RecordingSince returns when the current recording started, or the zero
// time when idle.
func (o *Orchestrator) RecordingSince() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != CaptureRecording {
		return time.Time{}
	}
	return o.startedAt
}

func (o *Orchestrator) Language() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.language
}

// SetLanguage switches the active language; unsupported codes fall back
// to the default.
func (o *Orchestrator) SetLanguage(code string) {
	o.mu.Lock()
	o.language = NormalizeLanguage(code)
	o.mu.Unlock()
}

func (o *Orchestrator) Prompt() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prompt
}

func (o *Orchestrator) SetPrompt(prompt string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = DefaultPrompt
	}
	o.mu.Lock()
	o.prompt = prompt
	o.mu.Unlock()
}

// Handle applies one command. Only a failing StartRecording returns an
// error; analysis runs in the background.
func (o *Orchestrator) Handle(ctx context.Context, cmd gesture.Command) error {
	metrics.GesturesTotal.WithLabelValues(cmd.String()).Inc()

	switch cmd {
	case gesture.CapturePhoto:
		o.capturePhoto(ctx)
	case gesture.StartRecording:
		return o.startRecording(ctx)
	case gesture.StopRecording:
		o.stopRecording(ctx)
	default:
		o.logger.Debug("gesture not recognized")
	}
	return nil
}

func (o *Orchestrator) snapshot() (prompt string, language string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prompt, o.language
}

func (o *Orchestrator) capturePhoto(ctx context.Context) {
	prompt, language := o.snapshot()
	o.announce(StatusPhotoCaptured, language)

	o.batches.Add(1)
	go func() {
		defer o.batches.Done()

		photo, err := o.device.CapturePhoto(ctx)
		if err != nil {
			o.logger.Error("photo capture failed", zap.Error(err))
			return
		}
		batch := o.newBatch("photo", []FrameRequest{{Index: 0}}, prompt, language)
		o.runBatch(ctx, batch, func(context.Context, FrameRequest) ([]byte, error) {
			return photo, nil
		})
	}()
}

func (o *Orchestrator) startRecording(ctx context.Context) error {
	o.deviceMu.Lock()
	if o.State() == CaptureRecording {
		o.deviceMu.Unlock()
		o.logger.Debug("already recording")
		return nil
	}
	if err := o.device.StartRecording(ctx); err != nil {
		o.deviceMu.Unlock()
		return fmt.Errorf("start recording: %w", err)
	}

	o.mu.Lock()
	o.state = CaptureRecording
	o.startedAt = time.Now()
	language := o.language
	o.mu.Unlock()
	o.deviceMu.Unlock()

	o.logger.Info("recording started")
	o.announce(StatusRecordingStarted, language)
	return nil
}

func (o *Orchestrator) stopRecording(ctx context.Context) {
	o.deviceMu.Lock()
	o.mu.Lock()
	if o.state != CaptureRecording {
		o.mu.Unlock()
		o.deviceMu.Unlock()
		o.logger.Debug("not recording")
		return
	}
	o.state = CaptureIdle
	elapsed := time.Since(o.startedAt)
	o.startedAt = time.Time{}
	prompt, language := o.prompt, o.language
	o.mu.Unlock()

	o.logger.Info("recording stopped", zap.Duration("elapsed", elapsed))
	o.announce(StatusRecordingStopped, language)

	// deviceMu is released by the goroutine once the clip is finalized.
	o.batches.Add(1)
	go func() {
		defer o.batches.Done()

		clip, err := o.device.StopRecording(ctx)
		o.deviceMu.Unlock()
		if err != nil {
			o.logger.Error("failed to finish recording", zap.Error(err))
			return
		}
		frames := SampleFrames(clip.DurationSeconds())
		batch := o.newBatch("clip", frames, prompt, language)
		o.runBatch(ctx, batch, func(ctx context.Context, frame FrameRequest) ([]byte, error) {
			return clip.FrameAt(ctx, frame.TimestampSeconds)
		})
	}()
}

// HandleVoice transcribes a spoken request and uses it as the prompt for
// later captures. A recognized supported language becomes active.
func (o *Orchestrator) HandleVoice(ctx context.Context, audio []byte, filename string) error {
	if o.transcriber == nil {
		return errors.New("no transcriber configured")
	}
	text, err := o.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return fmt.Errorf("transcribe voice prompt: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		o.logger.Info("empty voice prompt ignored")
		return nil
	}

	o.SetPrompt(text)
	if code, ok := o.detector.DetectCode(text); ok {
		o.SetLanguage(code)
	}
	language := o.Language()
	o.logger.Info("voice prompt set", zap.String("prompt", text), zap.String("language", language))
	o.emit(ctx, Event{Kind: EventPrompt, Text: text, LanguageCode: language})
	return nil
}

func (o *Orchestrator) newBatch(kind string, frames []FrameRequest, prompt, language string) *AnalysisBatch {
	return &AnalysisBatch{
		ID:       uuid.NewString(),
		Kind:     kind,
		Frames:   frames,
		Prompt:   prompt,
		Language: language,
	}
}

// AnalyzeFrames runs one batch synchronously with the current prompt and
// language and returns the aggregated caption that was delivered.
func (o *Orchestrator) AnalyzeFrames(ctx context.Context, kind string, frames []FrameRequest, source FrameSource) string {
	prompt, language := o.snapshot()
	return o.runBatch(ctx, o.newBatch(kind, frames, prompt, language), source)
}

func (o *Orchestrator) runBatch(ctx context.Context, batch *AnalysisBatch, source FrameSource) string {
	ctx, span := otel.Tracer("utils").Start(ctx, "Orchestrator.runBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", batch.ID),
		attribute.String("batch.kind", batch.Kind),
		attribute.Int("batch.frames", len(batch.Frames)),
	)

	metrics.BatchesInFlight.Inc()
	defer metrics.BatchesInFlight.Dec()
	metrics.FramesSampledTotal.Add(float64(len(batch.Frames)))

	log := o.logger.With(zap.String("batch_id", batch.ID), zap.String("kind", batch.Kind))
	start := time.Now()

	batch.Results = o.captionFrames(ctx, batch, source, log)
	text := AggregateCaptions(batch.Results)

	metrics.BatchDuration.WithLabelValues(batch.Kind).Observe(time.Since(start).Seconds())
	log.Info("batch complete",
		zap.Int("frames", len(batch.Frames)),
		zap.Int("captions", countOK(batch.Results)),
		zap.Duration("elapsed", time.Since(start)),
	)

	o.emit(ctx, Event{BatchID: batch.ID, Kind: EventCaption, Text: text, LanguageCode: batch.Language})
	o.speaker.Speak(text, batch.Language)
	return text
}

// captionFrames dispatches every frame concurrently and returns once all
// have answered. Each goroutine owns one slot of the result slice.
func (o *Orchestrator) captionFrames(ctx context.Context, batch *AnalysisBatch, source FrameSource, log *zap.Logger) []CaptionResult {
	results := make([]CaptionResult, len(batch.Frames))

	var wg sync.WaitGroup
	for i, frame := range batch.Frames {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.captionFrame(ctx, batch, frame, source)
			if err := results[i].Err; err != nil {
				log.Warn("frame caption failed", zap.Int("frame_index", frame.Index), zap.Error(err))
			}
		}()
	}
	wg.Wait()

	return results
}

func (o *Orchestrator) captionFrame(ctx context.Context, batch *AnalysisBatch, frame FrameRequest, source FrameSource) CaptionResult {
	image, err := source(ctx, frame)
	if err != nil {
		return CaptionResult{Index: frame.Index, Err: fmt.Errorf("extract frame: %w", err)}
	}
	text, err := o.captioner.Analyze(ctx, image, batch.Prompt, batch.Language)
	if err != nil {
		return CaptionResult{Index: frame.Index, Err: err}
	}
	return CaptionResult{Index: frame.Index, Text: text}
}

// AggregateCaptions joins successful captions as bullet lines in
// ascending frame index order. Failed frames are left out.
func AggregateCaptions(results []CaptionResult) string {
	sorted := make([]CaptionResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	lines := make([]string, 0, len(sorted))
	for _, r := range sorted {
		if r.OK() {
			lines = append(lines, CaptionBullet+r.Text)
		}
	}
	return strings.Join(lines, "\n")
}

func countOK(results []CaptionResult) int {
	n := 0
	for _, r := range results {
		if r.OK() {
			n++
		}
	}
	return n
}

// announce runs on the touch path, so a status event is dropped rather
// than waiting on a full channel.
func (o *Orchestrator) announce(text, language string) {
	select {
	case o.events <- Event{Kind: EventStatus, Text: text, LanguageCode: language}:
	default:
		o.logger.Warn("status dropped, event buffer full", zap.String("text", text))
	}
	o.speaker.Speak(text, language)
}

func (o *Orchestrator) emit(ctx context.Context, ev Event) {
	select {
	case o.events <- ev:
	case <-ctx.Done():
		o.logger.Warn("feedback dropped", zap.String("kind", string(ev.Kind)), zap.Error(ctx.Err()))
	}
}

// Wait blocks until every in-flight capture and batch has delivered.
func (o *Orchestrator) Wait() {
	o.batches.Wait()
}

// Close waits for in-flight batches and closes the event channel. Handle
// must not be called afterwards.
func (o *Orchestrator) Close() {
	o.batches.Wait()
	close(o.events)
}

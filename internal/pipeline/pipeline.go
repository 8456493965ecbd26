package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/vdtran/voicebox/internal/brain"
	"github.com/vdtran/voicebox/internal/dispatch"
	"github.com/vdtran/voicebox/internal/events"
	"github.com/vdtran/voicebox/internal/history"
	"github.com/vdtran/voicebox/internal/interactionlog"
	"github.com/vdtran/voicebox/internal/observability"
	"github.com/vdtran/voicebox/internal/policy"
	"github.com/vdtran/voicebox/internal/prompt"
	"github.com/vdtran/voicebox/internal/search"
	"github.com/vdtran/voicebox/internal/speech"
)

var (
	// ErrStageTimeout marks a request whose stage await exceeded its budget.
	ErrStageTimeout = errors.New("stage timed out")
	// ErrAdapterFailure marks a request where a required external adapter failed.
	ErrAdapterFailure = errors.New("adapter failure")
)

const (
	// NoTextRecognized is what the interaction log records for a recognition miss.
	NoTextRecognized = "<no text recognized>"

	// RetryPhrase is spoken back when nothing was recognized. User-facing
	// "retry" only; the pipeline itself never retries.
	RetryPhrase = "Sorry, I couldn't hear you clearly. Please say that again."

	replyArtifactSuffix = "_response"

	logAppendTimeout = 2 * time.Second
)

// Request is the transient per-request context: where the upload landed, who
// sent it, and when it arrived. Discarded once the response is produced.
type Request struct {
	AudioPath  string
	UploadName string
	CallerKey  string
	ReceivedAt time.Time
}

// Result is what the transport layer turns into the response payload.
type Result struct {
	RecognizedText string
	ReplyText      string
	AudioFilename  string
	Fallback       bool
	Elapsed        time.Duration
}

// Config wires the pipeline's collaborators.
type Config struct {
	Pool        *dispatch.Pool
	History     *history.Store
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
	Brain       brain.Adapter
	Searcher    search.Client
	LogSink     interactionlog.Sink
	Hub         *events.Hub
	Metrics     *observability.Metrics

	UploadDir         string
	STTStageTimeout   time.Duration
	ReplyStageTimeout time.Duration
}

// Pipeline orchestrates one upload end to end: transcription stage, search
// policy, prompt composition, reply+synthesis stage, history append, logging.
type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	if cfg.STTStageTimeout <= 0 {
		cfg.STTStageTimeout = 15 * time.Second
	}
	if cfg.ReplyStageTimeout <= 0 {
		cfg.ReplyStageTimeout = 60 * time.Second
	}
	return &Pipeline{cfg: cfg}
}

// Handle runs the full request flow. Recognition misses produce a fallback
// Result, not an error; ErrStageTimeout and ErrAdapterFailure are fatal for
// the request and mapped to status codes by the transport layer.
func (p *Pipeline) Handle(ctx context.Context, req Request) (Result, error) {
	start := req.ReceivedAt
	if start.IsZero() {
		start = time.Now()
	}

	text, err := p.runTranscription(req.AudioPath)
	if err != nil {
		p.countRequest("error")
		return Result{}, err
	}
	text = strings.ToLower(strings.TrimSpace(text))

	replyName := replyArtifactName(req.UploadName, p.cfg.Synthesizer.AudioExt())
	replyPath := filepath.Join(p.cfg.UploadDir, replyName)

	if text == "" {
		return p.runFallback(ctx, req, replyName, replyPath, start)
	}

	snippets, searchTried := p.maybeSearch(ctx, text)

	// Serialize read-compose-append for this caller; concurrent requests from
	// the same origin wait their turn instead of racing on history. Released
	// before finishRequest: log and event delivery don't touch history.
	unlock := p.cfg.History.Lock(req.CallerKey)
	turns := p.cfg.History.Snapshot(req.CallerKey)
	promptText := prompt.Compose(snippets, searchTried, turns, text)
	reply, err := p.runReplySynthesis(req.CallerKey, text, promptText, replyPath)
	unlock()
	if err != nil {
		p.countRequest("error")
		return Result{}, err
	}

	elapsed := time.Since(start)
	res := Result{
		RecognizedText: text,
		ReplyText:      reply,
		AudioFilename:  replyName,
		Elapsed:        elapsed,
	}
	p.finishRequest(req, res, "ok")
	return res, nil
}

// runTranscription dispatches the transcription stage and waits within budget.
// Adapter errors are a recognition miss, not a failure: the stage maps them to
// empty text and the caller branches on text presence.
func (p *Pipeline) runTranscription(audioPath string) (string, error) {
	h := p.cfg.Pool.Submit("transcribe", func(ctx context.Context) (string, error) {
		text, err := p.cfg.Transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			log.Printf("transcription miss for %s: %v", filepath.Base(audioPath), err)
			p.countAdapterError("stt")
			return "", nil
		}
		return text, nil
	})
	return p.waitStage(h, p.cfg.STTStageTimeout, "transcribe")
}

// runReplySynthesis dispatches the combined generate->append->synthesize stage.
// The turn is appended only after a non-empty reply, so a failed request never
// pollutes history.
func (p *Pipeline) runReplySynthesis(callerKey, utterance, promptText, replyPath string) (string, error) {
	h := p.cfg.Pool.Submit("reply_synthesis", func(ctx context.Context) (string, error) {
		reply, err := p.cfg.Brain.Generate(ctx, promptText)
		if err != nil {
			p.countAdapterError("brain")
			return "", fmt.Errorf("generate reply: %w", err)
		}
		reply = strings.TrimSpace(reply)
		if reply == "" {
			p.countAdapterError("brain")
			return "", errors.New("generate reply: empty text")
		}

		p.cfg.History.Append(callerKey, history.Turn{
			UserUtterance:  utterance,
			AssistantReply: reply,
		})
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.HistoryTurns.Set(float64(p.cfg.History.TotalTurns()))
		}

		if err := p.cfg.Synthesizer.Synthesize(ctx, reply, replyPath); err != nil {
			p.countAdapterError("tts")
			return "", fmt.Errorf("synthesize reply: %w", err)
		}
		return reply, nil
	})
	return p.waitStage(h, p.cfg.ReplyStageTimeout, "reply_synthesis")
}

// runFallback speaks the retry phrase instead of consulting the brain. Counts
// as a normal completion: HTTP 200, interaction logged, no history append.
func (p *Pipeline) runFallback(ctx context.Context, req Request, replyName, replyPath string, start time.Time) (Result, error) {
	if err := p.cfg.Synthesizer.Synthesize(ctx, RetryPhrase, replyPath); err != nil {
		p.countAdapterError("tts")
		p.countRequest("error")
		return Result{}, fmt.Errorf("fallback synthesis: %s: %w", err, ErrAdapterFailure)
	}

	res := Result{
		RecognizedText: NoTextRecognized,
		ReplyText:      RetryPhrase,
		AudioFilename:  replyName,
		Fallback:       true,
		Elapsed:        time.Since(start),
	}
	p.finishRequest(req, res, "fallback")
	return res, nil
}

// maybeSearch consults the trigger policy and, when it fires, the search
// adapter. Search failures are absorbed: the composer gets an empty snippet
// list and emits its placeholder instead.
func (p *Pipeline) maybeSearch(ctx context.Context, utterance string) ([]string, bool) {
	if !policy.NeedsSearch(utterance) || p.cfg.Searcher == nil {
		return nil, false
	}

	snippets, err := p.cfg.Searcher.Search(ctx, utterance)
	if err != nil {
		log.Printf("web search failed, continuing without context: %v", err)
		p.countAdapterError("search")
		p.countSearch("error")
		return nil, true
	}
	if len(snippets) == 0 {
		p.countSearch("empty")
	} else {
		p.countSearch("ok")
	}
	return snippets, true
}

func (p *Pipeline) waitStage(h *dispatch.Handle, timeout time.Duration, stage string) (string, error) {
	text, err := h.Wait(timeout)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, dispatch.ErrWaitTimeout) {
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.StageTimeouts.WithLabelValues(stage).Inc()
		}
		return "", fmt.Errorf("%s stage: %w", stage, ErrStageTimeout)
	}
	return "", fmt.Errorf("%s stage: %s: %w", stage, err, ErrAdapterFailure)
}

// finishRequest records the interaction, publishes the live event, and bumps
// request metrics. Log-sink failures are logged and swallowed: the caller
// already has their answer.
func (p *Pipeline) finishRequest(req Request, res Result, outcome string) {
	p.countRequest(outcome)
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.ObserveRequest(res.Elapsed)
	}

	if p.cfg.LogSink != nil {
		logCtx, cancel := context.WithTimeout(context.Background(), logAppendTimeout)
		defer cancel()
		err := p.cfg.LogSink.Append(logCtx, interactionlog.Record{
			Timestamp:      time.Now().UTC(),
			RecognizedText: res.RecognizedText,
			ReplyText:      res.ReplyText,
			ElapsedSeconds: res.Elapsed.Seconds(),
		})
		if err != nil {
			log.Printf("interaction log append failed: %v", err)
		}
	}

	if p.cfg.Hub != nil {
		p.cfg.Hub.Publish(events.Event{
			Timestamp:      time.Now().UTC(),
			CallerKey:      req.CallerKey,
			RecognizedText: res.RecognizedText,
			ReplyText:      res.ReplyText,
			AudioURL:       "/uploads/" + res.AudioFilename,
			Fallback:       res.Fallback,
			ElapsedSeconds: res.Elapsed.Seconds(),
		})
	}
}

func (p *Pipeline) countRequest(outcome string) {
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	}
}

func (p *Pipeline) countAdapterError(adapter string) {
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.AdapterErrors.WithLabelValues(adapter).Inc()
	}
}

func (p *Pipeline) countSearch(result string) {
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.SearchLookups.WithLabelValues(result).Inc()
	}
}

// replyArtifactName derives the reply audio filename: upload name minus its
// extension, plus the fixed suffix and the synthesizer's extension.
func replyArtifactName(uploadName, audioExt string) string {
	base := strings.TrimSuffix(uploadName, filepath.Ext(uploadName))
	if base == "" {
		base = "reply"
	}
	return base + replyArtifactSuffix + audioExt
}

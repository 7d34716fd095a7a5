package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/metrics"
	"github.com/akolanti/TutorAPI/internal/rag/apierr"
	"github.com/akolanti/TutorAPI/internal/rag/llm"
	"github.com/akolanti/TutorAPI/internal/rag/llmjson"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

const (
	reasonNoJSON       = "no_json"
	reasonShape        = "shape_mismatch"
	reasonRescuedReply = "rescued_reply"
	reasonRawText      = "raw_text"
)

// Result is the structured answer plus markers saying how it was obtained.
type Result struct {
	Data map[string]any
	// Reply is the task's reply field as text, when it has one.
	Reply string
	// UsedFallback is set when the model could not be reached and Data is the canned answer.
	UsedFallback bool
	// Rescued is set when Data was rebuilt from unparseable model output.
	Rescued        bool
	FallbackReason string
	Raw            string
}

// JSON encodes Data.
func (r Result) JSON() json.RawMessage {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

type Options struct {
	System          string
	Temperature     float32
	MaxOutputTokens int32
	MIMEType        string
	Timeout         time.Duration
	// Streaming collects the answer from GenerateStream instead of one Generate call.
	Streaming bool
}

func DefaultOptions(s config.Settings) Options {
	return Options{
		System:          config.ModelContext,
		Temperature:     config.ModelTemperature,
		MaxOutputTokens: config.ModelMaxOutputTokens,
		MIMEType:        config.LLMResponseMimeType,
		Timeout:         config.LLMCallTimeout,
		Streaming:       s.GeminiStreaming,
	}
}

type Orchestrator struct {
	generator llm.Generator
	opts      Options
	logger    *logger_i.Logger
}

func NewOrchestrator(generator llm.Generator, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = config.LLMCallTimeout
	}
	return &Orchestrator{
		generator: generator,
		opts:      opts,
		logger:    logger_i.NewLogger("Generation"),
	}
}

// Generate prompts the model for task and turns its answer into task.Shape.
// Only strict tasks return an error, always an *Error.
func (o *Orchestrator) Generate(ctx context.Context, task Task, retrieved []commonModels.RetrievalResult, query string, history []llm.Turn) (Result, error) {
	log := o.logger.FromContext(ctx, config.TRACE_ID_KEY).With("task", task.Name)

	raw, err := o.call(ctx, llm.Request{
		System:           o.opts.System,
		Prompt:           BuildPrompt(task.Template, retrieved, query),
		History:          history,
		Temperature:      o.opts.Temperature,
		MaxOutputTokens:  o.opts.MaxOutputTokens,
		ResponseMIMEType: o.opts.MIMEType,
	})
	if err != nil {
		reason := string(apierr.Classify(err))
		log.Warn("llm call failed", "reason", reason, "error", err)
		metrics.IncrementGenerationFallback(task.Name, reason)
		if task.Strict {
			return Result{}, &Error{Task: task.Name, Stage: StageProvider, Err: fmt.Errorf("%w: %w", ErrProviderUnavailable, err)}
		}
		return fallbackResult(task, reason), nil
	}

	cleaned := llmjson.Clean(raw)
	if cleaned == "" {
		if task.Strict {
			return Result{}, &Error{Task: task.Name, Stage: StageClean, Err: ErrUnrecoverableOutput}
		}
		return o.rescue(ctx, task, raw, reasonNoJSON), nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil || data == nil {
		if task.Strict {
			return Result{}, &Error{Task: task.Name, Stage: StageValidate, Err: fmt.Errorf("%w: top level value is not an object", ErrUnrecoverableOutput)}
		}
		return o.rescue(ctx, task, raw, reasonShape), nil
	}

	if err := task.Shape.Apply(data); err != nil {
		if task.Strict {
			return Result{}, &Error{Task: task.Name, Stage: StageValidate, Err: err}
		}
		log.Warn("model output failed shape check", "error", err)
		return o.rescue(ctx, task, raw, reasonShape), nil
	}

	return Result{Data: data, Reply: replyOf(task, data), Raw: raw}, nil
}

func (o *Orchestrator) call(ctx context.Context, req llm.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	var raw string
	var err error
	if o.opts.Streaming {
		raw, err = llm.Collect(o.generator.GenerateStream(ctx, req))
	} else {
		raw, err = o.generator.Generate(ctx, req)
	}
	if err == nil && strings.TrimSpace(raw) == "" {
		err = llm.ErrEmptyResponse
	}
	return raw, err
}

// rescue keeps a human readable answer when the structure could not be recovered:
// the "reply" string if one can be found, otherwise the raw text.
func (o *Orchestrator) rescue(ctx context.Context, task Task, raw string, cause string) Result {
	log := o.logger.FromContext(ctx, config.TRACE_ID_KEY).With("task", task.Name)

	text, ok := llmjson.ExtractReply(raw)
	reason := reasonRescuedReply
	if !ok || strings.TrimSpace(text) == "" {
		text = strings.TrimSpace(raw)
		reason = reasonRawText
	}
	log.Warn("rescuing model output", "cause", cause, "via", reason)
	metrics.IncrementGenerationFallback(task.Name, reason)

	data := task.Shape.Defaults()
	if task.ReplyField != "" {
		data[task.ReplyField] = text
	}
	return Result{Data: data, Reply: text, Rescued: true, FallbackReason: reason, Raw: raw}
}

func fallbackResult(task Task, reason string) Result {
	data := task.Shape.Defaults()
	reply := task.FallbackReply
	if reply == "" {
		reply = config.FallbackChatReply
	}
	if task.ReplyField != "" {
		data[task.ReplyField] = reply
	}
	return Result{Data: data, Reply: reply, UsedFallback: true, FallbackReason: reason}
}

func replyOf(task Task, data map[string]any) string {
	if task.ReplyField == "" {
		return ""
	}
	s, _ := data[task.ReplyField].(string)
	return s
}

// IsStrictFailure reports whether err came from a strict task's typed failure.
func IsStrictFailure(err error) bool {
	var ge *Error
	return errors.As(err, &ge)
}

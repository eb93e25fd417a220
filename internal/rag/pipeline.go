package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/tewou-sn/tewou/internal/knowledge"
)

// Request is one user question with its conversation context and farm
// profile. Empty SoilType and Location fall back to the defaults.
type Request struct {
	Question string
	SoilType string
	Location string
	History  []Exchange
}

// Config carries the pipeline dependencies.
type Config struct {
	Genkit      *genkit.Genkit
	Handle      *knowledge.Handle
	ModelName   string  // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	TopK        int     // chunks retrieved per question; 0 = DefaultTopK
	Temperature float32 // sampling temperature for answer generation
	RateLimiter *rate.Limiter
	Logger      *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Handle == nil {
		return errors.New("knowledge handle is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Pipeline orchestrates one question through the stages of a RAG turn:
// check the index, contextualize follow-ups, retrieve chunks, generate the
// streamed answer.
type Pipeline struct {
	handle         *knowledge.Handle
	contextualizer *Contextualizer
	retriever      *Retriever
	generator      *Generator
	logger         *slog.Logger
}

// New assembles a pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		handle:         cfg.Handle,
		contextualizer: NewContextualizer(cfg.Genkit, cfg.ModelName, cfg.Logger),
		retriever:      NewRetriever(cfg.TopK),
		generator:      NewGenerator(cfg.Genkit, cfg.ModelName, cfg.Temperature, cfg.RateLimiter, cfg.Logger),
		logger:         cfg.Logger,
	}, nil
}

// Query runs one question through the pipeline and returns its event
// stream. The stream produces status events as stages begin and chunk
// events as the answer is generated; it closes when the answer is complete,
// the pipeline fails (see Stream.Err), or ctx is cancelled.
func (p *Pipeline) Query(ctx context.Context, req Request) *Stream {
	s := newStream(8)
	go p.run(ctx, req, s)
	return s
}

func (p *Pipeline) run(ctx context.Context, req Request, s *Stream) {
	defer close(s.events)

	if !s.send(ctx, Event{Type: EventStatus, Content: StatusCheckingIndex}) {
		s.err = ctx.Err()
		return
	}

	store, ok := p.handle.Get()
	if !ok {
		// Unavailability is an answer, not an error: one fixed chunk and
		// a clean close.
		s.send(ctx, Event{Type: EventChunk, Content: IndexUnavailableMessage})
		return
	}

	standalone := req.Question
	if len(req.History) > 0 {
		if !s.send(ctx, Event{Type: EventStatus, Content: StatusContextualizing}) {
			s.err = ctx.Err()
			return
		}
		rewritten, err := p.contextualizer.Standalone(ctx, req.Question, req.History)
		if err != nil {
			s.err = fmt.Errorf("contextualizing question: %w", err)
			return
		}
		standalone = rewritten
	}

	if !s.send(ctx, Event{Type: EventStatus, Content: StatusRetrieving}) {
		s.err = ctx.Err()
		return
	}
	results, err := p.retriever.Retrieve(ctx, store, standalone)
	if err != nil {
		s.err = fmt.Errorf("retrieving context: %w", err)
		return
	}
	p.logger.Debug("retrieved context", "chunks", len(results))

	if !s.send(ctx, Event{Type: EventStatus, Content: StatusGenerating}) {
		s.err = ctx.Err()
		return
	}

	// The answer prompt keeps the user's original wording; the rewritten
	// question only steers retrieval.
	_, err = p.generator.Stream(ctx, GenerateInput{
		Question: req.Question,
		Context:  FormatContext(results),
		History:  req.History,
		SoilType: req.SoilType,
		Location: req.Location,
	}, func(ctx context.Context, text string) error {
		if !s.send(ctx, Event{Type: EventChunk, Content: text}) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		s.err = fmt.Errorf("generating answer: %w", err)
	}
}

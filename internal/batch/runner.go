package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pdf-questions/internal/events"
)

// FailureNotice stands in for the questions of a page whose generation failed.
const FailureNotice = "Failed to generate questions for this page."

// QuestionGenerator produces the questions for one page of text.
type QuestionGenerator interface {
	Generate(ctx context.Context, apiKey, text string, count int) (string, error)
}

// OutputWriter persists the aggregated output, replacing any previous run.
type OutputWriter interface {
	Write(content string) error
	Path() string
}

// PageResult is the outcome for one page. Err is set when generation failed.
type PageResult struct {
	Page      int
	Questions string
	Err       error
}

func (r PageResult) OK() bool { return r.Err == nil }

// Result is everything one run produced.
type Result struct {
	RunID     uuid.UUID
	Pages     []PageResult
	Statuses  []string
	Output    string
	Succeeded int
	Failed    int
}

// AllFailed reports a run in which no page produced questions.
func (r Result) AllFailed() bool { return r.Succeeded == 0 }

// Runner drives the generator over a page range. Runs are serialized: the
// output file has a single writer at any time.
type Runner struct {
	gen QuestionGenerator
	out OutputWriter
	bus events.Bus
	log *slog.Logger

	mu     sync.Mutex
	latest atomic.Value // uuid.UUID of the run the output file holds
}

func NewRunner(gen QuestionGenerator, out OutputWriter, bus events.Bus, log *slog.Logger) *Runner {
	return &Runner{gen: gen, out: out, bus: bus, log: log}
}

// LatestRunID returns the run whose output the file currently holds, or
// uuid.Nil when no run has written it in this process.
func (r *Runner) LatestRunID() uuid.UUID {
	id, _ := r.latest.Load().(uuid.UUID)
	return id
}

// Run validates p against pages, then generates questions for each page of
// the range in ascending order, one call at a time. A page failure is
// recorded and the run continues. progress, when non-nil, receives each
// status line as it happens.
func (r *Runner) Run(ctx context.Context, pages []string, p Params, progress func(string)) (Result, error) {
	p.TotalPages = len(pages)
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	res, err := r.generate(ctx, pages, p, progress)
	if err != nil {
		return res, err
	}
	// The lock is already released here; a slow bus never holds up the next run.
	r.publish(ctx, r.log.With("run_id", res.RunID), p, res)
	return res, nil
}

func (r *Runner) generate(ctx context.Context, pages []string, p Params, progress func(string)) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := Result{RunID: uuid.New()}
	log := r.log.With("run_id", res.RunID)
	log.Info("generation started", "start_page", p.StartPage, "end_page", p.EndPage, "count", p.Count)

	status := func(line string) {
		res.Statuses = append(res.Statuses, line)
		if progress != nil {
			progress(line)
		}
	}

	for page := p.StartPage; page <= p.EndPage; page++ {
		status(fmt.Sprintf("Generating questions for Page %d...", page))
		questions, err := r.gen.Generate(ctx, p.APIKey, pages[page-1], p.Count)
		if err == nil && questions == "" {
			err = errors.New("empty result")
		}
		if err != nil {
			log.Warn("page generation failed", "page", page, "err", err)
			status(fmt.Sprintf("Failed to generate questions for Page %d", page))
			res.Pages = append(res.Pages, PageResult{Page: page, Err: err})
			res.Failed++
			continue
		}
		res.Pages = append(res.Pages, PageResult{Page: page, Questions: questions})
		res.Succeeded++
	}

	res.Output = Aggregate(res.Pages)
	if err := r.out.Write(res.Output); err != nil {
		log.Error("failed to write output", "path", r.out.Path(), "err", err)
		return res, fmt.Errorf("write output: %w", err)
	}
	r.latest.Store(res.RunID)
	log.Info("generation finished", "succeeded", res.Succeeded, "failed", res.Failed, "output", r.out.Path())
	return res, nil
}

func (r *Runner) publish(ctx context.Context, log *slog.Logger, p Params, res Result) {
	ev, err := events.NewRunCompleted(events.RunCompleted{
		RunID:       res.RunID,
		StartPage:   p.StartPage,
		EndPage:     p.EndPage,
		Count:       p.Count,
		Succeeded:   res.Succeeded,
		Failed:      res.Failed,
		OutputPath:  r.out.Path(),
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Warn("failed to build run event", "err", err)
		return
	}
	if err := events.PublishWithRetry(ctx, r.bus, ev, 3, 200*time.Millisecond); err != nil {
		log.Warn("failed to publish run event", "err", err)
	}
}

// Aggregate renders per-page results as "Page n:\n<questions>\n" blocks
// joined by blank lines. Failed pages keep their header and carry
// FailureNotice.
func Aggregate(results []PageResult) string {
	blocks := make([]string, 0, len(results))
	for _, pr := range results {
		body := pr.Questions
		if !pr.OK() {
			body = FailureNotice
		}
		blocks = append(blocks, fmt.Sprintf("Page %d:\n%s\n", pr.Page, body))
	}
	return strings.Join(blocks, "\n")
}

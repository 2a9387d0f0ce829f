package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alnah/go-texshot"
	"github.com/alnah/go-texshot/internal/hints"
)

// job renders one input.
type job func(ctx context.Context, in Input) RenderResult

// htmlRenderer composes documents without a browser.
type htmlRenderer interface {
	RenderHTML(ctx context.Context, markup string) (string, error)
}

var _ htmlRenderer = (*texshot.Renderer)(nil)

// runBatch runs fn over inputs with at most workers in flight. Results keep
// the input order. Inputs not started before ctx ends fail with ctx.Err().
func runBatch(ctx context.Context, inputs []Input, workers int, fn job) []RenderResult {
	if len(inputs) == 0 {
		return nil
	}

	concurrency := min(max(workers, 1), len(inputs))
	results := make([]RenderResult, len(inputs))
	jobs := make(chan int, len(inputs))

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx] = RenderResult{Input: inputs[idx], Err: err}
					continue
				}
				results[idx] = fn(ctx, inputs[idx])
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// imageJob sends each input through a texshot.Handler whose replies land
// on the filesystem.
func imageJob(renderer texshot.MarkupRenderer, logger *slog.Logger) job {
	poster := newFilePoster()
	handler := texshot.NewHandler(renderer, poster, texshot.WithHandlerLogger(logger))

	return func(ctx context.Context, in Input) RenderResult {
		start := time.Now()
		result := RenderResult{Input: in}

		if !texshot.NewRequest(in.Text).HasMarkup {
			result.Skipped = true
			return result
		}

		result.Err = handler.Handle(ctx, texshot.Message{Thread: threadFor(in), Text: in.Text})
		if reply, ok := poster.Reply(in.OutputPath); ok {
			result.Reply = reply
		}
		result.Duration = time.Since(start)
		return result
	}
}

// htmlJob writes the composed render document of each input.
func htmlJob(renderer htmlRenderer) job {
	return func(ctx context.Context, in Input) RenderResult {
		start := time.Now()
		result := RenderResult{Input: in}

		markup, ok := texshot.Extract(in.Text)
		if !ok {
			result.Skipped = true
			return result
		}

		html, err := renderer.RenderHTML(ctx, markup)
		if err != nil {
			result.Err = err
			result.Reply = texshot.ErrorMessage(err)
		} else {
			result.Err = writeOutput(in.OutputPath, []byte(html))
		}
		result.Duration = time.Since(start)
		return result
	}
}

// ResultSummary holds the count of rendered, skipped and failed inputs.
type ResultSummary struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// countResults tallies results.
func countResults(results []RenderResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		switch {
		case r.Err != nil:
			summary.Failed++
		case r.Skipped:
			summary.Skipped++
		default:
			summary.Succeeded++
		}
	}
	return summary
}

// printResults reports every result and returns the exit code of the first failure.
func printResults(results []RenderResult, quiet, verbose bool, env *Environment) int {
	summary := countResults(results)
	code := ExitSuccess

	for _, r := range results {
		switch {
		case r.Err != nil:
			msg := r.Reply
			if msg == "" {
				msg = r.Err.Error()
			}
			fmt.Fprintf(env.Stderr, "FAILED %s: %s%s\n", r.Input.Name, msg, hintFor(r.Err, env.hints()))
			if verbose && errors.Is(r.Err, texshot.ErrMarkupFailure) {
				if markup, ok := texshot.Extract(r.Input.Text); ok {
					highlightMarkup(env.Stderr, markup)
				}
			}
			if code == ExitSuccess {
				code = exitCodeFor(r.Err)
			}
		case quiet:
		case r.Skipped:
			fmt.Fprintf(env.Stdout, "Skipped %s: no $$...$$ block\n", r.Input.Name)
		case verbose:
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.Input.Name, r.Input.OutputPath, r.Duration.Round(time.Millisecond))
		default:
			fmt.Fprintf(env.Stdout, "Created %s\n", r.Input.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d skipped, %d failed\n", summary.Succeeded, summary.Skipped, summary.Failed)
	}

	return code
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error, env hints.Env) string {
	switch {
	case errors.Is(err, texshot.ErrBrowserConnect):
		return env.BrowserConnect()
	case errors.Is(err, texshot.ErrTypesetterNotFound):
		return hints.TypesetterNotFound
	case errors.Is(err, texshot.ErrStyleLoad):
		return hints.StyleLoad
	case errors.Is(err, context.DeadlineExceeded):
		return hints.Timeout
	case errors.Is(err, ErrWriteImage):
		return hints.OutputDirectory
	default:
		return ""
	}
}

// Package simulator runs independent Monte Carlo trials of a league season and postseason.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Progress reports how many trials have finished.
type Progress struct {
	Total                  int           `json:"total"`
	Completed              int           `json:"completed"`
	Failed                 int           `json:"failed"`
	Progress               float64       `json:"progress"`
	StartTime              time.Time     `json:"start_time"`
	EstimatedTimeRemaining time.Duration `json:"estimated_time_remaining"`
}

// Result is a finished run. Trials is set when results are not combined,
// Ensemble when they are.
type Result struct {
	Trials   []*Trial      `json:"trials,omitempty"`
	Ensemble *Ensemble     `json:"ensemble,omitempty"`
	Failures []TrialError  `json:"-"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Runner executes an ensemble of trials.
type Runner struct {
	config Config
	logger *logrus.Logger
}

func NewRunner(config Config, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{config: config, logger: logger}
}

type trialOutcome struct {
	index int
	trial *Trial
	err   error
}

// Run validates the configuration and input, then plays every trial. Trials never
// share mutable state, so results are independent of execution order. Progress
// updates are sent without blocking, none are sent after Run returns, and the
// channel is left open for the caller to close.
func (r *Runner) Run(ctx context.Context, input Input, progress chan<- Progress) (*Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	p, err := newPipeline(r.config, input)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	workers := r.config.workers()
	log := r.logger.WithFields(logrus.Fields{
		"trials":   r.config.Trials,
		"workers":  workers,
		"parallel": r.config.Parallel,
	})
	log.Info("Starting ensemble run")

	var completed, failed atomic.Int64
	done := make(chan struct{})
	var reporter sync.WaitGroup
	if progress != nil {
		reporter.Add(1)
		go func() {
			defer reporter.Done()
			r.reportProgress(start, &completed, &failed, progress, done)
		}()
	}

	jobs := make(chan int, workers)
	results := make(chan trialOutcome, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go r.worker(ctx, p, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i := 0; i < r.config.Trials; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	res := &Result{}
	trials := make([]*Trial, 0, r.config.Trials)
	for out := range results {
		if out.err != nil {
			failed.Add(1)
			res.Failures = append(res.Failures, TrialError{Index: out.index, Err: out.err})
			log.WithError(out.err).WithField("trial", out.index).Warn("Trial failed")
		} else {
			trials = append(trials, out.trial)
		}
		completed.Add(1)
	}
	close(done)
	reporter.Wait()

	if err := ctx.Err(); err != nil {
		log.WithError(err).Warn("Ensemble run cancelled")
		return nil, err
	}

	sort.Slice(trials, func(i, j int) bool { return trials[i].Index < trials[j].Index })
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Index < res.Failures[j].Index })
	if r.config.Combine {
		res.Ensemble = NewEnsemble(trials)
	} else {
		res.Trials = trials
	}
	res.Elapsed = time.Since(start)

	if progress != nil {
		sendProgress(progress, snapshot(r.config.Trials, start, &completed, &failed))
	}
	log.WithFields(logrus.Fields{
		"succeeded": len(trials),
		"failed":    len(res.Failures),
		"elapsed":   res.Elapsed.String(),
	}).Info("Ensemble run completed")
	return res, nil
}

func (r *Runner) worker(ctx context.Context, p *pipeline, jobs <-chan int, results chan<- trialOutcome, wg *sync.WaitGroup) {
	defer wg.Done()
	for index := range jobs {
		if ctx.Err() != nil {
			continue
		}
		trial, err := r.runTrial(p, index)
		results <- trialOutcome{index: index, trial: trial, err: err}
	}
}

// runTrial isolates one trial, including any panic it raises.
func (r *Runner) runTrial(p *pipeline, index int) (trial *Trial, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			trial, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()
	return p.run(index, r.rngFor(index))
}

func (r *Runner) rngFor(index int) *rand.Rand {
	if r.config.Seed != nil {
		return rand.New(rand.NewSource(*r.config.Seed + int64(index)))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano() + int64(index)))
}

func (r *Runner) reportProgress(start time.Time, completed, failed *atomic.Int64, progress chan<- Progress, done <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if completed.Load() > 0 {
				sendProgress(progress, snapshot(r.config.Trials, start, completed, failed))
			}
		}
	}
}

func snapshot(total int, start time.Time, completed, failed *atomic.Int64) Progress {
	n := int(completed.Load())
	p := Progress{
		Total:     total,
		Completed: n,
		Failed:    int(failed.Load()),
		Progress:  float64(n) / float64(total),
		StartTime: start,
	}
	if n > 0 && n < total {
		perTrial := time.Since(start) / time.Duration(n)
		p.EstimatedTimeRemaining = perTrial * time.Duration(total-n)
	}
	return p
}

func sendProgress(progress chan<- Progress, p Progress) {
	select {
	case progress <- p:
	default:
		// Don't block if channel is full
	}
}

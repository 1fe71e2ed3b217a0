package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lofterscraper/pkg/logger"
	"lofterscraper/pkg/retry"
)

// Category routes a task to its worker group. Image downloads, text
// rendering and comment fetching have separate queues so a slow image
// host never starves text output.
type Category string

const (
	CategoryImage   Category = "image"
	CategoryText    Category = "text"
	CategoryComment Category = "comment"
)

// DefaultWorkers holds the worker count per category.
var DefaultWorkers = map[Category]int{
	CategoryImage:   5,
	CategoryText:    10,
	CategoryComment: 5,
}

// Task is one unit of work submitted to the pool.
type Task struct {
	ID       string
	Category Category
	Run      func(ctx context.Context) error
}

// Result is the outcome of one task.
type Result struct {
	Task     Task
	Err      error
	Duration time.Duration
}

// TaskFailure records one failed task in a report.
type TaskFailure struct {
	TaskID   string
	Category Category
	Err      error
}

// Report aggregates the outcome of a batch run.
type Report struct {
	Attempted int
	Succeeded int
	Failed    []TaskFailure
}

// Options configures a Pool.
type Options struct {
	// Workers overrides the per-category worker counts. Categories not
	// present keep their defaults.
	Workers map[Category]int
	// BatchDelay is the pause between consecutive batches in RunBatches.
	BatchDelay time.Duration
	// Sleeper implements the batch delay. Defaults to real timers.
	Sleeper retry.Sleeper
	Logger  logger.Logger
}

// Pool runs tasks on per-category worker groups. Tasks are submitted to
// the queue for their category; a failing task is reported and never
// affects its siblings.
type Pool struct {
	workers    map[Category]int
	queues     map[Category]chan Task
	results    chan Result
	wg         sync.WaitGroup
	stopOnce   sync.Once
	ctx        context.Context
	cancel     context.CancelFunc
	batchDelay time.Duration
	sleeper    retry.Sleeper
	logger     logger.Logger
}

// New creates a pool. Start must be called before Submit.
func New(opts Options) *Pool {
	workers := make(map[Category]int, len(DefaultWorkers))
	total := 0
	for cat, n := range DefaultWorkers {
		if override, ok := opts.Workers[cat]; ok && override > 0 {
			n = override
		}
		workers[cat] = n
		total += n
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = retry.TimerSleeper{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	queues := make(map[Category]chan Task, len(workers))
	for cat, n := range workers {
		queues[cat] = make(chan Task, n*2)
	}

	return &Pool{
		workers:    workers,
		queues:     queues,
		results:    make(chan Result, total),
		ctx:        ctx,
		cancel:     cancel,
		batchDelay: opts.BatchDelay,
		sleeper:    sleeper,
		logger:     log,
	}
}

// Start launches the worker groups.
func (p *Pool) Start() {
	for cat, n := range p.workers {
		p.logger.DebugWithFields("starting workers", map[string]interface{}{
			"category": string(cat),
			"workers":  n,
		})
		for i := 0; i < n; i++ {
			p.wg.Add(1)
			go p.worker(cat, i)
		}
	}
}

// Stop closes the queues, waits for in-flight tasks and closes the
// result channel. Submit must not be called after Stop.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		for _, q := range p.queues {
			close(q)
		}
		p.wg.Wait()
		close(p.results)
		p.cancel()
	})
}

// Submit queues a task on its category's worker group.
func (p *Pool) Submit(task Task) error {
	q, ok := p.queues[task.Category]
	if !ok {
		return fmt.Errorf("unknown task category %q", task.Category)
	}
	select {
	case q <- task:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("pool is shutting down")
	}
}

// Results returns the channel task outcomes are delivered on.
func (p *Pool) Results() <-chan Result {
	return p.results
}

func (p *Pool) worker(cat Category, id int) {
	defer p.wg.Done()

	for task := range p.queues[cat] {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		start := time.Now()
		err := task.Run(p.ctx)
		result := Result{
			Task:     task,
			Err:      err,
			Duration: time.Since(start),
		}

		if err != nil {
			p.logger.ErrorWithFields("task failed", map[string]interface{}{
				"category":  string(cat),
				"worker_id": id,
				"task_id":   task.ID,
				"error":     err.Error(),
			})
		}

		select {
		case p.results <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

// RunBatches submits every batch to the workers, pausing BatchDelay
// between batches, and aggregates the outcomes. The pool is stopped
// when RunBatches returns; per-task failures are recorded in the
// report, never propagated as errors.
func (p *Pool) RunBatches(ctx context.Context, batches [][]Task) (*Report, error) {
	p.Start()
	defer p.Stop()

	report := &Report{}
	var mu sync.Mutex
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for result := range p.results {
			mu.Lock()
			if result.Err != nil {
				report.Failed = append(report.Failed, TaskFailure{
					TaskID:   result.Task.ID,
					Category: result.Task.Category,
					Err:      result.Err,
				})
			} else {
				report.Succeeded++
			}
			mu.Unlock()
		}
	}()

	var submitErr error
	for i, batch := range batches {
		if i > 0 && p.batchDelay > 0 {
			if err := p.sleeper.Sleep(ctx, p.batchDelay); err != nil {
				submitErr = err
				break
			}
		}
		for _, task := range batch {
			if err := ctx.Err(); err != nil {
				submitErr = err
				break
			}
			if err := p.Submit(task); err != nil {
				submitErr = err
				break
			}
			mu.Lock()
			report.Attempted++
			mu.Unlock()
		}
		if submitErr != nil {
			break
		}
	}

	p.Stop()
	<-collectorDone

	if submitErr != nil {
		return report, submitErr
	}
	return report, nil
}

// Package worker feeds queued submissions one at a time into the judger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mailjudge/go-verifier/language"
	"github.com/mailjudge/go-verifier/problem"
	"github.com/mailjudge/go-verifier/taskqueue"
	"github.com/mailjudge/go-verifier/types"
	"go.uber.org/zap"
)

const defaultQueueSize = 512

// ErrShutdown is returned when submitting to a stopped worker
var ErrShutdown = errors.New("worker: shut down")

// Judger judges a single submission
type Judger interface {
	Judge(ctx context.Context, lang *language.Language, task *problem.Config, files []string) types.Result
}

// TaskStore resolves task names
type TaskStore interface {
	Exists(name string) bool
	Get(name string) (*problem.Config, error)
}

// Config defines worker configuration
type Config struct {
	Judger    Judger
	Languages *language.Table
	Tasks     TaskStore
	QueueSize int
	Logger    *zap.Logger

	// Observer is called with every response before it is delivered
	Observer func(Response)
}

// Response is the verdict of a submission
type Response struct {
	Submission *types.Submission
	Result     types.Result
	Duration   time.Duration

	// Err is ErrShutdown when the submission was not judged because the
	// worker stopped
	Err error
}

// Worker defines interface for the judging queue
type Worker interface {
	Start()
	Submit(context.Context, *types.Submission) (<-chan Response, error)
	Pending() int
	Shutdown()
}

// worker judges submissions serially since the judger owns a single
// scratch directory and artifact path
type worker struct {
	judger    Judger
	languages *language.Table
	tasks     TaskStore
	logger    *zap.Logger
	observer  func(Response)

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	queue     taskqueue.Queue[*types.Submission, Response]
	done      chan struct{}
}

// New creates new worker
func New(conf Config) Worker {
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	queueSize := conf.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &worker{
		judger:    conf.Judger,
		languages: conf.Languages,
		tasks:     conf.Tasks,
		logger:    logger,
		observer:  conf.Observer,
		queue:     taskqueue.NewChannelQueue[*types.Submission, Response](queueSize),
		done:      make(chan struct{}),
	}
}

// Start starts the worker loop
func (w *worker) Start() {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.loop()
	})
}

// Submit queues a submission, the response is delivered once it is judged
func (w *worker) Submit(ctx context.Context, s *types.Submission) (<-chan Response, error) {
	ch, err := w.queue.Send(ctx, s)
	if errors.Is(err, taskqueue.ErrClosed) {
		return nil, ErrShutdown
	}
	return ch, err
}

// Pending returns the number of queued submissions
func (w *worker) Pending() int {
	return w.queue.Len()
}

// Shutdown waits for the current judging to finish, queued submissions are
// answered with ErrShutdown without being judged
func (w *worker) Shutdown() {
	w.stopOnce.Do(func() {
		w.queue.Close()
		close(w.done)
		w.wg.Wait()
		left := w.queue.Drain()
		for _, task := range left {
			w.reject(task)
		}
		if len(left) > 0 {
			w.logger.Info("Rejected queued solutions", zap.Int("count", len(left)))
		}
	})
}

func (w *worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case task := <-w.queue.ReceiveC():
			select {
			case <-w.done:
				w.reject(task)
				return
			default:
			}
			w.work(task)
		case <-w.done:
			return
		}
	}
}

func (w *worker) work(task taskqueue.Task[*types.Submission, Response]) {
	s := task.Task()
	logger := w.logger.With(zap.Int64("id", s.ID), zap.String("task", s.Task), zap.String("language", s.Language))
	logger.Info("Got new solution", zap.String("submitter", s.Submitter), zap.Stringer("status", s.Status))

	start := time.Now()
	rt := w.judge(task.Context(), s, logger)
	resp := Response{Submission: s, Result: rt, Duration: time.Since(start)}

	if rt.Status == types.StatusInternalError {
		logger.Warn("Internal error", zap.String("error", rt.Error))
	}
	logger.Info("Checked solution",
		zap.Stringer("result", rt.Status),
		zap.Int("failedTest", rt.FailedTest),
		zap.Duration("duration", resp.Duration))
	if w.observer != nil {
		w.observer(resp)
	}
	task.Done(resp)
}

func (w *worker) reject(task taskqueue.Task[*types.Submission, Response]) {
	task.Done(Response{
		Submission: task.Task(),
		Result: types.Result{
			Status:     types.StatusInternalError,
			FailedTest: types.NoFailedTest,
			Error:      ErrShutdown.Error(),
		},
		Err: ErrShutdown,
	})
}

func (w *worker) judge(ctx context.Context, s *types.Submission, logger *zap.Logger) types.Result {
	invalid := func(reason string) types.Result {
		logger.Info("Invalid solution format", zap.String("reason", reason))
		return types.Result{Status: types.StatusInvalidSolutionFormatError, FailedTest: types.NoFailedTest}
	}
	if s.Status == types.StatusInvalidSolutionFormatWaiting {
		return invalid("rejected by intake")
	}
	lang, err := w.languages.Get(s.Language)
	if err != nil {
		return invalid(err.Error())
	}
	if !w.tasks.Exists(s.Task) {
		return invalid("unknown task")
	}
	files, err := sourceFiles(lang, s)
	if err != nil {
		return invalid(err.Error())
	}
	if len(files) == 0 {
		return invalid("no source files")
	}
	task, err := w.tasks.Get(s.Task)
	if err != nil {
		return types.Result{
			Status:     types.StatusInternalError,
			FailedTest: types.NoFailedTest,
			Error:      fmt.Sprintf("load task: %v", err),
		}
	}
	return w.judger.Judge(ctx, lang, task, files)
}

// sourceFiles returns the submitted files accepted by the language
func sourceFiles(lang *language.Language, s *types.Submission) ([]string, error) {
	if len(s.Files) == 0 {
		if s.SolutionDir == "" {
			return nil, nil
		}
		if _, err := os.Stat(s.SolutionDir); err != nil {
			return nil, err
		}
		return lang.Collect(s.SolutionDir)
	}
	var files []string
	for _, f := range s.Files {
		if lang.Accepts(f) {
			files = append(files, f)
		}
	}
	return files, nil
}

package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mailspot/pkg/logger"
)

// ErrQueueFull 任务队列已满，任务被丢弃
var ErrQueueFull = errors.New("async task queue is full")

// ErrStopped 工作器已停止
var ErrStopped = errors.New("async worker stopped")

// Task 表示一个异步任务
type Task struct {
	Name     string
	Handler  func(ctx context.Context) error
	Timeout  time.Duration
	RetryMax int
}

// Worker 尽力而为的异步任务处理器，请求路径上的副作用写入通过它执行，不阻塞请求
type Worker struct {
	taskQueue chan Task
	logger    *logger.Logger
	wg        sync.WaitGroup
	mu        sync.RWMutex
	stopped   bool
	seq       atomic.Uint64
	failed    atomic.Uint64
}

// NewWorker 创建一个新的工作器
func NewWorker(queueSize int, logger *logger.Logger) *Worker {
	return &Worker{
		taskQueue: make(chan Task, queueSize),
		logger:    logger,
	}
}

// Start 启动工作协程
func (w *Worker) Start(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.processTask()
	}
}

// Stop 停止接收新任务并等待队列中的任务执行完毕
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.taskQueue)
	w.mu.Unlock()
	w.wg.Wait()
}

// Submit 非阻塞地提交任务，队列满时返回 ErrQueueFull
func (w *Worker) Submit(task Task) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}

	if task.Name == "" {
		task.Name = "task"
	}
	task.Name = fmt.Sprintf("%s_%d", task.Name, w.seq.Add(1))

	select {
	case w.taskQueue <- task:
		return nil
	default:
		w.failed.Add(1)
		w.logger.Warn("异步任务队列已满，丢弃任务", "task", task.Name)
		return ErrQueueFull
	}
}

// Failed 执行失败或被丢弃的任务数量
func (w *Worker) Failed() uint64 {
	return w.failed.Load()
}

func (w *Worker) processTask() {
	defer w.wg.Done()
	for task := range w.taskQueue {
		w.executeTask(task)
	}
}

// executeTask 执行单个任务，支持超时和重试
func (w *Worker) executeTask(task Task) {
	start := time.Now()

	var err error
	for attempt := 0; attempt <= task.RetryMax; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		err = w.run(task)
		if err == nil {
			break
		}
		w.logger.Warn("异步任务执行失败", "task", task.Name, "attempt", attempt, "error", err)
	}

	if err != nil {
		w.failed.Add(1)
		w.logger.Error("异步任务最终失败", "task", task.Name, "error", err)
		return
	}
	w.logger.Debug("异步任务完成", "task", task.Name, "duration", time.Since(start))
}

func (w *Worker) run(task Task) (err error) {
	ctx := context.Background()
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return task.Handler(ctx)
}

package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/ytget/tubemux/internal/fetch"
	"github.com/ytget/tubemux/internal/merge"
	"github.com/ytget/tubemux/internal/model"
	"github.com/ytget/tubemux/internal/platform"
)

// Task constants
const (
	TaskIDPrefix       = "task-"
	TempDirPattern     = "tubemux-*"
	TempVideoFilename  = "video.mp4"
	TempAudioFilename  = "audio.mp4"
	OutputExtensionMP4 = ".mp4"
	StopPollInterval   = 100 * time.Millisecond
)

// Service runs download-and-merge tasks on a bounded worker pool.
type Service struct {
	fetcher fetch.Fetcher
	merger  merge.Merger

	tasks       map[string]*model.DownloadTask
	requests    map[string]Request
	tasksMutex  sync.RWMutex
	maxParallel int
	activeCount int
	onUpdate    func(*model.DownloadTask) // callback for UI updates
}

// NewService creates a new dispatch service
func NewService(fetcher fetch.Fetcher, merger merge.Merger, maxParallel int) *Service {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Service{
		fetcher:     fetcher,
		merger:      merger,
		tasks:       make(map[string]*model.DownloadTask),
		requests:    make(map[string]Request),
		maxParallel: maxParallel,
	}
}

// SetUpdateCallback sets the callback function for task updates. The
// callback receives a snapshot copy it may read from any goroutine.
func (s *Service) SetUpdateCallback(callback func(*model.DownloadTask)) {
	s.onUpdate = callback
}

// SetMaxParallelDownloads sets the maximum number of parallel downloads
func (s *Service) SetMaxParallelDownloads(max int) {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()
	if max < 1 {
		max = 1
	}
	s.maxParallel = max
}

// AddTask adds a new download task and starts it when a worker is free.
func (s *Service) AddTask(req Request) (*model.DownloadTask, error) {
	if req.Stream.IsAdaptive() && req.Audio == nil {
		return nil, fmt.Errorf("no audio stream available for adaptive download")
	}
	if req.DestDir == "" {
		return nil, fmt.Errorf("no download path provided")
	}

	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	// Check for duplicate URLs
	for _, task := range s.tasks {
		if task.URL == req.URL && !task.Status.IsFinished() {
			return nil, fmt.Errorf("task already exists for URL: %s", req.URL)
		}
	}

	task := &model.DownloadTask{
		ID:         generateTaskID(),
		URL:        req.URL,
		Descriptor: req.Stream,
		Title:      req.Title,
		Status:     model.TaskStatusPending,
		Progress:   0.0,
		Percent:    0,
		ETASec:     -1,
		StartedAt:  time.Now(),
	}

	s.tasks[task.ID] = task
	s.requests[task.ID] = req

	// Claim the worker slot before spawning, so back-to-back submissions
	// cannot both slip past the bound.
	if s.activeCount < s.maxParallel {
		s.activeCount++
		task.Status = model.TaskStatusStarting
		go s.startTask(task)
	}

	snapshot := *task
	return &snapshot, nil
}

// GetTask returns a snapshot of a task by ID. Callers get a copy they can
// read without racing the worker goroutines.
func (s *Service) GetTask(id string) (*model.DownloadTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[id]
	if !exists {
		return nil, false
	}
	snapshot := *task
	return &snapshot, true
}

// GetAllTasks returns snapshots of all tasks
func (s *Service) GetAllTasks() []*model.DownloadTask {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	tasks := make([]*model.DownloadTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		snapshot := *task
		tasks = append(tasks, &snapshot)
	}
	return tasks
}

// StopTask requests a running task to stop. The task goroutine observes the
// Stopping status and cancels its context.
func (s *Service) StopTask(id string) error {
	s.tasksMutex.Lock()

	task, exists := s.tasks[id]
	if !exists {
		s.tasksMutex.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}

	if !task.Status.IsActive() {
		status := task.Status
		s.tasksMutex.Unlock()
		return fmt.Errorf("task is not active: %s", status)
	}

	task.Status = model.TaskStatusStopping
	s.tasksMutex.Unlock()

	s.notifyUpdate(task)
	return nil
}

// RemoveTask removes a finished or pending task from the registry.
func (s *Service) RemoveTask(id string) error {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	task, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("task not found: %s", id)
	}
	if task.Status.IsActive() {
		return fmt.Errorf("cannot remove active task: %s", task.Status)
	}

	delete(s.tasks, id)
	delete(s.requests, id)
	return nil
}

// startTask runs one task to completion on a worker goroutine. The caller
// claims the worker slot and marks the task Starting under the lock before
// spawning.
func (s *Service) startTask(task *model.DownloadTask) {
	s.notifyUpdate(task)

	defer func() {
		s.tasksMutex.Lock()
		s.activeCount--
		s.tasksMutex.Unlock()

		// Try to start next pending task
		s.startNextPendingTask()
	}()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Monitor for stop requests
	go func() {
		for {
			s.tasksMutex.RLock()
			status := task.Status
			s.tasksMutex.RUnlock()

			if status == model.TaskStatusStopping {
				cancel()
				return
			}
			if status.IsFinished() {
				return
			}
			time.Sleep(StopPollInterval)
		}
	}()

	err := s.runTask(ctx, task)

	// Update final status
	s.tasksMutex.Lock()
	if err != nil {
		if ctx.Err() == context.Canceled {
			task.Status = model.TaskStatusStopped
		} else {
			task.Status = model.TaskStatusError
			task.LastError = err.Error()
		}
	} else {
		task.Status = model.TaskStatusCompleted
		task.Progress = 1.0
		task.Percent = 100
	}
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()

	if err != nil {
		zap.S().Warnf("Task %s finished with error: %v", task.ID, err)
	} else {
		zap.S().Infof("Task %s completed: %s", task.ID, task.OutputPath)
	}

	s.notifyUpdate(task)
}

// runTask performs the download (and merge, for adaptive streams) sequence.
// All intermediate files live in a per-task temp directory that is removed
// on every outcome, so interrupted downloads never leave orphans behind.
func (s *Service) runTask(ctx context.Context, task *model.DownloadTask) (taskErr error) {
	s.tasksMutex.RLock()
	req := s.requests[task.ID]
	s.tasksMutex.RUnlock()

	outputPath := filepath.Join(req.DestDir, platform.SanitizeFilename(req.Title)+OutputExtensionMP4)

	tmpDir, err := os.MkdirTemp("", TempDirPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		var cleanup *multierror.Error
		if err := os.RemoveAll(tmpDir); err != nil {
			cleanup = multierror.Append(cleanup, err)
		}
		if taskErr != nil {
			if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
				cleanup = multierror.Append(cleanup, err)
			}
		}
		if err := cleanup.ErrorOrNil(); err != nil {
			zap.S().Warnf("Task %s cleanup: %v", task.ID, err)
		}
	}()

	if !req.Stream.IsAdaptive() {
		// Progressive: a single stream that already contains audio.
		if err := s.downloadStream(ctx, task, req.URL, req.Stream.Itag, outputPath); err != nil {
			return err
		}
	} else {
		videoPath := filepath.Join(tmpDir, TempVideoFilename)
		audioPath := filepath.Join(tmpDir, TempAudioFilename)

		if err := s.downloadStream(ctx, task, req.URL, req.Stream.Itag, videoPath); err != nil {
			return err
		}
		if err := s.downloadStream(ctx, task, req.URL, req.Audio.Itag, audioPath); err != nil {
			return err
		}

		s.setStatus(task, model.TaskStatusMerging)

		job := model.MergeJob{VideoPath: videoPath, AudioPath: audioPath, OutputPath: outputPath}
		if err := s.merger.Merge(ctx, job, func(percent int) {
			s.setProgress(task, percent, "", -1)
		}); err != nil {
			return err
		}
	}

	s.tasksMutex.Lock()
	task.OutputPath = outputPath
	if info, err := os.Stat(outputPath); err == nil {
		task.FileSize = info.Size()
	}
	s.tasksMutex.Unlock()

	return nil
}

// downloadStream copies one media stream to destPath, reporting byte progress.
func (s *Service) downloadStream(ctx context.Context, task *model.DownloadTask, url string, itag int, destPath string) error {
	s.setStatus(task, model.TaskStatusDownloading)

	stream, size, err := s.fetcher.OpenStream(ctx, url, itag)
	if err != nil {
		return &DownloadError{URL: url, Itag: itag, Err: err}
	}
	defer stream.Close()

	file, err := os.Create(destPath)
	if err != nil {
		return &DownloadError{URL: url, Itag: itag, Err: err}
	}
	defer file.Close()

	pw := &progressWriter{
		total:   size,
		started: time.Now(),
		onProgress: func(percent int, speed string, etaSec int) {
			s.setProgress(task, percent, speed, etaSec)
		},
	}

	if _, err := io.Copy(io.MultiWriter(file, pw), stream); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &DownloadError{URL: url, Itag: itag, Err: err}
	}

	return nil
}

// setStatus transitions a task unless a stop was requested, and resets the
// per-stage progress counters.
func (s *Service) setStatus(task *model.DownloadTask, status model.TaskStatus) {
	s.tasksMutex.Lock()
	if task.Status == model.TaskStatusStopping || task.Status.IsFinished() {
		s.tasksMutex.Unlock()
		return
	}
	task.Status = status
	task.Progress = 0.0
	task.Percent = 0
	task.Speed = ""
	task.ETASec = -1
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)
}

// setProgress updates the per-stage progress counters.
func (s *Service) setProgress(task *model.DownloadTask, percent int, speed string, etaSec int) {
	s.tasksMutex.Lock()
	task.Percent = percent
	task.Progress = float64(percent) / 100.0
	if speed != "" {
		task.Speed = speed
	}
	task.ETASec = etaSec
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)
}

// startNextPendingTask starts the next pending task if we have capacity
func (s *Service) startNextPendingTask() {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	if s.activeCount >= s.maxParallel {
		return
	}

	// Find next pending task and claim the slot for it
	for _, task := range s.tasks {
		if task.Status == model.TaskStatusPending {
			s.activeCount++
			task.Status = model.TaskStatusStarting
			go s.startTask(task)
			return
		}
	}
}

// notifyUpdate hands a snapshot of the task to the update callback, so
// receivers on other goroutines never read fields the workers are writing.
// Must be called without the lock held.
func (s *Service) notifyUpdate(task *model.DownloadTask) {
	if s.onUpdate == nil {
		return
	}
	s.tasksMutex.RLock()
	snapshot := *task
	s.tasksMutex.RUnlock()
	s.onUpdate(&snapshot)
}

// generateTaskID generates a unique task ID using UUID v7 for better
// uniqueness and time ordering
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to timestamp if UUID generation fails
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}

// progressWriter counts bytes copied to it and reports percentage, speed and
// ETA. Reports are throttled to whole-percent changes.
type progressWriter struct {
	written     int64
	total       int64
	lastPercent int
	started     time.Time
	onProgress  func(percent int, speed string, etaSec int)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.written += int64(len(p))
	if pw.total <= 0 || pw.onProgress == nil {
		return len(p), nil
	}

	percent := int(pw.written * 100 / pw.total)
	if percent > 100 {
		percent = 100
	}
	if percent == pw.lastPercent {
		return len(p), nil
	}
	pw.lastPercent = percent

	speed := ""
	etaSec := -1
	elapsed := time.Since(pw.started)
	if elapsed.Seconds() > 0 {
		bytesPerSecond := float64(pw.written) / elapsed.Seconds()
		speed = fmt.Sprintf("%.1fMB/s", bytesPerSecond/1024/1024)
		if bytesPerSecond > 0 {
			etaSec = int(float64(pw.total-pw.written) / bytesPerSecond)
		}
	}

	pw.onProgress(percent, speed, etaSec)
	return len(p), nil
}

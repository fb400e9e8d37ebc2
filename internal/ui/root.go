package ui

import (
	"context"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/ytget/tubemux/internal/config"
	"github.com/ytget/tubemux/internal/dispatch"
	"github.com/ytget/tubemux/internal/fetch"
	"github.com/ytget/tubemux/internal/merge"
	"github.com/ytget/tubemux/internal/model"
	"github.com/ytget/tubemux/internal/platform"
)

// UI constants
const (
	ThumbnailWidth  = 320
	ThumbnailHeight = 180

	StatusReady          = "Paste link to YouTube video."
	StatusFetching       = "Fetching video info ..."
	StatusNoResolution   = "Select a resolution first."
	StatusNoVideo        = "Fetch a video first."
	StatusNoFolder       = "No download path provided."
	StatusMissingFFmpeg  = "ffmpeg not found on PATH. Downloads of adaptive streams will fail."
	StatusDownloadQueued = "Download started."
)

// RootUI represents the main UI structure
type RootUI struct {
	window     fyne.Window
	settings   *config.Settings
	fetcher    fetch.Fetcher
	dispatcher dispatch.Dispatcher

	urlEntry         *widget.Entry
	fetchBtn         *widget.Button
	downloadBtn      *widget.Button
	resolutionSelect *widget.Select
	titleLabel       *widget.Label
	thumbnail        *canvas.Image
	statusLabel      *widget.Label
	taskList         *widget.List

	tasks      []*model.DownloadTask
	tasksMutex sync.RWMutex

	current    *fetch.VideoInfo
	currentURL string
	streams    map[string]model.StreamDescriptor // select label -> descriptor
}

// NewRootUI creates and initializes the main UI
func NewRootUI(window fyne.Window, app fyne.App, fetcher fetch.Fetcher, dispatcher dispatch.Dispatcher, merger merge.Merger) *RootUI {
	ui := &RootUI{
		window:     window,
		settings:   config.NewSettings(app),
		fetcher:    fetcher,
		dispatcher: dispatcher,
		streams:    make(map[string]model.StreamDescriptor),
	}

	// Set up callback for download updates
	ui.dispatcher.SetUpdateCallback(ui.onTaskUpdate)

	ui.setupUI()

	if err := merger.Available(); err != nil {
		zap.S().Warnf("Merge tool check failed: %v", err)
		ui.setStatus(StatusMissingFFmpeg)
	}

	return ui
}

// setupUI creates and arranges all UI components
func (ui *RootUI) setupUI() {
	// URL entry accepting paste and drag-and-drop
	ui.urlEntry = widget.NewEntry()
	ui.urlEntry.SetPlaceHolder("Paste or drop a YouTube link")
	ui.urlEntry.Validator = validateURL
	ui.urlEntry.OnSubmitted = func(string) { ui.onFetchClick() }

	ui.fetchBtn = widget.NewButton("Fetch", ui.onFetchClick)
	ui.downloadBtn = widget.NewButton("Download", ui.onDownloadClick)
	ui.downloadBtn.Importance = widget.HighImportance
	ui.downloadBtn.Disable()

	// Dropping a URL onto the window pastes it and fetches immediately
	ui.window.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		if len(uris) == 0 {
			return
		}
		ui.urlEntry.SetText(uris[0].String())
		ui.onFetchClick()
	})

	// Video preview: thumbnail, title, resolution selector
	ui.thumbnail = &canvas.Image{FillMode: canvas.ImageFillContain}
	ui.thumbnail.SetMinSize(fyne.NewSize(ThumbnailWidth, ThumbnailHeight))

	ui.titleLabel = widget.NewLabel("")
	ui.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	ui.titleLabel.Wrapping = fyne.TextWrapWord

	ui.resolutionSelect = widget.NewSelect(nil, nil)
	ui.resolutionSelect.PlaceHolder = "Resolution"

	ui.statusLabel = widget.NewLabel(StatusReady)

	ui.taskList = widget.NewList(
		func() int {
			ui.tasksMutex.RLock()
			defer ui.tasksMutex.RUnlock()
			return len(ui.tasks)
		},
		func() fyne.CanvasObject { return ui.createTaskItem() },
		func(id widget.ListItemID, obj fyne.CanvasObject) { ui.updateTaskItem(id, obj) },
	)

	topPanel := container.NewBorder(nil, nil, nil, ui.fetchBtn, ui.urlEntry)
	previewPanel := container.NewBorder(
		nil, nil, ui.thumbnail, nil,
		container.NewVBox(
			ui.titleLabel,
			container.NewHBox(ui.resolutionSelect, ui.downloadBtn),
		),
	)

	content := container.NewBorder(
		container.NewVBox(topPanel, previewPanel), // top
		ui.statusLabel, // bottom
		nil,
		nil,
		ui.taskList, // center
	)

	ui.window.SetContent(content)
}

// onFetchClick resolves the entered URL into metadata off the event loop.
func (ui *RootUI) onFetchClick() {
	rawURL := strings.TrimSpace(ui.urlEntry.Text)
	if rawURL == "" {
		ui.setStatus(StatusReady)
		return
	}
	if err := validateURL(rawURL); err != nil {
		ui.setStatus("URL error, please try again: " + err.Error())
		return
	}

	ui.setStatus(StatusFetching)
	zap.S().Infof("Fetching metadata for %s", rawURL)

	go func() {
		info, err := ui.fetcher.Fetch(context.Background(), rawURL)
		if err != nil {
			zap.S().Warnf("Fetch failed: %v", err)
			fyne.Do(func() { ui.setStatus(err.Error()) })
			return
		}

		fyne.Do(func() {
			ui.current = info
			ui.currentURL = rawURL
			ui.titleLabel.SetText(info.Title)
			ui.showResolutions(info)
			ui.downloadBtn.Enable()
			ui.setStatus("Choose resolution and press Download.")
		})

		// Thumbnail arrives separately so the resolutions are usable at once
		if info.ThumbnailURL != "" {
			data, err := ui.fetcher.Thumbnail(context.Background(), info.ThumbnailURL)
			if err != nil {
				zap.S().Debugf("Thumbnail fetch failed: %v", err)
				return
			}
			fyne.Do(func() {
				ui.thumbnail.Resource = fyne.NewStaticResource("thumbnail", data)
				ui.thumbnail.Refresh()
			})
		}
	}()
}

// showResolutions fills the selector with the fetched stream descriptors.
func (ui *RootUI) showResolutions(info *fetch.VideoInfo) {
	ui.streams = make(map[string]model.StreamDescriptor)
	options := make([]string, 0, len(info.Streams))
	for _, sd := range info.Streams {
		label := sd.Label()
		ui.streams[label] = sd
		options = append(options, label)
	}
	ui.resolutionSelect.Options = options
	if len(options) > 0 {
		ui.resolutionSelect.SetSelectedIndex(0)
	}
	ui.resolutionSelect.Refresh()
}

// onDownloadClick asks for a destination folder and submits the task. The
// folder dialog must run on the event loop; only the download itself goes to
// a worker.
func (ui *RootUI) onDownloadClick() {
	if ui.current == nil {
		ui.setStatus(StatusNoVideo)
		return
	}

	descriptor, ok := ui.streams[ui.resolutionSelect.Selected]
	if !ok {
		ui.setStatus(StatusNoResolution)
		return
	}

	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			ui.setStatus(StatusNoFolder)
			return
		}
		ui.submitTask(descriptor, uri.Path())
	}, ui.window)
}

// submitTask hands the chosen stream to the dispatcher.
func (ui *RootUI) submitTask(descriptor model.StreamDescriptor, destDir string) {
	req := dispatch.Request{
		URL:     ui.currentURL,
		Title:   ui.current.Title,
		Stream:  descriptor,
		Audio:   ui.current.Audio,
		DestDir: destDir,
	}

	task, err := ui.dispatcher.AddTask(req)
	if err != nil {
		zap.S().Warnf("Failed to add task: %v", err)
		ui.setStatus("Error: " + err.Error())
		return
	}

	zap.S().Infof("Task added: id=%s resolution=%s dest=%s", task.ID, descriptor.Resolution, destDir)

	ui.tasksMutex.Lock()
	ui.tasks = append(ui.tasks, task)
	ui.tasksMutex.Unlock()

	ui.taskList.Refresh()
	ui.setStatus(StatusDownloadQueued)
}

// createTaskItem creates a new task item widget
func (ui *RootUI) createTaskItem() fyne.CanvasObject {
	row := NewTaskRow(nil)
	row.SetCallbacks(ui.onStopTask, ui.onRevealFile, ui.onOpenFile)
	return row
}

// updateTaskItem updates a task item with current data
func (ui *RootUI) updateTaskItem(id widget.ListItemID, item fyne.CanvasObject) {
	ui.tasksMutex.RLock()
	if id >= len(ui.tasks) {
		ui.tasksMutex.RUnlock()
		return
	}
	task := ui.tasks[id]
	ui.tasksMutex.RUnlock()

	if row, ok := item.(*TaskRow); ok {
		row.SetCallbacks(ui.onStopTask, ui.onRevealFile, ui.onOpenFile)
		row.UpdateTask(task)
	}
}

// onTaskUpdate handles task updates from the dispatch service. It is called
// from worker goroutines, so all UI work is marshalled onto the event loop.
func (ui *RootUI) onTaskUpdate(task *model.DownloadTask) {
	fyne.Do(func() {
		// The dispatcher sends snapshot copies; replace the stored one so
		// rows never read fields a worker goroutine is writing.
		ui.tasksMutex.Lock()
		for i, existing := range ui.tasks {
			if existing.ID == task.ID {
				ui.tasks[i] = task
				break
			}
		}
		ui.tasksMutex.Unlock()

		ui.taskList.Refresh()

		switch task.Status {
		case model.TaskStatusCompleted:
			ui.setStatus("Finished download: " + task.GetDisplayTitle())
			fyne.CurrentApp().SendNotification(&fyne.Notification{
				Title:   "Download complete",
				Content: task.GetDisplayTitle(),
			})
		case model.TaskStatusError:
			ui.setStatus("Error: " + task.LastError)
		case model.TaskStatusMerging:
			ui.setStatus("Merging video and audio streams ...")
		}
	})
}

// onStopTask handles the stop button
func (ui *RootUI) onStopTask(taskID string) {
	if err := ui.dispatcher.StopTask(taskID); err != nil {
		zap.S().Warnf("Failed to stop task %s: %v", taskID, err)
	}
}

// onRevealFile reveals a finished file in the system file manager
func (ui *RootUI) onRevealFile(filePath string) {
	if err := platform.OpenFileInManager(filePath); err != nil {
		zap.S().Warnf("Failed to reveal %s: %v", filePath, err)
		ui.setStatus("Error opening file: " + err.Error())
	}
}

// onOpenFile opens a finished file with the default application
func (ui *RootUI) onOpenFile(filePath string) {
	if err := platform.OpenFileWithDefaultApp(filePath); err != nil {
		zap.S().Warnf("Failed to open %s: %v", filePath, err)
		ui.setStatus("Error opening file: " + err.Error())
	}
}

// setStatus updates the status line at the bottom of the window.
func (ui *RootUI) setStatus(message string) {
	ui.statusLabel.SetText(message)
}

// validateURL checks that the entered text is a recognisable video URL.
func validateURL(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil // Empty is allowed
	}
	_, err := fetch.ExtractVideoID(input)
	return err
}

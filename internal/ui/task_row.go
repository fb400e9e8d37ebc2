package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/tubemux/internal/model"
)

// File size formatting constants
const (
	FileSizeUnit  = 1024
	FileSizeUnits = "KMGTPE"
)

// formatFileSize formats file size in bytes to human readable format
func formatFileSize(bytes int64) string {
	if bytes < FileSizeUnit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(FileSizeUnit), 0
	for n := bytes / FileSizeUnit; n >= FileSizeUnit; n /= FileSizeUnit {
		div *= FileSizeUnit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), FileSizeUnits[exp])
}

// TaskRow represents a compact task row widget
type TaskRow struct {
	widget.BaseWidget

	task *model.DownloadTask

	// UI components
	titleLabel  *widget.Label
	stageLabel  *widget.Label
	detailLabel *widget.Label
	progressBar *widget.ProgressBar

	// Action buttons
	stopBtn   *widget.Button
	revealBtn *widget.Button
	openBtn   *widget.Button

	// Callbacks
	onStop   func(taskID string)
	onReveal func(filePath string)
	onOpen   func(filePath string)
}

// NewTaskRow creates a new task row widget
func NewTaskRow(task *model.DownloadTask) *TaskRow {
	if task == nil {
		task = &model.DownloadTask{Status: model.TaskStatusPending}
	}

	tr := &TaskRow{task: task}
	tr.ExtendBaseWidget(tr)
	tr.createUI()
	tr.updateFromTask()
	return tr
}

// SetCallbacks sets the action callbacks
func (tr *TaskRow) SetCallbacks(
	onStop func(taskID string),
	onReveal func(filePath string),
	onOpen func(filePath string),
) {
	tr.onStop = onStop
	tr.onReveal = onReveal
	tr.onOpen = onOpen
}

// UpdateTask updates the row with new task data
func (tr *TaskRow) UpdateTask(task *model.DownloadTask) {
	if task == nil {
		return
	}
	tr.task = task
	tr.updateFromTask()
	tr.Refresh()
}

// createUI creates the UI components
func (tr *TaskRow) createUI() {
	tr.titleLabel = widget.NewLabel("")
	tr.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	tr.titleLabel.Truncation = fyne.TextTruncateEllipsis

	tr.stageLabel = widget.NewLabel("")
	tr.stageLabel.Alignment = fyne.TextAlignTrailing

	tr.detailLabel = widget.NewLabel("")
	tr.detailLabel.TextStyle = fyne.TextStyle{Monospace: true}

	tr.progressBar = widget.NewProgressBar()

	tr.stopBtn = widget.NewButton("stop", func() {
		if tr.onStop != nil {
			tr.onStop(tr.task.ID)
		}
	})
	tr.stopBtn.Importance = widget.MediumImportance

	tr.revealBtn = widget.NewButton("reveal", func() {
		if tr.onReveal != nil && tr.task.OutputPath != "" {
			tr.onReveal(tr.task.OutputPath)
		}
	})
	tr.revealBtn.Importance = widget.MediumImportance

	tr.openBtn = widget.NewButton("play", func() {
		if tr.onOpen != nil && tr.task.OutputPath != "" {
			tr.onOpen(tr.task.OutputPath)
		}
	})
	tr.openBtn.Importance = widget.MediumImportance
}

// updateFromTask updates UI components based on task state
func (tr *TaskRow) updateFromTask() {
	tr.titleLabel.SetText(tr.task.GetDisplayTitle())
	tr.stageLabel.SetText(tr.task.StageLabel())

	switch tr.task.Status {
	case model.TaskStatusError:
		tr.stageLabel.Importance = widget.DangerImportance
	case model.TaskStatusCompleted:
		tr.stageLabel.Importance = widget.SuccessImportance
	case model.TaskStatusDownloading, model.TaskStatusMerging:
		tr.stageLabel.Importance = widget.HighImportance
	default:
		tr.stageLabel.Importance = widget.MediumImportance
	}

	if tr.task.Status == model.TaskStatusCompleted {
		tr.progressBar.SetValue(1.0)
	} else {
		tr.progressBar.SetValue(tr.task.Progress)
	}

	// Detail line: speed and ETA while downloading, file size when done
	detail := ""
	switch tr.task.Status {
	case model.TaskStatusDownloading:
		if tr.task.Speed != "" {
			detail = tr.task.Speed
		}
		if tr.task.ETASec > 0 {
			if detail != "" {
				detail += " · "
			}
			detail += tr.task.GetETAString()
		}
	case model.TaskStatusCompleted:
		if tr.task.FileSize > 0 {
			detail = formatFileSize(tr.task.FileSize)
		}
	}
	tr.detailLabel.SetText(detail)

	tr.updateButtons()
}

// updateButtons updates button states based on task status
func (tr *TaskRow) updateButtons() {
	if tr.task.Status.IsActive() {
		tr.stopBtn.Enable()
	} else {
		tr.stopBtn.Disable()
	}

	if tr.task.Status == model.TaskStatusCompleted && tr.task.OutputPath != "" {
		tr.revealBtn.Enable()
		tr.openBtn.Enable()
	} else {
		tr.revealBtn.Disable()
		tr.openBtn.Disable()
	}
}

// CreateRenderer creates the widget renderer
func (tr *TaskRow) CreateRenderer() fyne.WidgetRenderer {
	actions := container.NewHBox(tr.stopBtn, tr.revealBtn, tr.openBtn)
	header := container.NewBorder(nil, nil, nil, container.NewHBox(tr.detailLabel, tr.stageLabel, actions), tr.titleLabel)
	layout := container.NewVBox(header, tr.progressBar, widget.NewSeparator())
	return widget.NewSimpleRenderer(layout)
}

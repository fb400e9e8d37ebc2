package dispatch

import (
	"github.com/ytget/tubemux/internal/model"
)

// Request describes one download submitted by the user: the source URL, the
// stream chosen from the fetched descriptors, and where the result goes.
// Audio is required when Stream is adaptive and ignored otherwise.
type Request struct {
	URL     string
	Title   string
	Stream  model.StreamDescriptor
	Audio   *model.StreamDescriptor
	DestDir string
}

// Dispatcher defines the interface for the download task service.
type Dispatcher interface {
	SetUpdateCallback(func(*model.DownloadTask))
	AddTask(req Request) (*model.DownloadTask, error)
	GetTask(id string) (*model.DownloadTask, bool)
	GetAllTasks() []*model.DownloadTask
	StopTask(id string) error
	RemoveTask(id string) error

	// SetMaxParallelDownloads sets the maximum number of parallel downloads
	SetMaxParallelDownloads(max int)
}

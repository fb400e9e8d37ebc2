package model

import (
	"fmt"
	"strings"
	"time"
)

// DownloadTask represents a single download-and-merge task
type DownloadTask struct {
	ID         string
	URL        string
	Descriptor StreamDescriptor // resolution chosen by the user
	Status     TaskStatus
	Progress   float64   // 0.0 to 1.0 within the current stage
	Percent    int       // 0 to 100 within the current stage
	Speed      string    // human readable speed (e.g., "1.2MB/s")
	ETASec     int       // ETA in seconds, -1 if unknown
	LastError  string    // last error message if any
	OutputPath string    // path to the final media file
	StartedAt  time.Time // when download started
	FinishedAt time.Time // when download finished
	Title      string    // video title
	FileSize   int64     // final file size in bytes
}

// MergeJob holds the inputs for one ffmpeg mux invocation. It exists only
// while an adaptive task is being merged.
type MergeJob struct {
	VideoPath  string
	AudioPath  string
	OutputPath string
}

// GetETAString returns ETA formatted as hh:mm:ss, or "—" if unknown
func (dt *DownloadTask) GetETAString() string {
	if dt.ETASec <= 0 {
		return "—"
	}

	hours := dt.ETASec / 3600
	minutes := (dt.ETASec % 3600) / 60
	seconds := dt.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetDisplayTitle returns title, filename, or URL in order of preference
func (dt *DownloadTask) GetDisplayTitle() string {
	// First priority: video title (non-URL)
	if dt.Title != "" && !strings.HasPrefix(dt.Title, "http") {
		return dt.Title
	}

	// Second priority: filename from OutputPath
	if dt.OutputPath != "" {
		// Extract just the filename without path (support both / and \ separators)
		parts := strings.FieldsFunc(dt.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	// Fallback: full URL
	return dt.URL
}

// StageLabel returns a short description of what the task is doing right now.
func (dt *DownloadTask) StageLabel() string {
	switch dt.Status {
	case TaskStatusDownloading:
		return fmt.Sprintf("Downloading ... %d%%", dt.Percent)
	case TaskStatusMerging:
		return fmt.Sprintf("Merging ... %d%%", dt.Percent)
	case TaskStatusError:
		return "Error: " + dt.LastError
	default:
		return dt.Status.String()
	}
}

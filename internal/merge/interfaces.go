package merge

import (
	"context"

	"github.com/ytget/tubemux/internal/model"
)

// Merger defines the interface for the stream muxing service.
type Merger interface {
	// Merge combines the video-only and audio-only files of a job into one
	// container file, reporting mux progress as a percentage. The partial
	// output file is removed on failure.
	Merge(ctx context.Context, job model.MergeJob, onProgress func(percent int)) error

	// Available reports whether the external muxing tools can be found.
	Available() error
}

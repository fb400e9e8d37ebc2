package fetch

import (
	"context"
	"io"
)

// Fetcher defines the interface for the metadata fetch service.
type Fetcher interface {
	// Fetch resolves a YouTube URL into video metadata and the ordered list
	// of downloadable stream descriptors.
	Fetch(ctx context.Context, rawURL string) (*VideoInfo, error)

	// Thumbnail downloads the preview image for display in the UI.
	Thumbnail(ctx context.Context, thumbURL string) ([]byte, error)

	// OpenStream opens the media stream for one itag of a previously fetched
	// video, returning the reader and the expected size in bytes.
	OpenStream(ctx context.Context, rawURL string, itag int) (io.ReadCloser, int64, error)
}

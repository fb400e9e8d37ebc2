package dispatch

import "fmt"

// DownloadError is returned when copying a stream to disk fails: network
// interruption, disk write failure, or the stream refusing to open.
type DownloadError struct {
	URL  string
	Itag int
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %q itag %d: %v", e.URL, e.Itag, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

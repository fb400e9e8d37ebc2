package fetch

import "fmt"

// FetchError is returned when a URL cannot be resolved into video metadata:
// the URL is malformed, the video is private/removed, or extraction failed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

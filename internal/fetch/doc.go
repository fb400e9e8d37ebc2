package fetch

// Package fetch resolves YouTube URLs into video metadata and stream
// descriptors via github.com/kkdai/youtube/v2, and opens the media streams
// the dispatcher copies to disk. Pure delegation: no retry policy, errors
// are surfaced to the caller as *FetchError.

package dispatch

// Package dispatch runs download-and-merge tasks on a bounded worker pool so
// the Fyne event loop is never blocked. It manages task lifecycle, concurrency
// limits, per-task temp directories, and progress propagation to the UI.
// Within one task the sequence is strict: download video, download audio,
// merge; across tasks there is no ordering.

package ui

// Package ui contains the Fyne-based desktop user interface. It wires user
// interactions to the fetch and dispatch services and renders the video
// preview, resolution selector, task rows, and status line. Callbacks from
// worker goroutines are marshalled onto the event loop with fyne.Do.

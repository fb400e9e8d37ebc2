package platform

// Package platform contains OS integration glue: filesystem helpers,
// filename sanitization, and opening files in the system file manager.

// Package logging provides structured file-based logging for strukindex.
//
// Logs are written as JSON lines through a size-rotating writer so that
// long-running scheduled builds cannot fill the disk.
package logging

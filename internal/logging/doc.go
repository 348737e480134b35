// Package logging provides structured logging for zterm.
//
// It wraps a package-level zap logger. Logging is silent until Initialize is
// called with a level, either directly or through ZTERM_LOG_LEVEL:
//
//	if err := logging.Initialize("debug", "/tmp/zterm.log"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// The interactive screen owns the terminal, so it should be given a file
// path; an empty path writes to stderr.
//
// All functions are safe for concurrent use.
package logging

// Package util has a logging switch shared by the engine packages.
package util

import "log"

// Logging turns Logf on.  The evengine command sets it from
// --verbose.
var Logging = false

// Logger is where Logf writes.  When nil, Logf uses the standard
// logger.
var Logger *log.Logger

// Logf logs when Logging is true.
func Logf(format string, args ...interface{}) {
	if !Logging {
		return
	}
	if Logger != nil {
		Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

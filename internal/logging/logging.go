// Package logging configures commonlog for walc. Loggers are named
// walc.<component>; library code logs at info and debug only and returns
// its errors instead of logging them.
package logging

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const rootName = "walc"

// Configure sets the global verbosity (0 notices, 1 info, 2 debug, negative
// values quieter) and an optional log file; an empty path logs to stderr.
func Configure(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}

// Get returns the logger for a component, e.g. Get("vm") is "walc.vm".
func Get(component string) commonlog.Logger {
	if component == "" {
		return commonlog.GetLogger(rootName)
	}
	return commonlog.GetLogger(rootName + "." + component)
}

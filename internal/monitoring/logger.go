// Package monitoring holds the package-level diagnostic log hooks used by
// the QC tasks.
package monitoring

import "github.com/sirupsen/logrus"

// Logf is the package-level diagnostic logger. It defaults to the logrus
// standard logger at info level but may be replaced by SetLogger. Tests
// or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = logrus.Infof

// Warnf reports recoverable problems such as skipped records.
var Warnf func(format string, v ...interface{}) = logrus.Warnf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetWarnLogger replaces the warning logger. Passing nil mutes it.
func SetWarnLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Warnf = func(string, ...interface{}) {}
		return
	}
	Warnf = f
}

// UseLogrus routes both hooks through l.
func UseLogrus(l *logrus.Logger) {
	Logf = l.Infof
	Warnf = l.Warnf
}

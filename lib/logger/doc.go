// Package logger provides named, leveled loggers for the application.
//
// Loggers are created lazily via GetLogger and shared by name, so every
// package logging under the same name writes with the same level and
// format. The format is fixed:
//
//	LEVEL | name            | message
//
// Thread-safety: all methods are safe for concurrent use.
package logger

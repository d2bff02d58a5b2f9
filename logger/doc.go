// Package logger provides structured logging for eventkit using zerolog.
//
// Library packages never configure logging themselves. They fetch a
// component-scoped logger and the application decides level and format:
//
//	logger.Init(logger.Config{Level: "debug", Format: "json"})
//	log := logger.Get("eventkit.dispatch")
//	log.Warn("unhandled dispatcher error", logger.Fields("dispatcher", "pool"))
package logger

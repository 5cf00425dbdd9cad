// Package logging provides a leveled, printf-style logging interface for the
// media gateway, backed by zerolog.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions (tool failures, slow clients)
//   - ERROR: Error conditions (spawn failures, misconfiguration)
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable (or
// DEBUG=true), and records are emitted as JSON unless LOG_FORMAT=console.
// Components that want structured fields use With to obtain a child logger.
package logging

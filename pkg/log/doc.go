// Package log provides the logging abstraction used across tracejack.
//
// Components log through the [Logger] interface with typed [Field] values,
// so the pipeline core does not depend on a logging library. A zerolog
// adapter is provided for the CLI, and a no-op logger for tests and library
// use.
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	logger.Info("wrote file", log.String("path", p), log.Int("traces", n))
//
// Time fields created with [Time] carry epoch seconds and are rendered as
// UTC timestamps with millisecond precision.
package log

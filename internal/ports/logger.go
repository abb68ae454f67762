package ports

import "github.com/bft-labs/tracejack/pkg/log"

// Logger is the structured logger used by internal packages.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for internal packages.
var (
	String   = log.String
	Stringer = log.Stringer
	Int      = log.Int
	Int64    = log.Int64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Time     = log.Time
	Err      = log.Err
	Any      = log.Any
)

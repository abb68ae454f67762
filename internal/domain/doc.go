// Package domain contains the core entities and value objects for tracejack.
//
// This package has no dependencies on infrastructure concerns (file formats,
// the archive index, logging) and contains only the rules about traces,
// windows and groups.
//
// # Entities
//
//   - [Trace]: a contiguous, uniformly sampled segment of one channel
//   - [Window]: a half-open time interval, the unit of processing
//   - [GroupKey]: the partition of a window's traces into batches
//   - [Batch]: the traces of one window and one group, in flight through
//     resample, rename and write
//
// Times are float64 seconds since the Unix epoch, UTC.
package domain

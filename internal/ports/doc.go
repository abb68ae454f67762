// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Archive]: indexes the input files and loads traces per window and group
//   - [Resampler]: downsamples a trace to a target sample interval
//   - [TraceWriter]: serializes a set of traces to one output file
//   - [Logger]: structured logging abstraction
//
// The application layer (internal/app, internal/window) depends only on these
// interfaces. Infrastructure packages (internal/archive, internal/dsp,
// internal/adapters/fs) implement them.
package ports

// Package observe provides observability primitives for gateway operations.
//
// It is a pure instrumentation library: no query execution, no transport, no
// I/O beyond exporter setup. Consumers wire the observer into the gateway
// and cache layers. The logger's level handle supports runtime adjustment,
// so reloaded configuration takes effect without rebuilding loggers.
package observe

// Package observe provides logging, tracing and metrics for honey.id RPC
// traffic.
//
// It is a pure instrumentation library: no transport and no I/O beyond
// exporter setup. The wsrpc server and the identity-service client wrap each
// endpoint call with a Middleware built from an Observer.
package observe

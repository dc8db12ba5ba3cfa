// Package workflow drives a batch solve run over a problem set.
//
// A Runner moves through five steps:
//
//   - Discover: load every problem and the IDs already in the result log
//   - Drain: keep the problems not yet recorded, in ascending ID order
//   - Process: solve one problem with bounded retries and append its answer
//   - Pace: wait before the next problem to stay under provider quotas
//   - Report: aggregate the result log and print the summary
//
// The result log is the only durable state. A run interrupted at any point
// can be started again with the same output path and it continues with the
// first unrecorded problem. Every wait goes through a Clock so tests can run
// the state machine without sleeping.
package workflow

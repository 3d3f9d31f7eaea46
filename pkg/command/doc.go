// Package command implements typed command dispatch for components that run
// on their own execution cycle. Callers look commands up by name in a
// Repository, bind dynamically typed arguments into a Handle, submit it to
// the owning Processor and poll its completion from any goroutine.
package command

// Package daemon ties the queue store, scratch manager, and workflow
// scheduler into a single-instance background process.
package daemon

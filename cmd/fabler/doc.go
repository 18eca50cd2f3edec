// Package main hosts the fabler CLI entrypoint and command graph.
//
// The Cobra-based command tree covers queueing new generation jobs, queue
// inspection and maintenance, configuration scaffolding, and running the
// processing daemon in the foreground. Commands operate on the queue
// database directly; SQLite's locking makes that safe alongside a running
// daemon.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main

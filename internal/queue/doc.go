// Package queue persists jobs and their stage artifacts in SQLite and
// provides the atomic claim and status-transition operations the
// workflow manager depends on.
package queue

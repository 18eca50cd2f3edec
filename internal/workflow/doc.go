// Package workflow owns the scheduling loop: polling the queue for due
// jobs, enforcing the one-job-at-a-time rule, and handing claimed jobs
// to the pipeline.
package workflow

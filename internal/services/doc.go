// Package services defines the shared error taxonomy and context
// annotations used by adapter clients and pipeline stages.
package services

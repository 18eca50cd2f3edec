// Package pipeline runs claimed jobs through their staged content flow.
//
// The engine owns the stage sequence per job kind, a scratch area for
// intermediate files, retry policy around upstream calls, and the
// persistence of stage artifacts and terminal status. Upstream systems
// are reached only through the adapter interfaces in this package.
package pipeline

// Package naming provides consistent names for remote staging paths,
// execution records and diagnostic artifacts.
//
// Remote names carry a random hex token so concurrent executions against the
// same host never collide on the remote filesystem.
package naming

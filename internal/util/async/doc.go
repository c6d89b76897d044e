// Package async provides utilities for parallel task execution.
//
// Provisioning units share no mutable state, so callers may reconcile several
// of them at once. [RunParallel] runs every task to completion and reports all
// failures together.
package async

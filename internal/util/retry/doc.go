// Package retry provides bounded retry loops for transient failures.
//
// The [Do] function runs an operation up to a fixed number of attempts with a
// fixed (or optionally growing) delay between them. It is used by the SSH
// transport to wait for targets and jump hosts that are still booting.
package retry

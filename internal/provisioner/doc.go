// Package provisioner runs script bundles on remote hosts and tracks what
// has been run.
//
// Each provisioning unit owns one [state.Record]. The [Lifecycle] contract
// has three transitions:
//
//   - Create stages the bundle on the target, runs its entry file and returns
//     a fresh record of the inputs and captured output.
//   - Diff compares a stored record against the current inputs and decides
//     whether a replacement execution is required.
//   - Delete runs the bundle's teardown file against the stored target, if
//     the bundle has one.
//
// There is no update in place: any tracked change is a full replacement.
// [Reconcile] and [Destroy] drive these transitions against a [state.Store].
package provisioner

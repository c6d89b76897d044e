// Package bundle turns a local directory of scripts into a self-contained
// shell script that recreates the directory on a remote host and runs one of
// its files.
//
// A bundle is read-only input. Template placeholders of the form {{NAME}} are
// expanded per file at delivery time; the fingerprint used for change
// detection is always computed over the raw, unexpanded bytes.
package bundle

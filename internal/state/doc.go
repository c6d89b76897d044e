// Package state persists execution records.
//
// A record is written once per successful create and superseded wholesale by
// the next one; it is never patched. Two backends are provided: a directory
// of YAML files and an S3 bucket.
package state

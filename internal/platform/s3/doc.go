// Package s3 provides a small client for S3-compatible object storage.
//
// It is the storage layer behind the remote state backend: execution records
// are stored as objects under a key prefix in a single bucket.
package s3

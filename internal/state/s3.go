package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/imamik/remotexec/internal/platform/s3"
	"github.com/imamik/remotexec/internal/util/naming"
)

// ObjectStore is the subset of the S3 client used by S3Store.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

var _ ObjectStore = (*s3.Client)(nil)

// S3Store keeps each record as an object <prefix>/<unit>.yaml in one bucket.
type S3Store struct {
	objects ObjectStore
	bucket  string
	prefix  string
}

// NewS3Store returns a store backed by objects.
func NewS3Store(objects ObjectStore, bucket, prefix string) *S3Store {
	return &S3Store{
		objects: objects,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
	}
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, unit string) (*Record, error) {
	data, err := s.objects.GetObject(ctx, s.bucket, naming.StateKey(s.prefix, unit))
	if err != nil {
		if errors.Is(err, s3.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, unit)
		}
		return nil, err
	}
	return unmarshal(unit, data)
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, rec *Record) error {
	data, err := marshal(rec)
	if err != nil {
		return err
	}
	return s.objects.PutObject(ctx, s.bucket, naming.StateKey(s.prefix, rec.Unit), data)
}

// Delete implements Store.
func (s *S3Store) Delete(ctx context.Context, unit string) error {
	return s.objects.DeleteObject(ctx, s.bucket, naming.StateKey(s.prefix, unit))
}

// List implements Store.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	listPrefix := ""
	if s.prefix != "" {
		listPrefix = s.prefix + "/"
	}

	keys, err := s.objects.ListObjects(ctx, s.bucket, listPrefix)
	if err != nil {
		return nil, err
	}

	var units []string
	for _, key := range keys {
		rel := strings.TrimPrefix(key, listPrefix)
		if strings.Contains(rel, "/") || !strings.HasSuffix(rel, recordExt) {
			continue
		}
		units = append(units, strings.TrimSuffix(rel, recordExt))
	}
	sort.Strings(units)
	return units, nil
}

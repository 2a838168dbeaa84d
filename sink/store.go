// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store stores artifacts under slash-separated names.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
}

// MemoryStore keeps artifacts in memory.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a new and empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string][]byte{}}
}

// Put stores a copy of the data under the specified name, replacing any
// artifact stored before under the same name.
func (s *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = bytes.Clone(data)
	return nil
}

// Get returns the data stored under the specified name.
func (s *MemoryStore) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[name]
	return data, ok
}

// Names returns the sorted names of all stored artifacts.
func (s *MemoryStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DirStore writes artifacts as files into a directory.
type DirStore struct {
	dir string
}

var _ Store = (*DirStore)(nil)

// NewDirStore returns a new DirStore for the specified directory, which gets
// created when needed.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Put writes the data to a file with the specified name, relative to the
// store's directory.
func (s *DirStore) Put(_ context.Context, name string, data []byte) error {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	p := filepath.Join(s.dir, local)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("cannot create artifact directory, reason: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("cannot write artifact, reason: %w", err)
	}
	return nil
}

// S3PutObjectAPI is the part of the S3 client API used by S3Store.
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads artifacts as objects into an S3 bucket.
type S3Store struct {
	client S3PutObjectAPI
	bucket string
	prefix string
}

var _ Store = (*S3Store)(nil)

// NewS3Store returns a new S3Store uploading into the specified bucket, with
// object keys starting with the specified prefix.
func NewS3Store(client S3PutObjectAPI, bucket string, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// NewS3StoreFromEnv returns a new S3Store using the default AWS credential
// chain, such as environment variables and shared configuration files.
func NewS3StoreFromEnv(ctx context.Context, region string, bucket string, prefix string) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	awscfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot load AWS configuration, reason: %w", err)
	}
	return NewS3Store(s3.NewFromConfig(awscfg), bucket, prefix), nil
}

// Put uploads the data as an object named by the store's prefix and the
// specified name.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) error {
	key := path.Join(s.prefix, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("cannot upload artifact %s to bucket %s, reason: %w", key, s.bucket, err)
	}
	return nil
}

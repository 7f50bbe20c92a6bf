// Copyright © 2018 One Concern

// Package sthree implements an object store on top of AWS S3 or any S3 compatible API (e.g. minio)
package sthree

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/oneconcern/eris/pkg/storage"
)

var _ storage.Store = &s3FS{}

// Option configures the S3 store
type Option func(*s3FS)

// Bucket sets the bucket holding the objects
func Bucket(bucket string) Option {
	return func(fs *s3FS) {
		fs.bucket = bucket
	}
}

// Prefix stores all objects under some key prefix in the bucket
func Prefix(prefix string) Option {
	return func(fs *s3FS) {
		fs.prefix = prefix
	}
}

// AWSConfig sets the AWS client configuration
func AWSConfig(cfg *aws.Config) Option {
	return func(fs *s3FS) {
		fs.awsConfig = cfg
	}
}

// Endpoint points the client to an S3 compatible service, using path-style addressing
func Endpoint(endpoint string) Option {
	return func(fs *s3FS) {
		if fs.awsConfig == nil {
			fs.awsConfig = aws.NewConfig()
		}
		fs.awsConfig = fs.awsConfig.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}
}

// New builds an S3 store
func New(option Option, options ...Option) (storage.Store, error) {
	fs := new(s3FS)
	option(fs)
	for _, apply := range options {
		apply(fs)
	}
	if fs.bucket == "" {
		return nil, errEmptyBucket
	}

	sess, err := session.NewSession(fs.awsConfig)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	fs.s3 = s3.New(sess)
	fs.uploader = s3manager.NewUploaderWithClient(fs.s3)
	return fs, nil
}

type s3FS struct {
	bucket    string
	prefix    string
	awsConfig *aws.Config
	s3        *s3.S3
	uploader  *s3manager.Uploader
}

func (s *s3FS) key(k string) *string {
	return aws.String(s.prefix + k)
}

func (s *s3FS) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(key),
	})
	if err != nil {
		return false, filterErrNotFound(toSentinelErrors(err))
	}
	return true, nil
}

func (s *s3FS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(key),
	})
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return obj.Body, nil
}

func (s *s3FS) Put(ctx context.Context, key string, rdr io.Reader) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(key),
		Body:   rdr,
	})
	return toSentinelErrors(err)
}

func (s *s3FS) Delete(ctx context.Context, key string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(key),
	})
	return toSentinelErrors(err)
}

func (s *s3FS) listInput() *s3.ListObjectsInput {
	params := &s3.ListObjectsInput{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		params.Prefix = aws.String(s.prefix)
	}
	return params
}

func (s *s3FS) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	eachPage := func(page *s3.ListObjectsOutput, more bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if len(key) > len(s.prefix) {
				keys = append(keys, key[len(s.prefix):])
			}
		}
		return more
	}

	if err := s.s3.ListObjectsPagesWithContext(ctx, s.listInput(), eachPage); err != nil {
		return nil, toSentinelErrors(err)
	}
	return keys, nil
}

func (s *s3FS) Clear(ctx context.Context) error {
	del := s3manager.NewBatchDeleteWithClient(s.s3)
	return toSentinelErrors(del.Delete(ctx, s3manager.NewDeleteListIterator(s.s3, s.listInput())))
}

func (s *s3FS) String() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

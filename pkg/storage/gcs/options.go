// Copyright © 2018 One Concern

package gcs

import (
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Option is a functor to pass optional parameters to the gcs store
type Option func(*gcs)

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(g *gcs) {
		if logger != nil {
			g.l = logger
		}
	}
}

// Prefix stores all objects under some key prefix in the bucket
func Prefix(prefix string) Option {
	return func(g *gcs) {
		g.prefix = prefix
	}
}

// CredentialsFile authenticates with a service account key file.
//
// When not set, the GOOGLE_APPLICATION_CREDENTIALS environment variable is used.
func CredentialsFile(file string) Option {
	return func(g *gcs) {
		if file != "" {
			g.clientOpts = append(g.clientOpts, option.WithCredentialsFile(file))
		}
	}
}

// ClientOptions passes extra options to the google API client, e.g. an endpoint for an emulator
func ClientOptions(opts ...option.ClientOption) Option {
	return func(g *gcs) {
		g.clientOpts = append(g.clientOpts, opts...)
	}
}

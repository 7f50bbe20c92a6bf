// Copyright © 2018 One Concern

// Package httpd runs an HTTP server with a bounded listener and graceful shutdown
package httpd

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

// Option configures the server
type Option func(*Server)

// Handler to serve
func Handler(handler http.Handler) Option {
	return func(s *Server) {
		s.handler = handler
	}
}

// Logger for the server lifecycle
func Logger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.l = l
		}
	}
}

// Address to listen on. Port 0 picks a random port.
func Address(host string, port int) Option {
	return func(s *Server) {
		s.Host = host
		s.Port = port
	}
}

// ListenLimit caps the number of simultaneous connections
func ListenLimit(limit int) Option {
	return func(s *Server) {
		s.ListenLimit = limit
	}
}

// Timeouts for reading requests and writing responses
func Timeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.ReadTimeout = read
		s.WriteTimeout = write
	}
}

// CleanupTimeout is the grace period given to in-flight requests on shutdown
func CleanupTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.CleanupTimeout = d
	}
}

// TLS serves https with a certificate and private key
func TLS(certificate, key string) Option {
	return func(s *Server) {
		s.TLSCertificate = certificate
		s.TLSCertificateKey = key
	}
}

// Server for the block gateway
type Server struct {
	Host              string
	Port              int
	ListenLimit       int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	CleanupTimeout    time.Duration
	MaxHeaderSize     int
	TLSCertificate    string
	TLSCertificateKey string

	handler  http.Handler
	listener net.Listener
	l        *zap.Logger
	mx       sync.Mutex
}

// New server
func New(opts ...Option) *Server {
	s := &Server{
		Host:           "localhost",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		CleanupTimeout: 10 * time.Second,
		MaxHeaderSize:  1 << 20,
		handler:        http.NotFoundHandler(),
		l:              zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

func (s *Server) scheme() string {
	if s.TLSCertificate != "" {
		return "https"
	}
	return "http"
}

// Listen creates the listener. It is called by Serve if needed.
func (s *Server) Listen() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.listener != nil {
		return nil
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(s.Host, strconv.Itoa(s.Port)))
	if err != nil {
		return err
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.Port = tcpAddr.Port
	}
	if s.ListenLimit > 0 {
		listener = netutil.LimitListener(listener, s.ListenLimit)
	}
	s.listener = listener
	return nil
}

// URL of the listening server
func (s *Server) URL() string {
	return s.scheme() + "://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Serve until the context is cancelled, then shut down gracefully
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		MaxHeaderBytes:    s.MaxHeaderSize,
		ReadTimeout:       s.ReadTimeout,
		ReadHeaderTimeout: s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.CleanupTimeout,
		ErrorLog:          zap.NewStdLog(s.l),
	}
	listener := s.listener
	if s.TLSCertificate != "" {
		cert, err := tls.LoadX509KeyPair(s.TLSCertificate, s.TLSCertificateKey)
		if err != nil {
			return err
		}
		httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
			NextProtos:   []string{"h2", "http/1.1"},
		}
		listener = tls.NewListener(listener, httpServer.TLSConfig)
	}

	errc := make(chan error, 1)
	go func() {
		s.l.Info("serving", zap.String("url", s.URL()))
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.CleanupTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.l.Warn("http server shutdown", zap.Error(err))
		return err
	}
	s.l.Info("stopped serving", zap.String("url", s.URL()))
	return <-errc
}

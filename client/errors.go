package client

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"syscall"
)

// Category classifies a failed connect.
type Category uint8

const (
	CategoryStandalone Category = iota
	CategoryCluster
	CategoryTimeout
	CategoryIO
)

func (c Category) String() string {
	switch c {
	case CategoryStandalone:
		return "standalone"
	case CategoryCluster:
		return "cluster"
	case CategoryTimeout:
		return "timeout"
	case CategoryIO:
		return "io"
	}
	return "unknown"
}

// ConnectionError is returned by Connect.
type ConnectionError struct {
	Cause    error
	Category Category
}

func (e *ConnectionError) Error() string {
	switch e.Category {
	case CategoryTimeout:
		return "connection timed out: " + e.Cause.Error()
	case CategoryIO:
		return "connection io error: " + e.Cause.Error()
	case CategoryCluster:
		return "cluster connection failed: " + e.Cause.Error()
	}
	return "connection failed: " + e.Cause.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

func classify(err error, cluster bool) *ConnectionError {
	var ce *ConnectionError
	if stderrors.As(err, &ce) {
		return ce
	}
	out := &ConnectionError{Cause: err, Category: CategoryStandalone}
	if cluster {
		out.Category = CategoryCluster
	}

	var netErr net.Error
	var opErr *net.OpError
	switch {
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.As(err, &netErr) && netErr.Timeout():
		out.Category = CategoryTimeout
	case stderrors.As(err, &opErr),
		stderrors.Is(err, io.EOF),
		stderrors.Is(err, io.ErrUnexpectedEOF),
		stderrors.Is(err, syscall.ECONNREFUSED),
		stderrors.Is(err, syscall.ECONNRESET):
		out.Category = CategoryIO
	}
	return out
}

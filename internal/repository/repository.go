// Package repository maps branching conversations and bot metadata onto the
// partition-scoped key-value table. Every operation acquires a handle bound
// to the calling user and releases it before returning; isolation is a
// property of the handle, not of filtering done here.
package repository

import (
	"errors"
	"time"

	"github.com/capitalize-ai/conversation-store/internal/kvstore"
	"github.com/capitalize-ai/conversation-store/pkg/metrics"
)

var (
	// ErrRecordNotFound indicates a lookup or targeted update addressed a
	// (user, id) pair with no matching row.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidTree indicates a conversation write would persist a message
	// map violating the tree invariants.
	ErrInvalidTree = errors.New("invalid message tree")
)

const tracerName = "github.com/capitalize-ai/conversation-store/internal/repository"

// nowSeconds returns the current time as fractional seconds.
func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// observe records metrics for one repository operation.
func observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, kvstore.ErrAccessDenied):
		status = "denied"
		metrics.RecordAccessDenied(op)
	case errors.Is(err, ErrRecordNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.RecordOp(op, status, time.Since(start).Seconds())
}

// mapLookupErr converts backend not-found into the repository sentinel.
// Transient failures pass through so they are never mistaken for a
// missing row.
func mapLookupErr(err error) error {
	if errors.Is(err, kvstore.ErrNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// Package handler serves the HTTP API over the collector state, the
// analyzer and the stores.
package handler

import (
	"net/http"

	"github.com/illenko/blacklight/internal/api/helpers"
	"github.com/illenko/blacklight/internal/collector"
)

type StateSource interface {
	State() *collector.State
}

type handlerError string

func (e handlerError) Error() string { return string(e) }

const (
	ErrNoSnapshot = handlerError("no snapshot has been fetched yet")
	ErrNoTargets  = handlerError("no target set has been fetched yet")
)

// currentSnapshot writes 503 and returns false until a snapshot exists.
func currentSnapshot(w http.ResponseWriter, state StateSource) (*collector.State, bool) {
	st := state.State()
	if st.Snapshot == nil {
		helpers.WriteError(w, http.StatusServiceUnavailable, withCause(ErrNoSnapshot, st.SnapshotError))
		return nil, false
	}
	return st, true
}

func currentTargets(w http.ResponseWriter, state StateSource) (*collector.State, bool) {
	st := state.State()
	if st.Targets == nil {
		helpers.WriteError(w, http.StatusServiceUnavailable, withCause(ErrNoTargets, st.TargetsError))
		return nil, false
	}
	return st, true
}

func withCause(err error, cause string) string {
	if cause == "" {
		return err.Error()
	}
	return err.Error() + ": " + cause
}

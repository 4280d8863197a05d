package coordinator

import (
	"time"

	"statementviewer/services/dashboard/internal/models"
)

// QueryState is the loading/error/data triad a view renders from.
type QueryState[T any] struct {
	Data      T
	HasData   bool
	Err       error
	Fetching  bool
	UpdatedAt time.Time
}

// Loading reports a fetch in flight with nothing to show yet.
func (s QueryState[T]) Loading() bool {
	return s.Fetching && !s.HasData
}

func (s QueryState[T]) started(resetErr bool) QueryState[T] {
	s.Fetching = true
	if resetErr {
		s.Err = nil
	}
	return s
}

func (s QueryState[T]) succeeded(data T, at time.Time) QueryState[T] {
	return QueryState[T]{Data: data, HasData: true, UpdatedAt: at}
}

// failed keeps the last good data next to the error.
func (s QueryState[T]) failed(err error) QueryState[T] {
	s.Err = err
	s.Fetching = false
	return s
}

// Snapshot is an immutable view of one coordinator's state.
type Snapshot struct {
	Version       uint64
	Params        models.IssuesQueryParams
	Notification  *models.Notification
	Balance       QueryState[models.BalanceData]
	Issues        QueryState[models.IssuesData]
	UploadPending bool
}

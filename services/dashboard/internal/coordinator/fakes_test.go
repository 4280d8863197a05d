package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"statementviewer/services/dashboard/internal/models"
)

type fakeAPI struct {
	mu           sync.Mutex
	balance      decimal.Decimal
	balanceErr   error
	issuesCalls  []models.IssuesQueryParams
	balanceCalls int
	uploads      []string
	uploadMsg    string
	uploadErr    error
	gates        map[int]chan struct{} // page -> release
	uploadGate   chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		balance:   decimal.NewFromInt(2500000),
		uploadMsg: "File uploaded successfully",
		gates:     make(map[int]chan struct{}),
	}
}

func (f *fakeAPI) FetchBalance(ctx context.Context) (models.BalanceData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls++
	if f.balanceErr != nil {
		return models.BalanceData{}, f.balanceErr
	}
	return models.BalanceData{TotalBalance: f.balance}, nil
}

func (f *fakeAPI) FetchIssues(ctx context.Context, params models.IssuesQueryParams) (models.IssuesData, error) {
	f.mu.Lock()
	f.issuesCalls = append(f.issuesCalls, params)
	gate := f.gates[params.Page]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return issuesPage(params.Page), nil
}

func (f *fakeAPI) UploadFile(ctx context.Context, filename string, content []byte) (string, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, filename)
	gate := f.uploadGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadMsg, nil
}

func (f *fakeAPI) gate(page int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[page] = ch
	return ch
}

func (f *fakeAPI) gateUploads() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadGate = make(chan struct{})
	return f.uploadGate
}

func (f *fakeAPI) uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

func (f *fakeAPI) setBalanceErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceErr = err
}

func (f *fakeAPI) setBalance(v decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = v
}

func (f *fakeAPI) setUploadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadErr = err
}

func (f *fakeAPI) counts() (balance, issues int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceCalls, len(f.issuesCalls)
}

func (f *fakeAPI) lastIssuesParams() models.IssuesQueryParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.issuesCalls) == 0 {
		return models.IssuesQueryParams{}
	}
	return f.issuesCalls[len(f.issuesCalls)-1]
}

func issuesPage(page int) models.IssuesData {
	return models.IssuesData{
		Transactions: []models.Transaction{{
			Timestamp: time.Date(2024, 1, page, 0, 0, 0, 0, time.UTC),
			Name:      "row",
			Type:      models.TypeDebit,
			Amount:    decimal.NewFromInt(int64(page * 1000)),
			Status:    models.StatusFailed,
		}},
		Metadata: models.PaginationMetadata{CurrentPage: page, PageSize: 10, TotalItems: 50, TotalPages: 5},
	}
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped atomic.Bool
}

func (t *fakeTimer) Stop() bool {
	return !t.stopped.Swap(true)
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

// fire runs the callback even if stopped, like a timer that raced its Stop.
func (s *fakeScheduler) fire(i int) {
	s.timer(i).f()
}

var errUpstream = errors.New("upstream unavailable")

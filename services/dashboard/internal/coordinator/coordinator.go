package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"statementviewer/services/dashboard/internal/models"
	"statementviewer/services/dashboard/internal/query"
)

// DefaultDismissAfter is how long a notification stays up.
const DefaultDismissAfter = 4 * time.Second

const eventBuffer = 64

// UploadInProgressMessage answers an upload submitted while another is pending.
const UploadInProgressMessage = "An upload is already in progress"

// ErrClosed is returned by Sync once the coordinator is closed.
var ErrClosed = errors.New("coordinator: closed")

// StatementAPI is the subset of the statement client the coordinator drives.
type StatementAPI interface {
	FetchBalance(ctx context.Context) (models.BalanceData, error)
	FetchIssues(ctx context.Context, params models.IssuesQueryParams) (models.IssuesData, error)
	UploadFile(ctx context.Context, filename string, content []byte) (string, error)
}

// Options configure a Coordinator. Zero values select defaults.
type Options struct {
	DismissAfter time.Duration
	Scheduler    Scheduler
	Params       models.IssuesQueryParams
	Logger       *zap.Logger
}

// Coordinator owns one dashboard's query params and notification. All state
// lives on a single event loop; exported methods post events to it and return
// immediately.
type Coordinator struct {
	api          StatementAPI
	cache        *query.Client
	logger       *zap.Logger
	scheduler    Scheduler
	dismissAfter time.Duration
	now          func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	events  chan func()
	done    chan struct{}
	stopped chan struct{}
	start   sync.Once
	stop    sync.Once

	snapshot atomic.Pointer[Snapshot]

	watchMu  sync.Mutex
	watchers map[uint64]chan Snapshot
	nextID   uint64
	closed   bool

	// loop-owned
	params        models.IssuesQueryParams
	notification  *models.Notification
	balance       QueryState[models.BalanceData]
	issues        QueryState[models.IssuesData]
	uploadPending bool
	balanceSeq    uint64
	issuesSeq     uint64
	dismissTimer  Timer
	dismissGen    uint64
	version       uint64
	unsubscribe   []func()
}

// New builds a coordinator. Call Start to begin fetching.
func New(api StatementAPI, cache *query.Client, opts Options) *Coordinator {
	if opts.DismissAfter <= 0 {
		opts.DismissAfter = DefaultDismissAfter
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler
	}
	if opts.Params == (models.IssuesQueryParams{}) {
		opts.Params = models.DefaultIssuesQueryParams()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		api:          api,
		cache:        cache,
		logger:       opts.Logger,
		scheduler:    opts.Scheduler,
		dismissAfter: opts.DismissAfter,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		events:       make(chan func(), eventBuffer),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		watchers:     make(map[uint64]chan Snapshot),
		params:       opts.Params,
		balance:      QueryState[models.BalanceData]{Fetching: true},
		issues:       QueryState[models.IssuesData]{Fetching: true},
	}
	c.snapshot.Store(c.buildSnapshot())
	return c
}

// Start subscribes to cache invalidation and issues the initial fetches.
func (c *Coordinator) Start() {
	c.start.Do(func() {
		c.unsubscribe = append(c.unsubscribe,
			c.cache.Subscribe(TagBalance, func() { c.post(c.refetchBalance) }),
			c.cache.Subscribe(TagIssues, func() { c.post(func() { c.refetchIssues(false) }) }),
		)
		go c.loop()
		c.post(func() {
			c.refetchBalance()
			c.refetchIssues(true)
		})
	})
}

// Close stops the loop, the pending dismissal and the cache subscriptions.
// Watch channels are closed.
func (c *Coordinator) Close() {
	c.stop.Do(func() {
		close(c.done)
		c.cancel()
	})
	c.start.Do(func() {
		c.shutdown()
		close(c.stopped)
	})
	<-c.stopped
}

// Snapshot returns the latest published state.
func (c *Coordinator) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

// Watch yields snapshots as they are published; only the latest unread one is
// kept. The channel closes when the coordinator closes.
func (c *Coordinator) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	c.nextID++
	id := c.nextID
	c.watchers[id] = ch
	ch <- *c.snapshot.Load()

	return ch, func() {
		c.watchMu.Lock()
		defer c.watchMu.Unlock()
		delete(c.watchers, id)
	}
}

// SortColumn sorts by col, toggling the direction if it is already the sort column.
func (c *Coordinator) SortColumn(col string) {
	c.post(func() { c.setParams(c.params.SortedBy(col)) })
}

// ChangePage moves to page n. Callers disable out-of-range controls; n is not re-checked.
func (c *Coordinator) ChangePage(n int) {
	c.post(func() { c.setParams(c.params.WithPage(n)) })
}

// Upload runs the upload mutation. A second upload while one is pending is
// not sent; the user gets an info notification instead.
func (c *Coordinator) Upload(filename string, content []byte) {
	c.post(func() {
		if c.uploadPending {
			c.logger.Debug("upload already pending, ignoring", zap.String("filename", filename))
			c.notify(models.Notification{Type: models.NotificationInfo, Message: UploadInProgressMessage})
			return
		}
		c.uploadPending = true

		go func() {
			msg, err := c.api.UploadFile(c.ctx, filename, content)
			c.post(func() {
				c.uploadPending = false
				if err != nil {
					c.uploadFailed(err)
					return
				}
				c.uploadSucceeded(msg)
			})
		}()
	})
}

// RejectUpload reports an upload that failed before reaching the API.
func (c *Coordinator) RejectUpload(err error) {
	c.post(func() { c.uploadFailed(err) })
}

// Dismiss clears the notification and cancels its timer.
func (c *Coordinator) Dismiss() {
	c.post(func() {
		c.cancelDismiss()
		c.notification = nil
	})
}

// Sync waits until every event posted before it has been applied and
// published, so a following Snapshot reflects them.
func (c *Coordinator) Sync(ctx context.Context) error {
	applied := make(chan struct{})
	select {
	case c.events <- func() { close(applied) }:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-applied:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) setParams(next models.IssuesQueryParams) {
	if next == c.params {
		return
	}
	c.params = next
	c.refetchIssues(true)
}

func (c *Coordinator) uploadSucceeded(message string) {
	c.logger.Info("statement uploaded", zap.String("message", message))
	c.notify(models.Notification{Type: models.NotificationSuccess, Message: message})
	if next := c.params.WithPage(1); next != c.params {
		c.params = next
		c.issues = c.issues.started(true)
	}

	// subscribers, including this coordinator, refetch once the tags are stale
	go func() {
		if err := c.cache.Invalidate(c.ctx, TagBalance, TagIssues); err != nil {
			c.logger.Warn("cache invalidation failed", zap.Error(err))
		}
	}()
}

func (c *Coordinator) uploadFailed(err error) {
	c.logger.Warn("statement upload failed", zap.Error(err))
	c.notify(models.Notification{Type: models.NotificationError, Message: "Upload failed: " + err.Error()})
}

// notify replaces the notification and its dismissal timer.
func (c *Coordinator) notify(n models.Notification) {
	c.cancelDismiss()
	c.notification = &n

	gen := c.dismissGen
	c.dismissTimer = c.scheduler.AfterFunc(c.dismissAfter, func() {
		c.post(func() {
			if gen != c.dismissGen {
				return
			}
			c.dismissTimer = nil
			c.notification = nil
		})
	})
}

func (c *Coordinator) cancelDismiss() {
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
		c.dismissTimer = nil
	}
	c.dismissGen++
}

func (c *Coordinator) post(fn func()) {
	select {
	case c.events <- fn:
	case <-c.done:
	}
}

func (c *Coordinator) loop() {
	defer close(c.stopped)
	defer c.shutdown()

	for {
		select {
		case <-c.done:
			return
		case fn := <-c.events:
			fn()
			c.publish()
		}
	}
}

func (c *Coordinator) shutdown() {
	c.cancelDismiss()
	for _, unsub := range c.unsubscribe {
		unsub()
	}

	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	c.closed = true
	for id, ch := range c.watchers {
		close(ch)
		delete(c.watchers, id)
	}
}

func (c *Coordinator) buildSnapshot() *Snapshot {
	return &Snapshot{
		Version:       c.version,
		Params:        c.params,
		Notification:  c.notification,
		Balance:       c.balance,
		Issues:        c.issues,
		UploadPending: c.uploadPending,
	}
}

func (c *Coordinator) publish() {
	c.version++
	snap := c.buildSnapshot()
	c.snapshot.Store(snap)

	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	for _, ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- *snap
	}
}

package coordinator

import (
	"context"

	"go.uber.org/zap"

	"statementviewer/services/dashboard/internal/models"
	"statementviewer/services/dashboard/internal/query"
)

const (
	TagBalance = "balance"
	TagIssues  = "issues"
)

// BalanceKey is the cache key of the balance query.
func BalanceKey() query.Key {
	return query.NewKey(TagBalance, "")
}

// IssuesKey caches every page/sort/limit combination separately.
func IssuesKey(p models.IssuesQueryParams) query.Key {
	return query.NewKey(TagIssues, p.Values().Encode())
}

// ticket tags an in-flight fetch with the state it was issued for.
type ticket struct {
	params models.IssuesQueryParams
	seq    uint64
}

func (c *Coordinator) refetchBalance() {
	c.balanceSeq++
	seq := c.balanceSeq
	c.balance = c.balance.started(false)

	go func() {
		data, err := query.Fetch(c.ctx, c.cache, BalanceKey(), func(ctx context.Context) (models.BalanceData, error) {
			return c.api.FetchBalance(ctx)
		})
		c.post(func() { c.applyBalance(seq, data, err) })
	}()
}

func (c *Coordinator) applyBalance(seq uint64, data models.BalanceData, err error) {
	if seq != c.balanceSeq {
		c.logger.Debug("discarding superseded balance response", zap.Uint64("seq", seq), zap.Uint64("latest", c.balanceSeq))
		return
	}
	if err != nil {
		c.logger.Warn("balance fetch failed", zap.Error(err))
		c.balance = c.balance.failed(err)
		return
	}
	c.balance = c.balance.succeeded(data, c.now())
}

// refetchIssues keeps the current data visible until the new page arrives.
func (c *Coordinator) refetchIssues(paramsChanged bool) {
	c.issuesSeq++
	t := ticket{params: c.params, seq: c.issuesSeq}
	c.issues = c.issues.started(paramsChanged)

	go func() {
		data, err := query.Fetch(c.ctx, c.cache, IssuesKey(t.params), func(ctx context.Context) (models.IssuesData, error) {
			return c.api.FetchIssues(ctx, t.params)
		})
		c.post(func() { c.applyIssues(t, data, err) })
	}()
}

func (c *Coordinator) applyIssues(t ticket, data models.IssuesData, err error) {
	if t.params != c.params || t.seq != c.issuesSeq {
		c.logger.Debug("discarding superseded issues response",
			zap.Uint64("seq", t.seq),
			zap.Uint64("latest", c.issuesSeq),
			zap.Bool("params_changed", t.params != c.params),
		)
		return
	}
	if err != nil {
		c.logger.Warn("issues fetch failed", zap.Error(err))
		c.issues = c.issues.failed(err)
		return
	}
	c.issues = c.issues.succeeded(data, c.now())
}

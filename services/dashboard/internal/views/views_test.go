package views

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementviewer/services/dashboard/internal/coordinator"
	"statementviewer/services/dashboard/internal/models"
)

// rp prefixes an amount the way Formatter.Currency does for rupiah.
func rp(amount string) string {
	return "Rp" + SymbolSeparator + amount
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	jakarta := time.FixedZone("WIB", 7*3600)
	f, err := NewFormatter("id", "Rp", jakarta)
	require.NoError(t, err)
	r, err := NewRenderer(f)
	require.NoError(t, err)
	return r
}

func render(t *testing.T, fn func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fn(&buf))
	return buf.String()
}

func TestFormatterCurrency(t *testing.T) {
	f, err := NewFormatter("id", "Rp", time.UTC)
	require.NoError(t, err)

	assert.Equal(t, rp("2.500.000"), f.Currency(decimal.NewFromInt(2500000)))
	assert.Equal(t, "-"+rp("500.000"), f.Currency(decimal.NewFromInt(-500000)))
	assert.Equal(t, rp("1.235"), f.Currency(decimal.RequireFromString("1234.5")))
	assert.Equal(t, rp("0"), f.Currency(decimal.RequireFromString("-0.4")))
}

func TestFormatterDateTime(t *testing.T) {
	f, err := NewFormatter("id", "Rp", time.FixedZone("WIB", 7*3600))
	require.NoError(t, err)
	assert.Equal(t, "01/03/2024, 17.05.09", f.DateTime(time.Date(2024, 3, 1, 10, 5, 9, 0, time.UTC)))

	_, err = NewFormatter("not a tag!", "Rp", nil)
	assert.Error(t, err)
}

func TestBalanceStates(t *testing.T) {
	r := newRenderer(t)

	loading := render(t, func(b *bytes.Buffer) error { return r.Balance(b, BalanceProps{Loading: true}) })
	assert.Contains(t, loading, "Loading balance...")
	assert.NotContains(t, loading, "balance-view")

	failed := render(t, func(b *bytes.Buffer) error {
		return r.Balance(b, BalanceProps{Err: errors.New("no statement uploaded")})
	})
	assert.Contains(t, failed, `<p class="error-text">Error: no statement uploaded</p>`)

	negative := render(t, func(b *bytes.Buffer) error {
		return r.Balance(b, BalanceProps{Data: &models.BalanceData{TotalBalance: decimal.NewFromInt(-500000)}})
	})
	assert.Contains(t, negative, `<div class="balance-view negative">-`+rp("500.000")+`</div>`)

	positive := render(t, func(b *bytes.Buffer) error {
		return r.Balance(b, BalanceProps{Data: &models.BalanceData{TotalBalance: decimal.NewFromInt(2500000)}})
	})
	assert.Contains(t, positive, `<div class="balance-view">`+rp("2.500.000")+`</div>`)
}

func issuesData(current, total, items int) *models.IssuesData {
	return &models.IssuesData{
		Transactions: []models.Transaction{
			{
				Timestamp:   time.Date(2024, 3, 1, 10, 5, 9, 0, time.UTC),
				Name:        "JANE <DOE>",
				Type:        models.TypeDebit,
				Amount:      decimal.NewFromInt(150000),
				Status:      models.StatusFailed,
				Description: "rent",
			},
			{
				Timestamp: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
				Name:      "BOB",
				Type:      models.TypeCredit,
				Amount:    decimal.NewFromInt(20000),
				Status:    models.StatusPending,
			},
		},
		Metadata: models.PaginationMetadata{CurrentPage: current, PageSize: 10, TotalItems: items, TotalPages: total},
	}
}

func TestIssuesLoadingAndError(t *testing.T) {
	r := newRenderer(t)

	loading := render(t, func(b *bytes.Buffer) error { return r.Issues(b, IssuesProps{Loading: true}) })
	assert.Contains(t, loading, "Loading issues...")
	assert.NotContains(t, loading, "paginator")

	failed := render(t, func(b *bytes.Buffer) error {
		return r.Issues(b, IssuesProps{Data: issuesData(1, 2, 12), Err: errors.New("upstream down")})
	})
	assert.Contains(t, failed, "Error: upstream down")
	assert.NotContains(t, failed, "issues-table")
}

func TestIssuesEmpty(t *testing.T) {
	r := newRenderer(t)
	empty := &models.IssuesData{Metadata: models.PaginationMetadata{CurrentPage: 1, PageSize: 10}}

	out := render(t, func(b *bytes.Buffer) error { return r.Issues(b, IssuesProps{Data: empty}) })
	assert.Contains(t, out, "No issues found. All transactions are successful.")
	assert.NotContains(t, out, "paginator")
	assert.NotContains(t, out, "Previous")
}

func TestIssuesPopulated(t *testing.T) {
	r := newRenderer(t)
	params := models.IssuesQueryParams{Page: 1, Limit: 10, SortBy: "amount", SortDir: "asc"}

	out := render(t, func(b *bytes.Buffer) error {
		return r.Issues(b, IssuesProps{Data: issuesData(1, 3, 25), Params: params})
	})

	assert.Contains(t, out, "<td>01/03/2024, 17.05.09</td>")
	assert.Contains(t, out, "JANE &lt;DOE&gt;")
	assert.Contains(t, out, rp("150.000 (DEBIT)"))
	assert.Contains(t, out, `<span class="status status-failed">FAILED</span>`)
	assert.Contains(t, out, `<span class="status status-pending">PENDING</span>`)
	assert.Contains(t, out, "Amount ▲")
	assert.Contains(t, out, "Page 1 of 3 (Total: 25 issues)")
	assert.Contains(t, out, `value="previous" disabled>Previous`)
	assert.Contains(t, out, `value="next">Next`)
	assert.Contains(t, out, `name="n" value="2"`)
	assert.Equal(t, 2, strings.Count(out, "<tr data-key="))
}

func TestIssuesLastPageDisablesNext(t *testing.T) {
	r := newRenderer(t)

	out := render(t, func(b *bytes.Buffer) error {
		return r.Issues(b, IssuesProps{Data: issuesData(3, 3, 25), Params: models.DefaultIssuesQueryParams()})
	})
	assert.Contains(t, out, `value="previous">Previous`)
	assert.Contains(t, out, `value="next" disabled>Next`)
	assert.Contains(t, out, "Timestamp ▼")
}

func TestIssuesRefreshingKeepsRows(t *testing.T) {
	r := newRenderer(t)

	out := render(t, func(b *bytes.Buffer) error {
		return r.Issues(b, IssuesProps{Data: issuesData(1, 3, 25), Fetching: true})
	})
	assert.Contains(t, out, "table-wrapper--refreshing")
	assert.NotContains(t, out, "Loading issues...")
}

func TestUploaderAndToast(t *testing.T) {
	r := newRenderer(t)

	idle := render(t, func(b *bytes.Buffer) error { return r.Uploader(b, UploaderProps{}) })
	assert.Contains(t, idle, "Upload CSV")
	assert.NotContains(t, idle, "disabled")

	pending := render(t, func(b *bytes.Buffer) error { return r.Uploader(b, UploaderProps{Pending: true}) })
	assert.Contains(t, pending, "Uploading...")
	assert.Contains(t, pending, "disabled")

	none := render(t, func(b *bytes.Buffer) error { return r.Toast(b, ToastProps{}) })
	assert.Empty(t, strings.TrimSpace(none))

	toast := render(t, func(b *bytes.Buffer) error {
		return r.Toast(b, ToastProps{Notification: &models.Notification{Type: models.NotificationError, Message: "Upload failed: <bad>"}})
	})
	assert.Contains(t, toast, `class="toast toast-error"`)
	assert.Contains(t, toast, "Upload failed: &lt;bad&gt;")
}

func TestPageFromSnapshot(t *testing.T) {
	r := newRenderer(t)
	snap := coordinator.Snapshot{
		Params: models.DefaultIssuesQueryParams(),
		Balance: coordinator.QueryState[models.BalanceData]{
			Data:    models.BalanceData{TotalBalance: decimal.NewFromInt(2500000)},
			HasData: true,
		},
		Issues:       coordinator.QueryState[models.IssuesData]{Fetching: true},
		Notification: &models.Notification{Type: models.NotificationSuccess, Message: "File uploaded successfully"},
	}

	out := render(t, func(b *bytes.Buffer) error {
		return r.Page(b, PageProps{Title: "Bank Statement Viewer", Lang: "id", WebsocketPath: "/ws", Dashboard: PropsFromSnapshot(snap)})
	})
	assert.Contains(t, out, "<title>Bank Statement Viewer</title>")
	assert.Contains(t, out, `data-ws="/ws"`)
	assert.Contains(t, out, rp("2.500.000"))
	assert.Contains(t, out, "Loading issues...")
	assert.Contains(t, out, "toast-success")

	html, err := r.DashboardHTML(PropsFromSnapshot(snap))
	require.NoError(t, err)
	assert.NotContains(t, html, "<html")
	assert.Contains(t, html, "File uploaded successfully")
}

func TestStaticAssets(t *testing.T) {
	for _, name := range []string{"app.js", "app.css"} {
		f, err := Static().Open(name)
		require.NoError(t, err, name)
		f.Close()
	}
}

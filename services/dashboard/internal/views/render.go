package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"statementviewer/services/dashboard/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the embedded stylesheet and script.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

type column struct {
	Key       string
	Label     string
	Sortable  bool
	Indicator string
}

var issueColumns = []column{
	{Key: "timestamp", Label: "Timestamp", Sortable: true},
	{Key: "name", Label: "Name", Sortable: true},
	{Key: "amount", Label: "Amount", Sortable: true},
	{Label: "Status"},
	{Label: "Description"},
}

type balanceView struct {
	Loading  bool
	Error    string
	HasData  bool
	Amount   string
	Negative bool
}

type rowView struct {
	Key         string
	When        string
	Name        string
	Amount      string
	Type        string
	Status      string
	StatusClass string
	Description string
}

type issuesView struct {
	Loading     bool
	Error       string
	Empty       bool
	Refreshing  bool
	Columns     []column
	Rows        []rowView
	CurrentPage int
	TotalPages  int
	TotalItems  int
	HasPrevious bool
	HasNext     bool
	PrevPage    int
	NextPage    int
}

type dashboardView struct {
	Balance  balanceView
	Issues   issuesView
	Uploader UploaderProps
	Toast    *models.Notification
}

type pageView struct {
	Title         string
	Lang          string
	WebsocketPath string
	Dashboard     dashboardView
}

// Renderer turns props into HTML. It holds no state besides templates and formatting.
type Renderer struct {
	tmpl   *template.Template
	format *Formatter
}

// NewRenderer parses the embedded templates.
func NewRenderer(format *Formatter) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("views: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, format: format}, nil
}

// Balance renders the balance card.
func (r *Renderer) Balance(w io.Writer, p BalanceProps) error {
	return r.tmpl.ExecuteTemplate(w, "balance", r.balanceView(p))
}

// Issues renders the issues table with its paginator.
func (r *Renderer) Issues(w io.Writer, p IssuesProps) error {
	return r.tmpl.ExecuteTemplate(w, "issues", r.issuesView(p))
}

// Uploader renders the upload form.
func (r *Renderer) Uploader(w io.Writer, p UploaderProps) error {
	return r.tmpl.ExecuteTemplate(w, "uploader", p)
}

// Toast renders the notification, or nothing.
func (r *Renderer) Toast(w io.Writer, p ToastProps) error {
	return r.tmpl.ExecuteTemplate(w, "toast", p.Notification)
}

// Dashboard renders the live region pushed over the websocket.
func (r *Renderer) Dashboard(w io.Writer, p DashboardProps) error {
	return r.tmpl.ExecuteTemplate(w, "dashboard", r.dashboardView(p))
}

// DashboardHTML is Dashboard into a string.
func (r *Renderer) DashboardHTML(p DashboardProps) (string, error) {
	var buf bytes.Buffer
	if err := r.Dashboard(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Page renders the whole document.
func (r *Renderer) Page(w io.Writer, p PageProps) error {
	return r.tmpl.ExecuteTemplate(w, "page", pageView{
		Title:         p.Title,
		Lang:          p.Lang,
		WebsocketPath: p.WebsocketPath,
		Dashboard:     r.dashboardView(p.Dashboard),
	})
}

func (r *Renderer) dashboardView(p DashboardProps) dashboardView {
	return dashboardView{
		Balance:  r.balanceView(p.Balance),
		Issues:   r.issuesView(p.Issues),
		Uploader: p.Uploader,
		Toast:    p.Toast.Notification,
	}
}

func (r *Renderer) balanceView(p BalanceProps) balanceView {
	v := balanceView{Loading: p.Loading}
	if p.Err != nil {
		v.Error = p.Err.Error()
	}
	if p.Data != nil {
		v.HasData = true
		v.Amount = r.format.Currency(p.Data.TotalBalance)
		v.Negative = p.Data.TotalBalance.IsNegative()
	}
	return v
}

func (r *Renderer) issuesView(p IssuesProps) issuesView {
	v := issuesView{Loading: p.Loading}
	if p.Err != nil {
		v.Error = p.Err.Error()
	}
	if p.Data == nil || p.Data.Empty() {
		v.Empty = true
		return v
	}

	meta := p.Data.Metadata
	v.Refreshing = p.Fetching
	v.Columns = sortColumns(p.Params)
	v.CurrentPage = meta.CurrentPage
	v.TotalPages = meta.TotalPages
	v.TotalItems = meta.TotalItems
	v.HasPrevious = meta.HasPrevious()
	v.HasNext = meta.HasNext()
	v.PrevPage = meta.CurrentPage - 1
	v.NextPage = meta.CurrentPage + 1

	v.Rows = make([]rowView, 0, len(p.Data.Transactions))
	for _, tx := range p.Data.Transactions {
		v.Rows = append(v.Rows, rowView{
			Key:         tx.DisplayKey(),
			When:        r.format.DateTime(tx.Timestamp),
			Name:        tx.Name,
			Amount:      r.format.Currency(tx.Amount),
			Type:        string(tx.Type),
			Status:      string(tx.Status),
			StatusClass: statusClass(tx.Status),
			Description: tx.Description,
		})
	}
	return v
}

func sortColumns(p models.IssuesQueryParams) []column {
	cols := make([]column, len(issueColumns))
	copy(cols, issueColumns)
	for i := range cols {
		if cols[i].Sortable && cols[i].Key == p.SortBy {
			cols[i].Indicator = " ▼"
			if p.SortDir == models.SortAsc {
				cols[i].Indicator = " ▲"
			}
		}
	}
	return cols
}

func statusClass(s models.TransactionStatus) string {
	switch s {
	case models.StatusFailed:
		return "status-failed"
	case models.StatusPending:
		return "status-pending"
	default:
		return ""
	}
}

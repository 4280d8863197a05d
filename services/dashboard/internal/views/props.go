package views

import (
	"statementviewer/services/dashboard/internal/coordinator"
	"statementviewer/services/dashboard/internal/models"
)

// BalanceProps feed the balance card.
type BalanceProps struct {
	Data    *models.BalanceData
	Loading bool
	Err     error
}

// IssuesProps feed the issues table.
type IssuesProps struct {
	Data     *models.IssuesData
	Params   models.IssuesQueryParams
	Loading  bool
	Fetching bool
	Err      error
}

// UploaderProps feed the upload form.
type UploaderProps struct {
	Pending bool
}

// ToastProps feed the notification toast; nil renders nothing.
type ToastProps struct {
	Notification *models.Notification
}

// DashboardProps is everything inside the live-updated region.
type DashboardProps struct {
	Balance  BalanceProps
	Issues   IssuesProps
	Uploader UploaderProps
	Toast    ToastProps
}

// PageProps wrap the dashboard in the document shell.
type PageProps struct {
	Title         string
	Lang          string
	WebsocketPath string
	Dashboard     DashboardProps
}

// PropsFromSnapshot maps coordinator state onto view props.
func PropsFromSnapshot(s coordinator.Snapshot) DashboardProps {
	props := DashboardProps{
		Balance: BalanceProps{
			Loading: s.Balance.Loading(),
			Err:     s.Balance.Err,
		},
		Issues: IssuesProps{
			Params:   s.Params,
			Loading:  s.Issues.Loading(),
			Fetching: s.Issues.Fetching,
			Err:      s.Issues.Err,
		},
		Uploader: UploaderProps{Pending: s.UploadPending},
		Toast:    ToastProps{Notification: s.Notification},
	}
	if s.Balance.HasData {
		data := s.Balance.Data
		props.Balance.Data = &data
	}
	if s.Issues.HasData {
		data := s.Issues.Data
		props.Issues.Data = &data
	}
	return props
}

package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementviewer/services/dashboard/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *StatementClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStatementClient(srv.URL+"/", srv.Client())
}

func TestFetchBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/balance", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":true,"message":"Balance retrieved successfully","data":{"total_balance":-500000}}`)
	})

	got, err := client.FetchBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, got.TotalBalance.Equal(decimal.NewFromInt(-500000)))
}

func TestFetchBalanceNonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"status":false,"message":"boom"}`)
	})

	_, err := client.FetchBalance(context.Background())
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	assert.Contains(t, err.Error(), "network response was not ok")
}

func TestFetchBalanceEnvelopeFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":false,"message":"no statement uploaded"}`)
	})

	_, err := client.FetchBalance(context.Background())
	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "no statement uploaded", err.Error())
}

func TestFetchBalanceMissingData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":true,"message":""}`)
	})

	_, err := client.FetchBalance(context.Background())
	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
}

func TestFetchBalanceBadJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	})

	_, err := client.FetchBalance(context.Background())
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Error(t, errors.Unwrap(err))
}

func TestFetchBalanceTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewStatementClient(url, http.DefaultClient)
	_, err := client.FetchBalance(context.Background())
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Zero(t, netErr.StatusCode)
}

func TestFetchIssuesSendsAllParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/issues", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "3", q.Get("page"))
		assert.Equal(t, "20", q.Get("limit"))
		assert.Equal(t, "amount", q.Get("sort_by"))
		assert.Equal(t, "asc", q.Get("sort_dir"))
		_, _ = io.WriteString(w, `{"status":true,"message":"ok","data":{"transactions":[{"timestamp":"2024-01-02T03:04:05Z","name":"A","type":"CREDIT","amount":10,"status":"PENDING","description":"d"}],"metadata":{"current_page":3,"page_size":20,"total_items":41,"total_pages":3}}}`)
	})

	got, err := client.FetchIssues(context.Background(), models.IssuesQueryParams{Page: 3, Limit: 20, SortBy: "amount", SortDir: "asc"})
	require.NoError(t, err)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, models.StatusPending, got.Transactions[0].Status)
	assert.Equal(t, 41, got.Metadata.TotalItems)
}

func TestUploadFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, "statement.csv", header.Filename)
		assert.Equal(t, "a,b,c\n", string(content))
		_, _ = io.WriteString(w, `{"status":true,"message":"File uploaded successfully"}`)
	})

	msg, err := client.UploadFile(context.Background(), "statement.csv", []byte("a,b,c\n"))
	require.NoError(t, err)
	assert.Equal(t, "File uploaded successfully", msg)
}

func TestUploadFileFailureCarriesServerMessage(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status":false,"message":"invalid csv on line 3"}`)
	})

	_, err := client.UploadFile(context.Background(), "bad.csv", []byte("x"))
	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid csv on line 3", err.Error())
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "no retries")
}

func TestUploadFileStatusFalseOn200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":false,"message":"duplicate statement"}`)
	})

	_, err := client.UploadFile(context.Background(), "dup.csv", []byte("x"))
	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "duplicate statement", appErr.Message)
}

func TestValidationError(t *testing.T) {
	assert.Equal(t, "file: is required", (&ValidationError{Field: "file", Message: "is required"}).Error())
	assert.Equal(t, "bad", (&ValidationError{Message: "bad"}).Error())
}

func TestBaseURLIsNormalized(t *testing.T) {
	client := NewStatementClient("http://statements.internal:9090/", http.DefaultClient)
	assert.Equal(t, "http://statements.internal:9090", client.BaseURL())
}

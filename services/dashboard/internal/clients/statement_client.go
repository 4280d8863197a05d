package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"statementviewer/services/dashboard/internal/models"
)

const uploadField = "file"

var errMissingData = errors.New("envelope has no data")

// StatementClient talks to the statement API. Every call is a single attempt.
type StatementClient struct {
	base *BaseClient
}

// NewStatementClient returns client.
func NewStatementClient(baseURL string, httpClient HTTPDoer) *StatementClient {
	return &StatementClient{base: NewBaseClient(baseURL, httpClient)}
}

// BaseURL returns the statement API root requests are sent to.
func (c *StatementClient) BaseURL() string {
	return c.base.BaseURL()
}

// FetchBalance handles GET /balance.
func (c *StatementClient) FetchBalance(ctx context.Context) (models.BalanceData, error) {
	data, err := get[models.BalanceData](ctx, c.base, "fetch balance", "/balance")
	if err != nil {
		return models.BalanceData{}, err
	}
	return *data, nil
}

// FetchIssues handles GET /issues with all four paging fields.
func (c *StatementClient) FetchIssues(ctx context.Context, params models.IssuesQueryParams) (models.IssuesData, error) {
	data, err := get[models.IssuesData](ctx, c.base, "fetch issues", "/issues?"+params.Values().Encode())
	if err != nil {
		return models.IssuesData{}, err
	}
	return *data, nil
}

// UploadFile posts content as the multipart "file" field and returns the
// server's message.
func (c *StatementClient) UploadFile(ctx context.Context, filename string, content []byte) (string, error) {
	const op = "upload file"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(uploadField, filename)
	if err != nil {
		return "", fmt.Errorf("%s: build form: %w", op, err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("%s: build form: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%s: build form: %w", op, err)
	}

	status, body, err := c.base.Do(ctx, http.MethodPost, "/upload", buf.Bytes(), map[string]string{
		"Content-Type": mw.FormDataContentType(),
	})
	if err != nil {
		return "", &NetworkError{Op: op, StatusCode: status, Err: err}
	}

	var env models.Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return "", &NetworkError{Op: op, StatusCode: status, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if !isSuccess(status) || !env.Status {
		return "", &ApplicationError{Op: op, StatusCode: status, Message: env.Message}
	}
	return env.Message, nil
}

func get[T any](ctx context.Context, base *BaseClient, op, path string) (*T, error) {
	status, body, err := base.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, &NetworkError{Op: op, StatusCode: status, Err: err}
	}
	if !isSuccess(status) {
		return nil, &NetworkError{Op: op, StatusCode: status}
	}

	var env models.Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &NetworkError{Op: op, StatusCode: status, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if !env.Status || env.Data == nil {
		msg := env.Message
		if env.Status && msg == "" {
			msg = errMissingData.Error()
		}
		return nil, &ApplicationError{Op: op, StatusCode: status, Message: msg}
	}
	return env.Data, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

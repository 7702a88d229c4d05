package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultMaxResponseBytes caps the payload read from the export function.
const DefaultMaxResponseBytes int64 = 32 << 20

// RemoteExporter calls the hosted export function, which renders both
// formats.
type RemoteExporter struct {
	url      string
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

func NewRemoteExporter(url string, timeout time.Duration, logger *slog.Logger) *RemoteExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteExporter{
		url: url,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		maxBytes: DefaultMaxResponseBytes,
		logger:   logger,
	}
}

// WithMaxResponseBytes overrides the response size cap.
func (e *RemoteExporter) WithMaxResponseBytes(n int64) *RemoteExporter {
	if n > 0 {
		e.maxBytes = n
	}
	return e
}

type remoteRequest struct {
	ReportType ReportType `json:"report_type"`
	Format     Format     `json:"format"`
	StartDate  *string    `json:"start_date,omitempty"`
	EndDate    *string    `json:"end_date,omitempty"`
	AccountID  *string    `json:"account_id,omitempty"`
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

func (e *RemoteExporter) Export(ctx context.Context, req Request) (*Payload, error) {
	body, err := json.Marshal(remoteRequest{
		ReportType: req.Type,
		Format:     req.Format,
		StartDate:  dateString(req.From),
		EndDate:    dateString(req.To),
		AccountID:  req.AccountID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode export request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build export request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrExportFailed, err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: response larger than %d bytes", ErrExportFailed, e.maxBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := string(data)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrExportFailed, resp.StatusCode, excerpt)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = req.Format.ContentType()
	}

	e.logger.Info("report exported", "report", string(req.Type), "format", string(req.Format), "bytes", len(data))

	return &Payload{
		Filename:    req.Filename(),
		ContentType: contentType,
		Data:        data,
	}, nil
}

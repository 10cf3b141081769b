package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"seopilot/internal/config"
	apierrors "seopilot/internal/errors"
	"seopilot/internal/infrastructure"
	"seopilot/pkg/contracts/domain"
)

// SLM actions
const (
	ActionActivate   = "slm_activate"
	ActionCheck      = "slm_check"
	ActionDeactivate = "slm_deactivate"
)

const (
	resultSuccess = "success"
	resultError   = "error"

	limitReachedPhrase = "maximum allowable domains"
	expiredPhrase      = "expired"

	maxResponseBytes = 1 << 20
)

// slmResponse is the reply shape of the license server
type slmResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

// Client calls the remote license server and persists the outcome
type Client struct {
	cfg        config.LicenseConfig
	httpClient *http.Client
	repo       *Repository
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *infrastructure.BusinessMetrics
}

// NewClient creates a license client. TLS verification uses the system roots.
func NewClient(cfg config.LicenseConfig, repo *Repository, logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		repo:       repo,
		logger:     logger.With(slog.String("component", "license_client")),
		tracer:     tracer,
		metrics:    metrics,
	}
}

// Activate registers key for this site and stores the classified status.
// The returned error is non-nil only when the record could not be persisted.
func (c *Client) Activate(ctx context.Context, key string) (domain.LicenseRecord, error) {
	ctx, span := c.tracer.Start(ctx, "license.activate")
	defer span.End()

	start := time.Now()
	resp, err := c.post(ctx, ActionActivate, key, c.cfg.ActivateTimeout)
	status := classifyActivation(resp, err)
	logOperation(ctx, c.logger, ActionActivate, key, string(status), start, err)
	c.record(ctx, ActionActivate, status, start)

	if err := c.repo.SaveKey(ctx, key); err != nil {
		return domain.LicenseRecord{}, apierrors.Internal(err)
	}
	if err := c.repo.SaveStatus(ctx, status); err != nil {
		return domain.LicenseRecord{}, apierrors.Internal(err)
	}

	rec, err := c.repo.Record(ctx)
	if err != nil {
		return domain.LicenseRecord{}, apierrors.Internal(err)
	}
	return rec, nil
}

// Check asks the server for the current state of key and adopts its result
// verbatim. A transport failure leaves the stored status untouched and is
// returned so callers can report it.
func (c *Client) Check(ctx context.Context, key string) (domain.LicenseRecord, error) {
	ctx, span := c.tracer.Start(ctx, "license.check")
	defer span.End()

	start := time.Now()
	resp, err := c.post(ctx, ActionCheck, key, c.cfg.CheckTimeout)
	if err == nil && resp.Result == "" {
		err = apierrors.RemoteProtocol(errors.New("response has no result field"))
	}

	var status domain.LicenseStatus
	switch {
	case apierrors.Is(err, apierrors.KindTransport):
		prev, rerr := c.repo.Status(ctx)
		if rerr != nil {
			return domain.LicenseRecord{}, apierrors.Internal(rerr)
		}
		logOperation(ctx, c.logger, ActionCheck, key, string(prev), start, err)
		c.record(ctx, ActionCheck, prev, start)
		rec, rerr := c.repo.Record(ctx)
		if rerr != nil {
			return domain.LicenseRecord{}, apierrors.Internal(rerr)
		}
		return rec, err
	case err != nil:
		status = domain.LicenseStatusInvalid
	default:
		status = domain.LicenseStatus(resp.Result)
	}

	logOperation(ctx, c.logger, ActionCheck, key, string(status), start, err)
	c.record(ctx, ActionCheck, status, start)

	if err := c.repo.SaveStatus(ctx, status); err != nil {
		return domain.LicenseRecord{}, apierrors.Internal(err)
	}
	rec, rerr := c.repo.Record(ctx)
	if rerr != nil {
		return domain.LicenseRecord{}, apierrors.Internal(rerr)
	}
	return rec, nil
}

// Deactivate releases key for this site. The outcome is ignored and the local
// record is left in place.
func (c *Client) Deactivate(ctx context.Context, key string) {
	ctx, span := c.tracer.Start(ctx, "license.deactivate")
	defer span.End()

	start := time.Now()
	_, err := c.post(ctx, ActionDeactivate, key, c.cfg.CheckTimeout)
	c.record(ctx, ActionDeactivate, "", start)
	if err != nil {
		c.logger.DebugContext(ctx, "Deactivation request failed",
			slog.String("license_key", MaskKey(key)),
			slog.String("error", err.Error()))
		return
	}
	c.logger.InfoContext(ctx, "License deactivated", slog.String("license_key", MaskKey(key)))
}

// classifyActivation maps an activation reply to a status. First match wins.
// Any decoded body is classified, including one without a result field.
func classifyActivation(resp slmResponse, err error) domain.LicenseStatus {
	if err != nil {
		return domain.LicenseStatusInvalid
	}
	msg := strings.ToLower(resp.Message)
	switch {
	case resp.Result == resultError && strings.Contains(msg, limitReachedPhrase):
		return domain.LicenseStatusLimitReached
	case resp.Result == resultSuccess:
		return domain.LicenseStatusSuccess
	case strings.Contains(msg, expiredPhrase):
		return domain.LicenseStatusExpired
	default:
		return domain.LicenseStatusInvalid
	}
}

// post sends one form-encoded SLM request under its own deadline
func (c *Client) post(ctx context.Context, action, key string, timeout time.Duration) (slmResponse, error) {
	var out slmResponse

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL, strings.NewReader(c.form(action, key).Encode()))
	if err != nil {
		return out, apierrors.Transport(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, apierrors.Transport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return out, apierrors.Transport(err)
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, apierrors.RemoteProtocol(fmt.Errorf("status %d: %w", resp.StatusCode, err))
	}
	return out, nil
}

// form builds the request fields shared by every action
func (c *Client) form(action, key string) url.Values {
	domainName := siteHost(c.cfg.SiteURL)
	return url.Values{
		"slm_action":        {action},
		"secret_key":        {c.cfg.SecretKey},
		"license_key":       {key},
		"item_reference":    {c.cfg.ItemReference},
		"url":               {c.cfg.SiteURL},
		"domain_name":       {domainName},
		"registered_domain": {domainName},
	}
}

func (c *Client) record(ctx context.Context, action string, status domain.LicenseStatus, start time.Time) {
	if c.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", string(status)),
	)
	c.metrics.LicenseRequestsTotal.Add(ctx, 1, attrs)
	c.metrics.LicenseRequestDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("action", action)))
}

func siteHost(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Package cbe looks up Belgian enterprises in the public CBE
// (Crossroads Bank for Enterprises) mirror by VAT number.
package cbe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

// New builds a registry client. requestsPerSecond caps outbound calls;
// the public mirror throttles aggressively above ~5 rps.
func New(baseURL string, requestsPerSecond float64, executor *resilience.Executor) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		executor:   executor,
	}
}

type enterpriseDTO struct {
	EnterpriseNumber string `json:"enterprise_number"`
	Denomination     string `json:"denomination"`
	Status           string `json:"status"`
}

func (c *Client) SearchByVAT(ctx context.Context, vatNumber string) (ports.RegistryEntity, error) {
	number := normalizeVATNumber(vatNumber)
	if number == "" {
		return ports.RegistryEntity{}, domain.WrapError(domain.ErrInvalidInput, "registry lookup", errors.New("empty vat number"))
	}

	var entity ports.RegistryEntity
	err := c.executor.Execute(ctx, "cbe_search", func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		found, err := c.fetch(ctx, number)
		if err != nil {
			return err
		}
		entity = found
		return nil
	}, classifyRegistryError)
	if err != nil {
		return ports.RegistryEntity{}, wrapTemporaryIfNeeded("registry lookup", err)
	}
	return entity, nil
}

func (c *Client) fetch(ctx context.Context, number string) (ports.RegistryEntity, error) {
	endpoint := fmt.Sprintf("%s/v1/enterprises/%s", c.baseURL, url.PathEscape(number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.RegistryEntity{}, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.RegistryEntity{}, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ports.RegistryEntity{}, domain.WrapError(domain.ErrCompanyNotFound, "registry lookup", fmt.Errorf("vat %s", number))
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return ports.RegistryEntity{}, &registryStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	var dto enterpriseDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return ports.RegistryEntity{}, fmt.Errorf("decode registry response: %w", err)
	}
	return ports.RegistryEntity{
		VATNumber: "BE" + dto.EnterpriseNumber,
		LegalName: dto.Denomination,
		Active:    strings.EqualFold(dto.Status, "active"),
	}, nil
}

// normalizeVATNumber reduces "BE 0123.456.789" style input to the bare
// ten-digit enterprise number the CBE keys on.
func normalizeVATNumber(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 9 {
		// Old nine-digit numbers get a leading zero.
		digits = "0" + digits
	}
	if len(digits) != 10 {
		return ""
	}
	return digits
}

type registryStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *registryStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("registry status: %s", e.Status)
	}
	return fmt.Sprintf("registry status: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

func classifyRegistryError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if domain.IsKind(err, domain.ErrCompanyNotFound) || domain.IsKind(err, domain.ErrInvalidInput) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var statusErr *registryStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrCompanyNotFound) {
		return err
	}
	class := classifyRegistryError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

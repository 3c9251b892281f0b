// internal/ahjo/client.go
package ahjo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/config"
	stderrors "github.com/City-of-Helsinki/yjdh-sub002/internal/common/errors"
	commonhttp "github.com/City-of-Helsinki/yjdh-sub002/internal/common/http"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
)

// Client is the bearer-authenticated case system API client. Every outbound
// request carries the callback URL header so the upstream knows where to
// deliver its asynchronous responses.
type Client struct {
	baseURL     string
	callbackURL string
	tokens      *TokenManager
	httpClient  *commonhttp.Client
	log         logger.Logger
}

// RequestReceipt is the synchronous acknowledgement of an asynchronous
// operation. The actual outcome arrives later through the callback.
type RequestReceipt struct {
	RequestID string `json:"requestId"`
}

// DecisionDetails is the settled decision content fetched after a
// proposal has been accepted in the case system.
type DecisionDetails struct {
	DecisionMaker   string `json:"decisionMaker"`
	DecisionDate    string `json:"decisionDate"`
	SectionOfTheLaw string `json:"sectionOfTheLaw"`
	DecisionText    string `json:"decisionText"`
}

func NewClient(cfg config.AhjoConfig, tokens *TokenManager, log logger.Logger) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		callbackURL: cfg.CallbackURL,
		tokens:      tokens,
		httpClient:  commonhttp.NewClient(timeout),
		log:         log,
	}
}

// OpenCase asks the case system to open a case for the application. The
// case id arrives through the callback, not in this response.
func (c *Client) OpenCase(ctx context.Context, payload *OpenCasePayload) (*RequestReceipt, error) {
	return c.post(ctx, "/cases", payload)
}

// SendDecisionProposal submits the rendered decision proposal for the case.
func (c *Client) SendDecisionProposal(ctx context.Context, caseID string, payload *DecisionProposalPayload) (*RequestReceipt, error) {
	return c.post(ctx, fmt.Sprintf("/decisions/%s", caseID), payload)
}

// UpdateApplication pushes changed application content to an open case.
func (c *Client) UpdateApplication(ctx context.Context, caseID string, payload *UpdateRecordsPayload) (*RequestReceipt, error) {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/cases/%s/records", caseID), payload)
}

// AddRecords attaches newly received attachments to an open case.
func (c *Client) AddRecords(ctx context.Context, caseID string, payload *UpdateRecordsPayload) (*RequestReceipt, error) {
	return c.post(ctx, fmt.Sprintf("/cases/%s/records", caseID), payload)
}

// DeleteApplication requests removal of the case at the end of retention.
func (c *Client) DeleteApplication(ctx context.Context, caseID string) (*RequestReceipt, error) {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cases/%s", caseID), nil)
}

// GetDecisionDetails fetches the settled decision content for the case.
// Unlike the write operations this is synchronous.
func (c *Client) GetDecisionDetails(ctx context.Context, caseID string) (*DecisionDetails, error) {
	body, err := c.get(ctx, fmt.Sprintf("/decisions/%s", caseID))
	if err != nil {
		return nil, err
	}
	var details DecisionDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, stderrors.NewCaseSystemAPIError(http.StatusOK, "undecodable decision details: "+err.Error())
	}
	return &details, nil
}

// ListDecisionMakers fetches the current decision maker roster.
func (c *Client) ListDecisionMakers(ctx context.Context) ([]models.LookupEntry, error) {
	return c.listLookup(ctx, "/agents/decisionmakers")
}

// ListSigners fetches the current signer roster.
func (c *Client) ListSigners(ctx context.Context) ([]models.LookupEntry, error) {
	return c.listLookup(ctx, "/agents/signers")
}

func (c *Client) listLookup(ctx context.Context, path string) ([]models.LookupEntry, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var entries []models.LookupEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, stderrors.NewCaseSystemAPIError(http.StatusOK, "undecodable lookup response: "+err.Error())
	}
	return entries, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*RequestReceipt, error) {
	return c.do(ctx, http.MethodPost, path, payload)
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*RequestReceipt, error) {
	body, err := c.roundTrip(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	var receipt RequestReceipt
	if len(body) > 0 {
		if err := json.Unmarshal(body, &receipt); err != nil {
			return nil, stderrors.NewCaseSystemAPIError(http.StatusOK, "undecodable receipt: "+err.Error())
		}
	}
	return &receipt, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.roundTrip(ctx, http.MethodGet, path, nil)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	token, err := c.tokens.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request payload: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, stderrors.NewTransportError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.callbackURL != "" {
		req.Header.Set("X-Callback-Url", c.callbackURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, stderrors.NewTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, stderrors.NewTransportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("case system request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		})
		if resp.StatusCode == http.StatusUnprocessableEntity {
			return nil, stderrors.NewCaseSystemValidationError(string(respBody))
		}
		return nil, stderrors.NewCaseSystemAPIError(resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

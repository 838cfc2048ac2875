// Package client wraps the REST auth API shared by the customer portal and
// the intranet. It is the only part of the session flow that performs
// network I/O; credentials travel as cookies held in the client's jar.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/domain"
)

// Portal selects which application a client speaks for.
type Portal int

const (
	// PortalCustomer is the customer-facing application.
	PortalCustomer Portal = iota
	// PortalIntranet is the staff application.
	PortalIntranet
)

func (p Portal) String() string {
	if p == PortalIntranet {
		return "intranet"
	}
	return "customer"
}

const (
	opLogin           = "login"
	opLogout          = "logout"
	opMe              = "me"
	opRefresh         = "refresh"
	opExchange        = "exchange code"
	opDiagnosticInfo  = "diagnostic info"
	opDiagnosticLogin = "diagnostic login"
	opListCustomers   = "list customers"

	msgCustomersOnly = "This portal is for customers only."
)

// Client provides the auth API calls. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiPrefix  string
	portal     Portal
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The client is copied, so later
// options never touch the caller's value; a copy without a cookie jar gets a
// fresh one.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		cp := *c
		client.httpClient = &cp
	}
}

// WithTimeout sets the timeout of the client's own HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithAPIPrefix sets the API prefix. Default is "/api/auth".
func WithAPIPrefix(prefix string) Option {
	return func(client *Client) {
		client.apiPrefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// New creates a client for the given portal.
// baseURL is the auth server address (e.g., "http://localhost:8000").
func New(baseURL string, portal Portal, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiPrefix:  "/api/auth",
		portal:     portal,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		// cookiejar.New only fails on a bad PublicSuffixList.
		jar, _ := cookiejar.New(nil)
		c.httpClient.Jar = jar
	}
	return c
}

// Portal reports which application the client speaks for.
func (c *Client) Portal() Portal {
	return c.portal
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Exchange is the result of redeeming a one-time code.
type Exchange struct {
	Customer domain.Identity `json:"customer"`
	Staff    domain.Identity `json:"staff"`
}

// DiagnosticCode is a freshly minted one-time code and the customer it opens.
type DiagnosticCode struct {
	Code     string          `json:"code"`
	Customer domain.Identity `json:"customer"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User domain.Identity `json:"user"`
}

type staffResponse struct {
	Staff *domain.Identity `json:"staff"`
}

// Login authenticates with username and password. The intranet asks the
// server to require a staff account; the customer portal refuses staff
// accounts itself and drops the cookies the server just set.
func (c *Client) Login(ctx context.Context, username, password string) (domain.Identity, error) {
	path := "/login/"
	if c.portal == PortalIntranet {
		path += "?require_staff=true"
	}

	var out loginResponse
	status, detail, err := c.call(ctx, opLogin, http.MethodPost, path, loginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return domain.Identity{}, err
	}
	if !ok(status) {
		return domain.Identity{}, c.fail(opLogin, status, detail, loginKind(status))
	}

	if out.User.ID == 0 {
		return domain.Identity{}, c.incomplete(opLogin, status)
	}
	if c.portal == PortalCustomer && out.User.IsStaff {
		if err := c.Logout(ctx); err != nil {
			c.logger.Warn("logout after staff login on customer portal failed", zap.Error(err))
		}
		return domain.Identity{}, &APIError{Op: opLogin, Status: status, Detail: msgCustomersOnly, Kind: ErrRejected}
	}
	return out.User, nil
}

// Logout ends the session server side. Callers clear local state even when
// this fails.
func (c *Client) Logout(ctx context.Context) error {
	status, detail, err := c.call(ctx, opLogout, http.MethodPost, "/logout/", nil, nil)
	if err != nil {
		return err
	}
	if !ok(status) {
		return c.fail(opLogout, status, detail, ErrTransport)
	}
	return nil
}

// Me returns the identity behind the current cookies, or nil when there is
// no active session.
func (c *Client) Me(ctx context.Context) (*domain.Identity, error) {
	var out *domain.Identity
	status, detail, err := c.call(ctx, opMe, http.MethodGet, "/me/", nil, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized:
		return nil, nil
	case !ok(status):
		return nil, c.fail(opMe, status, detail, ErrTransport)
	case out == nil || out.ID == 0:
		return nil, c.incomplete(opMe, status)
	}
	return out, nil
}

// Refresh rotates the session cookies and reports whether it worked.
func (c *Client) Refresh(ctx context.Context) bool {
	status, _, err := c.call(ctx, opRefresh, http.MethodPost, "/refresh/", nil, nil)
	if err != nil {
		c.logger.Debug("refresh failed", zap.Error(err))
		return false
	}
	return ok(status)
}

// ExchangeCode redeems a one-time diagnostic code for a dual-identity session.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Exchange, error) {
	var out Exchange
	status, detail, err := c.call(ctx, opExchange, http.MethodPost, "/exchange/", map[string]string{"code": code}, &out)
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		return nil, c.fail(opExchange, status, detail, kindForStatus(status, ErrExchangeRejected))
	}
	if out.Customer.ID == 0 || out.Staff.ID == 0 {
		return nil, c.incomplete(opExchange, status)
	}
	return &out, nil
}

// DiagnosticInfo returns the staff member accompanying the current session,
// or nil when the session is not a diagnostic one.
func (c *Client) DiagnosticInfo(ctx context.Context) (*domain.Identity, error) {
	var out staffResponse
	status, detail, err := c.call(ctx, opDiagnosticInfo, http.MethodGet, "/diagnostic-info/", nil, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized, status == http.StatusNotFound:
		return nil, nil
	case !ok(status):
		return nil, c.fail(opDiagnosticInfo, status, detail, ErrTransport)
	}
	return out.Staff, nil
}

// DiagnosticLogin asks for a one-time code opening customerID's account.
// Staff only.
func (c *Client) DiagnosticLogin(ctx context.Context, customerID int64) (*DiagnosticCode, error) {
	var out DiagnosticCode
	body := map[string]int64{"customer_id": customerID}
	status, detail, err := c.call(ctx, opDiagnosticLogin, http.MethodPost, "/diagnostic-login/", body, &out)
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		return nil, c.fail(opDiagnosticLogin, status, detail, staffKind(status))
	}
	return &out, nil
}

// ListCustomers returns every active customer. Staff only.
func (c *Client) ListCustomers(ctx context.Context) ([]domain.Identity, error) {
	var out []domain.Identity
	status, detail, err := c.call(ctx, opListCustomers, http.MethodGet, "/users/", nil, &out)
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		return nil, c.fail(opListCustomers, status, detail, staffKind(status))
	}
	return out, nil
}

// call performs one request. A non-nil error means the request did not
// complete or a 2xx body could not be decoded; any status is returned with
// the backend's detail for the caller to classify.
func (c *Client) call(ctx context.Context, op, method, path string, in, out any) (int, string, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, "", &APIError{Op: op, Kind: ErrTransport, Err: fmt.Errorf("marshal: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL(path), body)
	if err != nil {
		return 0, "", &APIError{Op: op, Kind: ErrTransport, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", &APIError{Op: op, Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", &APIError{Op: op, Status: resp.StatusCode, Kind: ErrTransport, Err: err}
	}
	c.logger.Debug("auth api call",
		zap.String("op", op),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode))

	if !ok(resp.StatusCode) {
		return resp.StatusCode, detailOf(raw), nil
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return 0, "", &APIError{Op: op, Status: resp.StatusCode, Kind: ErrTransport, Err: fmt.Errorf("decode: %w", err)}
		}
	}
	return resp.StatusCode, "", nil
}

func (c *Client) apiURL(path string) string {
	return c.baseURL + c.apiPrefix + path
}

func (c *Client) fail(op string, status int, detail string, kind error) *APIError {
	return &APIError{Op: op, Status: status, Detail: detail, Kind: kind}
}

// incomplete reports a 2xx response whose body lacks the identity the
// operation promises.
func (c *Client) incomplete(op string, status int) *APIError {
	return &APIError{Op: op, Status: status, Kind: ErrTransport, Err: errIncompleteResponse}
}

func detailOf(raw []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Detail
}

func loginKind(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return ErrRejected
	}
	return ErrTransport
}

func staffKind(status int) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ErrRejected
	}
	return ErrTransport
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

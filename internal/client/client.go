// Package client is a typed HTTP client for the finance API. It issues the
// same calls a front end makes: list, get, create, update and delete per
// collection, plus the summary and login.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finance-tracker/internal/financial"
	"finance-tracker/internal/models"
	"finance-tracker/internal/record"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string][]string // set on validation failures
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string

	Expenses *Collection
	Incomes  *Collection
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Expenses = &Collection{client: c, path: "/api/" + models.KindExpense.Collection()}
	c.Incomes = &Collection{client: c, path: "/api/" + models.KindIncome.Collection()}
	return c
}

// Login exchanges credentials for a token and uses it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

// Summary sums incomes and expenses between from and to, both optional.
func (c *Client) Summary(ctx context.Context, from, to *record.Date) (*financial.SummaryResponse, error) {
	q := url.Values{}
	if from != nil {
		q.Set("from", from.String())
	}
	if to != nil {
		q.Set("to", to.String())
	}
	path := "/api/summary"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out financial.SummaryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error  string              `json:"error"`
		Errors map[string][]string `json:"errors"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = body.Error
		apiErr.Fields = body.Errors
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// Collection is one of /api/expenses or /api/incomes.
type Collection struct {
	client *Client
	path   string
}

// ListParams left at zero values use the server defaults.
type ListParams struct {
	PageNumber    int
	PageSize      int
	SortBy        string
	SortDirection string
}

func (p ListParams) query() string {
	q := url.Values{}
	if p.PageNumber > 0 {
		q.Set("pageNumber", strconv.Itoa(p.PageNumber))
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.SortBy != "" {
		q.Set("sortBy", p.SortBy)
	}
	if p.SortDirection != "" {
		q.Set("sortDirection", p.SortDirection)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (col *Collection) List(ctx context.Context, p ListParams) (*record.ListResponse, error) {
	var out record.ListResponse
	if err := col.client.do(ctx, http.MethodGet, col.path+p.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (col *Collection) Get(ctx context.Context, id uint) (*record.Response, error) {
	var out record.Response
	if err := col.client.do(ctx, http.MethodGet, col.itemPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (col *Collection) Create(ctx context.Context, in record.Input) (*record.Response, error) {
	var out record.Response
	if err := col.client.do(ctx, http.MethodPost, col.path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (col *Collection) Update(ctx context.Context, id uint, in record.Input) error {
	err := col.client.do(ctx, http.MethodPut, col.itemPath(id), in, nil)
	return err
}

func (col *Collection) Delete(ctx context.Context, id uint) error {
	err := col.client.do(ctx, http.MethodDelete, col.itemPath(id), nil, nil)
	return err
}

func (col *Collection) itemPath(id uint) string {
	return col.path + "/" + strconv.FormatUint(uint64(id), 10)
}

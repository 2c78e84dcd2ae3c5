// Package client is a Go consumer of the back-office API. It carries the
// authenticated session across calls, applies a default request timeout and
// tears the session down when the server rejects the token.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// DefaultTimeout bounds every request unless the caller's context is shorter.
const DefaultTimeout = 10 * time.Second

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type Admin struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	BearerToken string `json:"bearerToken"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	CategoryID  int64     `json:"category_id"`
	Category    *Category `json:"category,omitempty"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	IsEnabled   bool      `json:"is_enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductPage struct {
	Data        []Product `json:"data"`
	CurrentPage int       `json:"current_page"`
	PerPage     int       `json:"per_page"`
	Total       int64     `json:"total"`
}

type ProductInput struct {
	Name        string `json:"name"`
	CategoryID  int64  `json:"category_id"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	IsEnabled   bool   `json:"is_enabled"`
}

// ProductQuery mirrors the listing parameters. Status is a string so that
// "" means "no filter" while "0" filters for disabled products.
type ProductQuery struct {
	Status     string
	CategoryID int64
	SortKey    string
	SortOrder  string
	Page       int
	PerPage    int
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Data    jsoniter.RawMessage `json:"data"`
	Message string              `json:"message"`
	Code    string              `json:"code"`
}

type Client struct {
	baseURL string
	http    *http.Client
	session *SessionStore
}

func New(baseURL string, session *SessionStore) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		session: session,
	}
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

func (c *Client) Session() *SessionStore {
	return c.session
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		data, err := jsonAPI.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	_ = jsonAPI.Unmarshal(data, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		return c.apiError(resp.StatusCode, &env)
	}
	if out != nil && len(env.Data) > 0 {
		return jsonAPI.Unmarshal(env.Data, out)
	}
	return nil
}

// apiError maps an error response to *APIError. A 401 means the held token
// is no longer valid, so the session is torn down.
func (c *Client) apiError(status int, env *envelope) error {
	if status == http.StatusUnauthorized {
		_ = c.session.Clear()
	}
	apiErr := &APIError{Status: status, Code: env.Code, Message: env.Message}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if len(env.Data) > 0 {
		var details struct {
			Errors map[string][]string `json:"errors"`
		}
		if err := jsonAPI.Unmarshal(env.Data, &details); err == nil {
			apiErr.Fields = details.Errors
		}
	}
	return apiErr
}

// Login authenticates and persists the returned session.
func (c *Client) Login(ctx context.Context, email, password string) (*Admin, error) {
	var data struct {
		User Admin `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", nil, body, &data); err != nil {
		return nil, err
	}
	if err := c.session.Save(Session{User: data.User, Token: data.User.BearerToken}); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// Logout revokes the token server-side and clears the local session.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil, nil)
	if cerr := c.session.Clear(); err == nil {
		err = cerr
	}
	return err
}

// Me fetches the authenticated admin and refreshes the stored session user.
func (c *Client) Me(ctx context.Context) (*Admin, error) {
	var data struct {
		User Admin `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, nil, &data); err != nil {
		return nil, err
	}
	_ = c.session.Save(Session{User: data.User, Token: c.session.Token()})
	return &data.User, nil
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var data struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, nil, &data); err != nil {
		return nil, err
	}
	return data.Categories, nil
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.CategoryID > 0 {
		v.Set("category_id", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.SortKey != "" {
		v.Set("sort_key", q.SortKey)
		if q.SortOrder != "" {
			v.Set("sort_order", q.SortOrder)
		}
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return v
}

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	var data struct {
		Products ProductPage `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/products", q.values(), nil, &data); err != nil {
		return nil, err
	}
	return &data.Products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var data struct {
		Product Product `json:"product"`
	}
	path := "/api/products/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &data); err != nil {
		return nil, err
	}
	return &data.Product, nil
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var data struct {
		Product Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/products", nil, in, &data); err != nil {
		return nil, err
	}
	return &data.Product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	var data struct {
		Product Product `json:"product"`
	}
	path := "/api/products/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPut, path, nil, in, &data); err != nil {
		return nil, err
	}
	return &data.Product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	path := "/api/products/" + strconv.FormatInt(id, 10)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) BulkDeleteProducts(ctx context.Context, ids []int64) error {
	body := map[string][]int64{"ids": ids}
	return c.do(ctx, http.MethodPost, "/api/products/bulk-delete", nil, body, nil)
}

// ExportProducts streams the export file into w.
func (c *Client) ExportProducts(ctx context.Context, q ProductQuery, format string, w io.Writer) error {
	v := q.values()
	if format != "" {
		v.Set("format", format)
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/products/export", v, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var env envelope
		_ = jsonAPI.Unmarshal(data, &env)
		return c.apiError(resp.StatusCode, &env)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

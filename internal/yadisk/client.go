// Package yadisk is a minimal client for the Yandex Disk REST API implementing remote.Storage.
// Requests are authorized with an OAuth token sent as "Authorization: OAuth <token>".
package yadisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/hwuu/diskup/internal/remote"
)

const (
	DefaultBaseURL = "https://cloud-api.yandex.net/v1/disk"
	TokenType      = "OAuth"

	listPageSize = 100
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	// HTTPClient is the base client for API calls; the OAuth transport wraps its Transport.
	HTTPClient *http.Client
	// UploadClient sends file bytes to upload links, which carry their own authorization.
	UploadClient *http.Client
}

// Client talks to the Disk REST API. It is safe for concurrent use.
type Client struct {
	baseURL string
	api     *http.Client
	upload  *http.Client
}

type resourceList struct {
	Items  []resourceItem `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Total  int            `json:"total"`
}

type resourceItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

type resource struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Type     string        `json:"type"`
	Embedded *resourceList `json:"_embedded"`
}

type link struct {
	Href      string `json:"href"`
	Method    string `json:"method"`
	Templated bool   `json:"templated"`
}

// NewClient builds a client for the given token. An empty token is rejected up front with
// remote.ErrNotAuthorized.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("%w: empty OAuth token", remote.ErrNotAuthorized)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	uploadClient := opts.UploadClient
	if uploadClient == nil {
		uploadClient = &http.Client{}
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: TokenType})
	api := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), src)
	api.Timeout = base.Timeout

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		api:     api,
		upload:  uploadClient,
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	return c.baseURL + path + "?" + query.Encode()
}

func (c *Client) do(ctx context.Context, method, endpoint string, out any, okStatus ...int) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if !statusIn(resp.StatusCode, okStatus) {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func statusIn(code int, ok []int) bool {
	for _, c := range ok {
		if c == code {
			return true
		}
	}
	return false
}

// GetMetadata fetches the resource at path with all of its immediate children, following
// the API's pagination.
func (c *Client) GetMetadata(ctx context.Context, path string) (*remote.Resource, error) {
	res := &remote.Resource{Path: path}
	offset := 0

	for {
		query := url.Values{}
		query.Set("path", path)
		query.Set("limit", strconv.Itoa(listPageSize))
		query.Set("offset", strconv.Itoa(offset))

		var page resource
		if err := c.do(ctx, http.MethodGet, c.endpoint("/resources", query), &page, http.StatusOK); err != nil {
			return nil, fmt.Errorf("failed to get metadata for %s: %w", path, err)
		}
		if page.Embedded == nil || len(page.Embedded.Items) == 0 {
			break
		}

		for _, item := range page.Embedded.Items {
			typ := remote.TypeFile
			if item.Type == "dir" {
				typ = remote.TypeDir
			}
			res.Items = append(res.Items, remote.Item{Name: item.Name, Type: typ})
		}

		offset += len(page.Embedded.Items)
		if offset >= page.Embedded.Total {
			break
		}
	}

	return res, nil
}

func (c *Client) CreateDirectory(ctx context.Context, path string) error {
	query := url.Values{}
	query.Set("path", path)
	if err := c.do(ctx, http.MethodPut, c.endpoint("/resources", query), nil, http.StatusCreated); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

func (c *Client) GetUploadLink(ctx context.Context, path string, overwrite bool) (*remote.Link, error) {
	query := url.Values{}
	query.Set("path", path)
	query.Set("overwrite", strconv.FormatBool(overwrite))

	var l link
	if err := c.do(ctx, http.MethodGet, c.endpoint("/resources/upload", query), &l, http.StatusOK); err != nil {
		return nil, fmt.Errorf("failed to get upload link for %s: %w", path, err)
	}

	method := l.Method
	if method == "" {
		method = http.MethodPut
	}
	return &remote.Link{Href: l.Href, Method: method}, nil
}

// Upload streams r to the upload link. size, when non-negative, is sent as Content-Length.
func (c *Client) Upload(ctx context.Context, l *remote.Link, r io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, l.Method, l.Href, r)
	if err != nil {
		return err
	}
	switch {
	case size == 0:
		req.Body = http.NoBody
		req.ContentLength = 0
	case size > 0:
		req.ContentLength = size
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	for k, v := range l.Header {
		req.Header.Set(k, v)
	}

	resp, err := c.upload.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	}
	return fmt.Errorf("upload failed: %w", decodeError(resp))
}

func (c *Client) Close() error {
	c.api.CloseIdleConnections()
	c.upload.CloseIdleConnections()
	return nil
}

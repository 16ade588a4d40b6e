package girder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ResourceClient defines the Girder operations the analysis core consumes.
// This interface is implemented by *Client and can be used for testing.
type ResourceClient interface {
	CurrentUser(ctx context.Context) (User, error)
	LookupResource(ctx context.Context, path string) (Resource, error)
	Item(ctx context.Context, id string) (Item, error)
	CreateFolder(ctx context.Context, parentType, parentID, name string) (Folder, error)
	SearchItems(ctx context.Context, query string) ([]Item, error)
	SubmitExecution(ctx context.Context, taskID string, inputs, outputs map[string]Binding) (Job, error)
	Job(ctx context.Context, id string) (Job, error)
	ListFiles(ctx context.Context, itemID string) ([]File, error)
	DownloadFile(ctx context.Context, fileID string) (string, error)
	DownloadURL(fileID string) string
}

// Ensure Client implements ResourceClient at compile time.
var _ ResourceClient = (*Client)(nil)

// ErrNotFound is returned (wrapped in *APIError) when a resource does not exist.
var ErrNotFound = errors.New("resource not found")

// APIError reports a non-2xx response from the Girder API.
type APIError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.StatusCode)
}

// Unwrap maps 404 responses onto ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client talks to the Girder REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
}

const (
	defaultAPIURL    = "http://localhost:8080/api/v1"
	defaultUserAgent = "arbor/0.1"
	tokenHeader      = "Girder-Token"
	requestTimeout   = 30 * time.Second
)

// NewClient builds a Client rooted at apiURL that authenticates with token.
// An empty token issues anonymous requests.
func NewClient(apiURL, token string) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		token:     strings.TrimSpace(token),
		userAgent: defaultUserAgent,
	}, nil
}

// CurrentUser returns the user owning the session token.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	if err := c.getJSON(ctx, "user/me", nil, &user); err != nil {
		return User{}, err
	}
	if user.ID == "" {
		return User{}, fmt.Errorf("user/me: not authenticated")
	}
	return user, nil
}

// LookupResource resolves a Girder path such as /user/alice/.results.
// Missing paths return an error matching ErrNotFound.
func (c *Client) LookupResource(ctx context.Context, path string) (Resource, error) {
	values := url.Values{}
	values.Set("path", path)
	var res Resource
	err := c.getJSON(ctx, "resource/lookup", values, &res)
	var apiErr *APIError
	// Girder answers 400 rather than 404 for a path that does not resolve.
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return Resource{}, fmt.Errorf("lookup %q: %w", path, ErrNotFound)
	}
	if err != nil {
		return Resource{}, err
	}
	return res, nil
}

// Item fetches a single item by id.
func (c *Client) Item(ctx context.Context, id string) (Item, error) {
	if strings.TrimSpace(id) == "" {
		return Item{}, fmt.Errorf("item id required")
	}
	var item Item
	if err := c.getJSON(ctx, "item/"+id, nil, &item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// CreateFolder creates a folder under the given parent.
func (c *Client) CreateFolder(ctx context.Context, parentType, parentID, name string) (Folder, error) {
	values := url.Values{}
	values.Set("parentType", parentType)
	values.Set("parentId", parentID)
	values.Set("name", name)
	rel := &url.URL{Path: "folder", RawQuery: values.Encode()}
	var folder Folder
	if err := c.doURL(ctx, http.MethodPost, rel, nil, "", &folder); err != nil {
		return Folder{}, err
	}
	return folder, nil
}

// SearchItems runs a prefix search restricted to items.
func (c *Client) SearchItems(ctx context.Context, query string) ([]Item, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("mode", "prefix")
	values.Set("types", `["item"]`)
	var payload SearchResult
	if err := c.getJSON(ctx, "resource/search", values, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// SubmitExecution starts an item task. The input and output specifications
// are sent as JSON strings inside a form-encoded body.
func (c *Client) SubmitExecution(ctx context.Context, taskID string, inputs, outputs map[string]Binding) (Job, error) {
	if strings.TrimSpace(taskID) == "" {
		return Job{}, fmt.Errorf("task id required")
	}
	in, err := json.Marshal(inputs)
	if err != nil {
		return Job{}, fmt.Errorf("encode inputs: %w", err)
	}
	out, err := json.Marshal(outputs)
	if err != nil {
		return Job{}, fmt.Errorf("encode outputs: %w", err)
	}
	form := url.Values{}
	form.Set("inputs", string(in))
	form.Set("outputs", string(out))

	rel := &url.URL{Path: "item_task/" + taskID + "/execution"}
	var job Job
	body := strings.NewReader(form.Encode())
	if err := c.doURL(ctx, http.MethodPost, rel, body, "application/x-www-form-urlencoded", &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Job fetches the current state of a job.
func (c *Client) Job(ctx context.Context, id string) (Job, error) {
	if strings.TrimSpace(id) == "" {
		return Job{}, fmt.Errorf("job id required")
	}
	var job Job
	if err := c.getJSON(ctx, "job/"+id, nil, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// ListFiles returns the files attached to an item.
func (c *Client) ListFiles(ctx context.Context, itemID string) ([]File, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, fmt.Errorf("item id required")
	}
	var files []File
	if err := c.getJSON(ctx, "item/"+itemID+"/files", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// DownloadFile returns the raw contents of a file.
func (c *Client) DownloadFile(ctx context.Context, fileID string) (string, error) {
	if strings.TrimSpace(fileID) == "" {
		return "", fmt.Errorf("file id required")
	}
	rel := &url.URL{Path: "file/" + fileID + "/download"}
	var sb strings.Builder
	if err := c.doURL(ctx, http.MethodGet, rel, nil, "", &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// DownloadURL returns the absolute download URL of a file without fetching it.
func (c *Client) DownloadURL(fileID string) string {
	rel := &url.URL{Path: "file/" + fileID + "/download"}
	return c.baseURL.ResolveReference(rel).String()
}

func (c *Client) getJSON(ctx context.Context, path string, values url.Values, dest any) error {
	rel := &url.URL{Path: path}
	if len(values) > 0 {
		rel.RawQuery = values.Encode()
	}
	return c.doURL(ctx, http.MethodGet, rel, nil, "", dest)
}

// doURL executes a request relative to the API root. A *strings.Builder dest
// receives the raw body; any other non-nil dest is JSON decoded.
func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body io.Reader, contentType string, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &APIError{Path: rel.Path, StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	switch d := dest.(type) {
	case nil:
		return nil
	case *strings.Builder:
		if _, err := io.Copy(d, resp.Body); err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts Girder's {"message": ...} error body when present.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	// Relative references resolve against a directory, so keep a trailing slash.
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// Package forumclient is a Go client for the forum HTTP API together with
// view models that keep a partially loaded discussion in step with the server.
package forumclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/forum"
	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
	"github.com/campusnest/forum/pkg/logging"
	"github.com/campusnest/forum/pkg/replytree"
	"github.com/campusnest/forum/pkg/telemetry"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid request")
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("forum api %d: %s", e.Status, e.Message)
}

// Unwrap lets callers match on the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadRequest:
		return ErrInvalid
	}
	return nil
}

// Client talks to one forum server.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as the bearer identity on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.http.SetAuthToken(token) }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.SetTransport(rt) }
}

// New creates a client for the API rooted at baseURL, e.g.
// "https://campus.example/forum".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15*time.Second).
			SetHeader("Accept", "application/json"),
		logger: logging.WithComponent("forum-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, query map[string]string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "forumclient."+method)
	span.SetAttributes(telemetry.Attr("path", path))
	defer func() { telemetry.EndSpan(span, err) }()

	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr, _ := resp.Error().(*APIError)
		if apiErr == nil {
			apiErr = &APIError{}
		}
		apiErr.Status = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(apiErr.Status)
		}
		c.logger.Debug("Forum API error", zap.String("path", path), zap.Int("status", apiErr.Status))
		return apiErr
	}
	return nil
}

func listParams(query string, page, size int) map[string]string {
	p := map[string]string{"page": strconv.Itoa(page)}
	if query != "" {
		p["q"] = query
	}
	if size > 0 {
		p["pageSize"] = strconv.Itoa(size)
	}
	return p
}

// SearchGroups lists groups whose name contains query.
func (c *Client) SearchGroups(ctx context.Context, query string, page, size int) (storage.Page[models.Group], error) {
	var out storage.Page[models.Group]
	err := c.do(ctx, resty.MethodGet, "/groups", nil, &out, listParams(query, page, size))
	return out, err
}

// MyGroups lists the caller's groups.
func (c *Client) MyGroups(ctx context.Context, query string, page int) ([]models.Group, error) {
	var out []models.Group
	err := c.do(ctx, resty.MethodGet, "/myGroups", nil, &out, listParams(query, page, 0))
	return out, err
}

// GetGroup fetches one group.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	out := &models.Group{}
	if err := c.do(ctx, resty.MethodGet, "/groups/"+groupID, nil, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGroup creates a group owned by the caller.
func (c *Client) CreateGroup(ctx context.Context, name, description string) (*models.Group, error) {
	out := &models.Group{}
	body := map[string]string{"name": name, "description": description}
	if err := c.do(ctx, resty.MethodPost, "/groups", body, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateGroup renames a group.
func (c *Client) UpdateGroup(ctx context.Context, groupID, name, description string) (*models.Group, error) {
	out := &models.Group{}
	body := map[string]string{"name": name, "description": description}
	if err := c.do(ctx, resty.MethodPut, "/group/"+groupID, body, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteGroup removes a group with its posts.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, resty.MethodDelete, "/group/"+groupID, nil, nil, nil)
}

// GroupPosts lists the posts of a group.
func (c *Client) GroupPosts(ctx context.Context, groupID, query string, page, size int) (forum.GroupPosts, error) {
	var out forum.GroupPosts
	err := c.do(ctx, resty.MethodGet, "/group/"+groupID, nil, &out, listParams(query, page, size))
	return out, err
}

// SearchPosts lists posts across groups.
func (c *Client) SearchPosts(ctx context.Context, query string, page, size int) (storage.Page[models.Post], error) {
	var out storage.Page[models.Post]
	err := c.do(ctx, resty.MethodGet, "/posts", nil, &out, listParams(query, page, size))
	return out, err
}

// MyPosts lists the caller's posts.
func (c *Client) MyPosts(ctx context.Context, query string, page int) ([]models.Post, error) {
	var out []models.Post
	err := c.do(ctx, resty.MethodGet, "/myPosts", nil, &out, listParams(query, page, 0))
	return out, err
}

// GetPost fetches a post; the server counts the view.
func (c *Client) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	out := &models.Post{}
	if err := c.do(ctx, resty.MethodGet, "/posts/"+postID, nil, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePost adds a post to a group.
func (c *Client) CreatePost(ctx context.Context, groupID, title, details string) (*models.Post, error) {
	out := &models.Post{}
	body := map[string]string{"title": title, "details": details}
	if err := c.do(ctx, resty.MethodPost, "/group/"+groupID, body, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePost edits a post.
func (c *Client) UpdatePost(ctx context.Context, postID, title, details string) (*models.Post, error) {
	out := &models.Post{}
	body := map[string]string{"title": title, "details": details}
	if err := c.do(ctx, resty.MethodPut, "/post/"+postID, body, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePost removes a post with its discussion.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, resty.MethodDelete, "/post/"+postID, nil, nil, nil)
}

// Replies fetches one page of direct children of parent.
func (c *Client) Replies(ctx context.Context, parent models.Parent, page int) (storage.Page[replytree.Reply], error) {
	var out storage.Page[replytree.Reply]
	err := c.do(ctx, resty.MethodGet, parentPath(parent), nil, &out, listParams("", page, 0))
	return out, err
}

// Reply attaches a comment to parent.
func (c *Client) Reply(ctx context.Context, parent models.Parent, content string) (replytree.Reply, error) {
	var out replytree.Reply
	err := c.do(ctx, resty.MethodPost, parentPath(parent), map[string]string{"content": content}, &out, nil)
	return out, err
}

// UpdateComment edits a comment's text.
func (c *Client) UpdateComment(ctx context.Context, commentID, content string) (*models.Comment, error) {
	out := &models.Comment{}
	if err := c.do(ctx, resty.MethodPut, "/comment/"+commentID, map[string]string{"content": content}, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteComment removes a comment with its replies.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, resty.MethodDelete, "/comment/"+commentID, nil, nil, nil)
}

// Like adds a like to a post or comment and returns the new count.
func (c *Client) Like(ctx context.Context, target models.Target) (int64, error) {
	return c.likes(ctx, resty.MethodPost, target)
}

// Unlike removes a like from a post or comment and returns the new count.
func (c *Client) Unlike(ctx context.Context, target models.Target) (int64, error) {
	return c.likes(ctx, resty.MethodDelete, target)
}

func (c *Client) likes(ctx context.Context, method string, target models.Target) (int64, error) {
	var path string
	switch target.Kind {
	case models.KindPost:
		path = "/likePost/" + target.ID
	case models.KindComment:
		path = "/likeComment/" + target.ID
	default:
		return 0, fmt.Errorf("%w: likes are not tracked on %s", ErrInvalid, target.Kind)
	}
	var out struct {
		Likes int64 `json:"likes"`
	}
	err := c.do(ctx, method, path, nil, &out, nil)
	return out.Likes, err
}

func parentPath(p models.Parent) string {
	if p.Kind() == models.ParentPost {
		return "/post/" + p.ID()
	}
	return "/comment/" + p.ID()
}

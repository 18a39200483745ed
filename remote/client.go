// Package remote implements the HTTP boundary to the document-store backend:
// collection fetches, CRUD mutation calls and the failure taxonomy the
// mutation executor reconciles against.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/c360studio/boardsync/identity"
	"github.com/c360studio/boardsync/model"
)

// API is the remote contract consumed by the session and the mutation
// executor.
type API interface {
	FetchProjects(ctx context.Context) ([]model.Project, error)
	FetchTasks(ctx context.Context, projectID model.EntityID) ([]model.Task, error)

	CreateProject(ctx context.Context, draft ProjectDraft) (model.Project, error)
	UpdateProject(ctx context.Context, id model.EntityID, patch ProjectPatch) (model.Project, error)
	DeleteProject(ctx context.Context, id model.EntityID) error

	CreateTask(ctx context.Context, draft TaskDraft) (model.Task, error)
	UpdateTask(ctx context.Context, id model.EntityID, patch TaskPatch) (model.Task, error)
	UpdateTaskStatus(ctx context.Context, id model.EntityID, status model.CanonicalStatus) (model.Task, error)
	DeleteTask(ctx context.Context, id model.EntityID) error
}

// ProjectDraft is the payload for creating a project.
type ProjectDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Members     []string   `json:"members,omitempty"`
}

// ProjectPatch updates a subset of project fields. Nil means "leave as is".
type ProjectPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Members     *[]string  `json:"members,omitempty"`
}

// TaskDraft is the payload for creating a task.
type TaskDraft struct {
	ProjectID   model.EntityID        `json:"project_id"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Status      model.CanonicalStatus `json:"status,omitempty"`
	Assignee    string                `json:"assignee,omitempty"`
	Priority    model.Priority        `json:"priority,omitempty"`
	DueDate     *time.Time            `json:"due_date,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Subtasks    []model.Subtask       `json:"subtasks,omitempty"`
}

// TaskPatch updates a subset of task fields. Nil means "leave as is".
type TaskPatch struct {
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Status      *model.CanonicalStatus `json:"status,omitempty"`
	Assignee    *string                `json:"assignee,omitempty"`
	Priority    *model.Priority        `json:"priority,omitempty"`
	DueDate     *time.Time             `json:"due_date,omitempty"`
	Tags        *[]string              `json:"tags,omitempty"`
	Subtasks    *[]model.Subtask       `json:"subtasks,omitempty"`
	Starred     *bool                  `json:"starred,omitempty"`
}

// Client talks to the backend over HTTP with a bearer credential.
type Client struct {
	baseURL  string
	http     *http.Client
	identity identity.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a remote API client.
func NewClient(baseURL string, ident identity.Provider, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{},
		identity: ident,
		timeout:  10 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is the backend's JSON error body.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do issues one authenticated request and decodes the response into out
// (when out is non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return NewError(ClassValidation, op, fmt.Sprintf("encode request: %v", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return NewError(ClassValidation, op, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.identity.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return NewError(ClassNetwork, op, "request timed out")
		}
		return NewError(ClassNetwork, op, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		remoteErr := &Error{Class: classFromStatus(resp.StatusCode), Op: op, Status: resp.StatusCode}
		var errBody apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil {
			remoteErr.Message = errBody.Message
			if remoteErr.Message == "" {
				remoteErr.Message = errBody.Error
			}
		}
		c.logger.Debug("remote call failed",
			slog.String("op", op),
			slog.Int("status", resp.StatusCode),
			slog.String("class", string(remoteErr.Class)))
		return remoteErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewError(ClassServer, op, fmt.Sprintf("decode response: %v", err))
	}
	return nil
}

// FetchProjects retrieves the projects visible to the current user.
func (c *Client) FetchProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := c.do(ctx, "fetch projects", http.MethodGet, "/api/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// FetchTasks retrieves all tasks for a project.
func (c *Client) FetchTasks(ctx context.Context, projectID model.EntityID) ([]model.Task, error) {
	var tasks []model.Task
	path := "/api/projects/" + url.PathEscape(projectID.String()) + "/tasks"
	if err := c.do(ctx, "fetch tasks", http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateProject creates a project and returns the authoritative entity.
func (c *Client) CreateProject(ctx context.Context, draft ProjectDraft) (model.Project, error) {
	var p model.Project
	err := c.do(ctx, "create project", http.MethodPost, "/api/projects", draft, &p)
	return p, err
}

// UpdateProject patches a project and returns the authoritative entity.
func (c *Client) UpdateProject(ctx context.Context, id model.EntityID, patch ProjectPatch) (model.Project, error) {
	var p model.Project
	path := "/api/projects/" + url.PathEscape(id.String())
	err := c.do(ctx, "update project", http.MethodPatch, path, patch, &p)
	return p, err
}

// DeleteProject deletes a project. Owner-only; the backend answers 403 for
// anyone else.
func (c *Client) DeleteProject(ctx context.Context, id model.EntityID) error {
	path := "/api/projects/" + url.PathEscape(id.String())
	return c.do(ctx, "delete project", http.MethodDelete, path, nil, nil)
}

// CreateTask creates a task and returns the authoritative entity.
func (c *Client) CreateTask(ctx context.Context, draft TaskDraft) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, "create task", http.MethodPost, "/api/tasks", draft, &t)
	return t, err
}

// UpdateTask patches a task and returns the authoritative entity.
func (c *Client) UpdateTask(ctx context.Context, id model.EntityID, patch TaskPatch) (model.Task, error) {
	var t model.Task
	path := "/api/tasks/" + url.PathEscape(id.String())
	err := c.do(ctx, "update task", http.MethodPatch, path, patch, &t)
	return t, err
}

// UpdateTaskStatus moves a task to another board column.
func (c *Client) UpdateTaskStatus(ctx context.Context, id model.EntityID, status model.CanonicalStatus) (model.Task, error) {
	var t model.Task
	path := "/api/tasks/" + url.PathEscape(id.String()) + "/status"
	body := struct {
		Status model.CanonicalStatus `json:"status"`
	}{Status: status}
	err := c.do(ctx, "update task status", http.MethodPut, path, body, &t)
	return t, err
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id model.EntityID) error {
	path := "/api/tasks/" + url.PathEscape(id.String())
	return c.do(ctx, "delete task", http.MethodDelete, path, nil, nil)
}

var _ API = (*Client)(nil)

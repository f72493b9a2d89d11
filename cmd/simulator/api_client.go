package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// Response types matching backend

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type Task struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Priority string  `json:"priority"`
	Status   string  `json:"status"`
	DueDate  *string `json:"due_date"`
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name"`
}

type TaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	Status      string  `json:"status,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	UserID      *string `json:"user_id,omitempty"`
}

type TaskStats struct {
	Total   int64 `json:"total"`
	Overdue int64 `json:"overdue"`
}

// Register creates a new account. A 409 means the email already exists.
func (c *APIClient) Register(name, email, password, role string) error {
	body := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
		"role":     role,
	}
	return c.do(http.MethodPost, "/auth/register", body, "", nil)
}

// Login returns a bearer token for the account
func (c *APIClient) Login(email, password string) (*LoginResponse, error) {
	var result LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(http.MethodPost, "/auth/login", body, "", &result); err != nil {
		return nil, fmt.Errorf("login %s: %w", email, err)
	}
	return &result, nil
}

// EnsureUser registers the account if needed and logs in
func (c *APIClient) EnsureUser(name, email, password, role string) (*LoginResponse, error) {
	if err := c.Register(name, email, password, role); err != nil && !IsStatus(err, http.StatusConflict) {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}
	return c.Login(email, password)
}

func (c *APIClient) CreateTask(token string, input TaskInput) (string, error) {
	var result struct {
		TaskID string `json:"taskId"`
	}
	if err := c.do(http.MethodPost, "/tasks", input, token, &result); err != nil {
		return "", err
	}
	return result.TaskID, nil
}

func (c *APIClient) UpdateTask(token, id string, input TaskInput) error {
	return c.do(http.MethodPut, "/tasks/"+id, input, token, nil)
}

func (c *APIClient) DeleteTask(token, id string) error {
	return c.do(http.MethodDelete, "/tasks/"+id, nil, token, nil)
}

func (c *APIClient) ListTasks(token string) ([]Task, error) {
	var tasks []Task
	if err := c.do(http.MethodGet, "/tasks", nil, token, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *APIClient) Stats(token string) (*TaskStats, error) {
	var stats TaskStats
	if err := c.do(http.MethodGet, "/tasks/stats", nil, token, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// HTTP helpers

func (c *APIClient) do(method, path string, body interface{}, token string, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &StatusError{Status: resp.StatusCode, Body: string(bodyBytes)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dom/taskflow/internal/api/middleware"
	"github.com/dom/taskflow/internal/domain"
	"github.com/dom/taskflow/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TaskHandler struct {
	responder
	taskService *service.TaskService
}

func NewTaskHandler(taskService *service.TaskService, log logrus.FieldLogger, development bool) *TaskHandler {
	return &TaskHandler{
		responder:   responder{log: log, development: development},
		taskService: taskService,
	}
}

type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=255"`
	Description *string `json:"description"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      string  `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	DueDate     *string `json:"due_date" validate:"omitempty,isodate"`
	UserID      *string `json:"user_id" validate:"omitempty,uuid"`
}

func (r *CreateTaskRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	trimPtr(r.DueDate)
	trimPtr(r.UserID)
	if r.DueDate != nil && *r.DueDate == "" {
		r.DueDate = nil
	}
	if r.UserID != nil && *r.UserID == "" {
		r.UserID = nil
	}
}

type UpdateTaskRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=255"`
	Description *string `json:"description"`
	Priority    string  `json:"priority" validate:"required,oneof=low medium high"`
	Status      string  `json:"status" validate:"required,oneof=pending in-progress completed"`
	DueDate     *string `json:"due_date" validate:"omitempty,isodate"`
}

func (r *UpdateTaskRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	trimPtr(r.DueDate)
	if r.DueDate != nil && *r.DueDate == "" {
		r.DueDate = nil
	}
}

type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	DueDate     *string   `json:"due_date"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateTaskResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"taskId"`
}

func toTaskResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		UserID:      t.OwnerID.String(),
		UserName:    t.OwnerName(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		due := time.Time(*t.DueDate).Format(dateLayout)
		resp.DueDate = &due
	}
	return resp
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	filter, err := parseTaskFilter(r)
	if err != nil {
		h.handleError(w, r, err, "Server error while fetching tasks")
		return
	}

	tasks, err := h.taskService.List(r.Context(), claims, filter)
	if err != nil {
		h.handleError(w, r, err, "Server error while fetching tasks")
		return
	}

	resp := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	stats, err := h.taskService.Stats(r.Context(), claims)
	if err != nil {
		h.handleError(w, r, err, "Server error while fetching task statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), claims, id)
	if err != nil {
		h.taskError(w, r, err, "Server error while fetching task")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	var req CreateTaskRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.handleError(w, r, err, "Server error while creating task")
		return
	}

	input := service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.Priority(req.Priority),
		Status:      domain.TaskStatus(req.Status),
	}
	if req.DueDate != nil {
		due, _ := parseISODate(*req.DueDate)
		input.DueDate = &due
	}
	if req.UserID != nil {
		owner := uuid.MustParse(*req.UserID)
		input.OwnerID = &owner
	}

	task, err := h.taskService.Create(r.Context(), claims, input)
	if err != nil {
		h.handleError(w, r, err, "Server error while creating task")
		return
	}

	writeJSON(w, http.StatusCreated, CreateTaskResponse{
		Message: "Task created successfully",
		TaskID:  task.ID.String(),
	})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.handleError(w, r, err, "Server error while updating task")
		return
	}

	input := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.Priority(req.Priority),
		Status:      domain.TaskStatus(req.Status),
	}
	if req.DueDate != nil {
		due, _ := parseISODate(*req.DueDate)
		input.DueDate = &due
	}

	if _, err := h.taskService.Update(r.Context(), claims, id, input); err != nil {
		h.taskError(w, r, err, "Server error while updating task")
		return
	}
	writeMessage(w, http.StatusOK, "Task updated successfully")
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), claims, id); err != nil {
		h.taskError(w, r, err, "Server error while deleting task")
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted successfully")
}

// taskID parses the {id} URL parameter. A malformed id is answered with 400.
func (h *TaskHandler) taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Errors:  []FieldError{{Field: "id", Message: "The field 'id' must be a valid UUID."}},
		})
		return uuid.Nil, false
	}
	return id, true
}

func (h *TaskHandler) taskError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(w, "Task")
	case errors.Is(err, domain.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Not authorized to access this task")
	default:
		h.handleError(w, r, err, fallback)
	}
}

type taskQuery struct {
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status   string `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	UserID   string `json:"user_id" validate:"omitempty,uuid"`
}

func parseTaskFilter(r *http.Request) (domain.TaskFilter, error) {
	q := r.URL.Query()
	query := taskQuery{
		Priority: strings.TrimSpace(q.Get("priority")),
		Status:   strings.TrimSpace(q.Get("status")),
		UserID:   strings.TrimSpace(q.Get("user_id")),
	}
	if err := validateStruct(&query); err != nil {
		return domain.TaskFilter{}, err
	}

	filter := domain.TaskFilter{
		Priority: domain.Priority(query.Priority),
		Status:   domain.TaskStatus(query.Status),
		Search:   q.Get("search"),
	}
	if query.UserID != "" {
		owner := uuid.MustParse(query.UserID)
		filter.OwnerID = &owner
	}
	return filter, nil
}

// Package service wraps the REST endpoints, one type per resource. Nothing is
// cached or retried; errors come back exactly as the api client produced them.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"teamboard-cli/internal/api"
	"teamboard-cli/internal/model"
)

// Services bundles every resource service over one client.
type Services struct {
	Users         *Users
	Teams         *Teams
	Projects      *Projects
	Boards        *Boards
	Tasks         *Tasks
	Messages      *Messages
	Fields        *Fields
	Dependencies  *Dependencies
	Time          *Time
	Permissions   *Permissions
	Notifications *Notifications
	Workflows     *Workflows
}

func New(c *api.Client) *Services {
	return &Services{
		Users:         &Users{c: c},
		Teams:         &Teams{c: c},
		Projects:      &Projects{c: c},
		Boards:        &Boards{c: c},
		Tasks:         &Tasks{c: c},
		Messages:      &Messages{c: c},
		Fields:        &Fields{c: c},
		Dependencies:  &Dependencies{c: c},
		Time:          &Time{c: c},
		Permissions:   &Permissions{c: c},
		Notifications: &Notifications{c: c},
		Workflows:     &Workflows{c: c},
	}
}

func idPath(format string, ids ...int64) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf(format, args...)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func get[T any](ctx context.Context, c *api.Client, path string, q url.Values) (T, error) {
	var out T
	err := c.Get(ctx, path, q, &out)
	return out, err
}

func post[T any](ctx context.Context, c *api.Client, path string, body any) (T, error) {
	var out T
	err := c.Post(ctx, path, body, &out)
	return out, err
}

func put[T any](ctx context.Context, c *api.Client, path string, body any) (T, error) {
	var out T
	err := c.Put(ctx, path, body, &out)
	return out, err
}

type Users struct{ c *api.Client }

func (s *Users) List(ctx context.Context) ([]model.User, error) {
	return get[[]model.User](ctx, s.c, "/api/users", nil)
}

func (s *Users) Me(ctx context.Context) (model.User, error) {
	return get[model.User](ctx, s.c, "/api/users/me", nil)
}

func (s *Users) Get(ctx context.Context, id int64) (model.User, error) {
	return get[model.User](ctx, s.c, idPath("/api/users/%d", id), nil)
}

type UserUpdate struct {
	FullName string     `json:"full_name,omitempty"`
	Email    string     `json:"email,omitempty"`
	Role     model.Role `json:"role,omitempty"`
}

func (s *Users) Update(ctx context.Context, id int64, in UserUpdate) (model.User, error) {
	return put[model.User](ctx, s.c, idPath("/api/users/%d", id), in)
}

func (s *Users) Search(ctx context.Context, q string) ([]model.User, error) {
	return get[[]model.User](ctx, s.c, "/api/users/search", url.Values{"q": {q}})
}

type Teams struct{ c *api.Client }

type TeamInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ManagerID   *int64 `json:"manager_id,omitempty"`
}

func (s *Teams) List(ctx context.Context) ([]model.Team, error) {
	return get[[]model.Team](ctx, s.c, "/api/teams", nil)
}

func (s *Teams) Discover(ctx context.Context) ([]model.Team, error) {
	return get[[]model.Team](ctx, s.c, "/api/teams/discover", nil)
}

func (s *Teams) Get(ctx context.Context, id int64) (model.Team, error) {
	return get[model.Team](ctx, s.c, idPath("/api/teams/%d", id), nil)
}

func (s *Teams) Create(ctx context.Context, in TeamInput) (model.Team, error) {
	return post[model.Team](ctx, s.c, "/api/teams", in)
}

func (s *Teams) Update(ctx context.Context, id int64, in TeamInput) (model.Team, error) {
	return put[model.Team](ctx, s.c, idPath("/api/teams/%d", id), in)
}

func (s *Teams) Delete(ctx context.Context, id int64) error {
	return s.c.Delete(ctx, idPath("/api/teams/%d", id), nil)
}

func (s *Teams) Members(ctx context.Context, id int64) ([]model.TeamMember, error) {
	return get[[]model.TeamMember](ctx, s.c, idPath("/api/teams/%d/members", id), nil)
}

func (s *Teams) AddMember(ctx context.Context, teamID, userID int64, role model.Role) (model.TeamMember, error) {
	body := map[string]any{"user_id": userID, "role": role}
	return post[model.TeamMember](ctx, s.c, idPath("/api/teams/%d/members", teamID), body)
}

func (s *Teams) RemoveMember(ctx context.Context, teamID, userID int64) error {
	return s.c.Delete(ctx, idPath("/api/teams/%d/members/%d", teamID, userID), nil)
}

func (s *Teams) RequestJoin(ctx context.Context, id int64) (model.Team, error) {
	return post[model.Team](ctx, s.c, idPath("/api/teams/%d/join-requests", id), map[string]any{})
}

func (s *Teams) CancelJoinRequest(ctx context.Context, id int64) error {
	return s.c.Delete(ctx, idPath("/api/teams/%d/join-requests", id), nil)
}

func (s *Teams) AcceptInvitation(ctx context.Context, id int64) (model.Team, error) {
	return post[model.Team](ctx, s.c, idPath("/api/teams/%d/invitations/accept", id), map[string]any{})
}

type Projects struct{ c *api.Client }

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TeamID      *int64 `json:"team_id,omitempty"`
}

func (s *Projects) List(ctx context.Context) ([]model.Project, error) {
	return get[[]model.Project](ctx, s.c, "/api/projects", nil)
}

func (s *Projects) Get(ctx context.Context, id int64) (model.Project, error) {
	return get[model.Project](ctx, s.c, idPath("/api/projects/%d", id), nil)
}

func (s *Projects) Create(ctx context.Context, in ProjectInput) (model.Project, error) {
	return post[model.Project](ctx, s.c, "/api/projects", in)
}

func (s *Projects) Boards(ctx context.Context, id int64) ([]model.Board, error) {
	return get[[]model.Board](ctx, s.c, idPath("/api/projects/%d/boards", id), nil)
}

type Boards struct{ c *api.Client }

type BoardInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ProjectID   *int64 `json:"project_id,omitempty"`
}

// List returns the current user's boards.
func (s *Boards) List(ctx context.Context) ([]model.Board, error) {
	return get[[]model.Board](ctx, s.c, "/api/boards", nil)
}

func (s *Boards) Get(ctx context.Context, id int64) (model.Board, error) {
	return get[model.Board](ctx, s.c, idPath("/api/boards/%d", id), nil)
}

func (s *Boards) Create(ctx context.Context, in BoardInput) (model.Board, error) {
	return post[model.Board](ctx, s.c, "/api/boards", in)
}

func (s *Boards) Delete(ctx context.Context, id int64) error {
	return s.c.Delete(ctx, idPath("/api/boards/%d", id), nil)
}

func (s *Boards) Lists(ctx context.Context, id int64) ([]model.List, error) {
	return get[[]model.List](ctx, s.c, idPath("/api/boards/%d/lists", id), nil)
}

func (s *Boards) CreateList(ctx context.Context, boardID int64, name string, position int) (model.List, error) {
	body := map[string]any{"name": name, "position": position}
	return post[model.List](ctx, s.c, idPath("/api/boards/%d/lists", boardID), body)
}

func (s *Boards) Tasks(ctx context.Context, id int64) ([]model.Task, error) {
	return get[[]model.Task](ctx, s.c, idPath("/api/boards/%d/tasks", id), nil)
}

type Tasks struct{ c *api.Client }

type TaskInput struct {
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Priority    model.TaskPriority `json:"priority,omitempty"`
	Status      model.TaskStatus   `json:"status,omitempty"`
	AssigneeID  *int64             `json:"assignee_id,omitempty"`
	DueDate     string             `json:"due_date,omitempty"`
}

// TaskPatch carries only the fields being changed.
type TaskPatch map[string]any

// List returns tasks, filtered to an assignee when assigneeID is non-zero.
func (s *Tasks) List(ctx context.Context, assigneeID int64) ([]model.Task, error) {
	var q url.Values
	if assigneeID != 0 {
		q = url.Values{"assignee_id": {itoa(assigneeID)}}
	}
	return get[[]model.Task](ctx, s.c, "/api/tasks", q)
}

func (s *Tasks) Get(ctx context.Context, id int64) (model.Task, error) {
	return get[model.Task](ctx, s.c, idPath("/api/tasks/%d", id), nil)
}

func (s *Tasks) Create(ctx context.Context, listID int64, in TaskInput) (model.Task, error) {
	return post[model.Task](ctx, s.c, idPath("/api/lists/%d/tasks", listID), in)
}

func (s *Tasks) Update(ctx context.Context, id int64, patch TaskPatch) (model.Task, error) {
	return put[model.Task](ctx, s.c, idPath("/api/tasks/%d", id), patch)
}

func (s *Tasks) Delete(ctx context.Context, id int64) error {
	return s.c.Delete(ctx, idPath("/api/tasks/%d", id), nil)
}

func (s *Tasks) Comments(ctx context.Context, id int64) ([]model.Comment, error) {
	return get[[]model.Comment](ctx, s.c, idPath("/api/tasks/%d/comments", id), nil)
}

func (s *Tasks) AddComment(ctx context.Context, id int64, body string) (model.Comment, error) {
	return post[model.Comment](ctx, s.c, idPath("/api/tasks/%d/comments", id), map[string]any{"body": body})
}

func (s *Tasks) Activities(ctx context.Context, id int64) ([]model.Activity, error) {
	return get[[]model.Activity](ctx, s.c, idPath("/api/tasks/%d/activities", id), nil)
}

// Board asks the backend directly for the board owning a task. Backends that
// lack the endpoint answer 404 or 405.
func (s *Tasks) Board(ctx context.Context, id int64) (model.Board, error) {
	return get[model.Board](ctx, s.c, idPath("/api/tasks/%d/board", id), nil)
}

type Messages struct{ c *api.Client }

func (s *Messages) Conversations(ctx context.Context) ([]model.Conversation, error) {
	return get[[]model.Conversation](ctx, s.c, "/api/conversations", nil)
}

func (s *Messages) StartConversation(ctx context.Context, title string, participantIDs []int64) (model.Conversation, error) {
	body := map[string]any{"title": title, "participant_ids": participantIDs}
	return post[model.Conversation](ctx, s.c, "/api/conversations", body)
}

func (s *Messages) List(ctx context.Context, conversationID int64) ([]model.Message, error) {
	return get[[]model.Message](ctx, s.c, idPath("/api/conversations/%d/messages", conversationID), nil)
}

func (s *Messages) Send(ctx context.Context, conversationID int64, body string) (model.Message, error) {
	return post[model.Message](ctx, s.c, "/api/messages", map[string]any{"conversation_id": conversationID, "body": body})
}

type Fields struct{ c *api.Client }

func (s *Fields) List(ctx context.Context, entityType string) ([]model.CustomFieldDefinition, error) {
	var q url.Values
	if entityType != "" {
		q = url.Values{"entity_type": {entityType}}
	}
	return get[[]model.CustomFieldDefinition](ctx, s.c, "/api/custom-fields", q)
}

func (s *Fields) Create(ctx context.Context, def model.CustomFieldDefinition) (model.CustomFieldDefinition, error) {
	return post[model.CustomFieldDefinition](ctx, s.c, "/api/custom-fields", def)
}

func (s *Fields) Update(ctx context.Context, id int64, def model.CustomFieldDefinition) (model.CustomFieldDefinition, error) {
	return put[model.CustomFieldDefinition](ctx, s.c, idPath("/api/custom-fields/%d", id), def)
}

func (s *Fields) Delete(ctx context.Context, id int64) error {
	return s.c.Delete(ctx, idPath("/api/custom-fields/%d", id), nil)
}

func (s *Fields) Values(ctx context.Context, entityType string, entityID int64) ([]model.CustomFieldValue, error) {
	q := url.Values{"entity_type": {entityType}, "entity_id": {itoa(entityID)}}
	return get[[]model.CustomFieldValue](ctx, s.c, "/api/custom-fields/values", q)
}

func (s *Fields) SetValue(ctx context.Context, fieldID int64, entityType string, entityID int64, value any) (model.CustomFieldValue, error) {
	body := map[string]any{"entity_type": entityType, "entity_id": entityID, "value": value}
	return put[model.CustomFieldValue](ctx, s.c, idPath("/api/custom-fields/%d/values", fieldID), body)
}

type Dependencies struct{ c *api.Client }

func (s *Dependencies) List(ctx context.Context, taskID int64) ([]model.Dependency, error) {
	return get[[]model.Dependency](ctx, s.c, "/api/dependencies", url.Values{"task_id": {itoa(taskID)}})
}

func (s *Dependencies) Create(ctx context.Context, taskID, dependsOn int64, typ model.DependencyType) (model.Dependency, error) {
	body := model.Dependency{TaskID: taskID, DependsOnTaskID: dependsOn, Type: typ}
	return post[model.Dependency](ctx, s.c, "/api/dependencies", body)
}

func (s *Dependencies) Delete(ctx context.Context, id int64) error {
	return s.c.Delete(ctx, idPath("/api/dependencies/%d", id), nil)
}

// Blocking lists unfinished tasks that block taskID.
func (s *Dependencies) Blocking(ctx context.Context, taskID int64) ([]model.Task, error) {
	return get[[]model.Task](ctx, s.c, "/api/dependencies/blocking", url.Values{"task_id": {itoa(taskID)}})
}

type Notifications struct{ c *api.Client }

func (s *Notifications) List(ctx context.Context) ([]model.Notification, error) {
	return get[[]model.Notification](ctx, s.c, "/api/notifications", nil)
}

func (s *Notifications) MarkRead(ctx context.Context, id int64) error {
	return s.c.Post(ctx, idPath("/api/notifications/%d/read", id), map[string]any{}, nil)
}

func (s *Notifications) MarkAllRead(ctx context.Context) error {
	return s.c.Post(ctx, "/api/notifications/read-all", map[string]any{}, nil)
}

// Unread counts notifications not yet read.
func Unread(ns []model.Notification) int {
	n := 0
	for _, x := range ns {
		if !x.IsRead {
			n++
		}
	}
	return n
}

type Workflows struct{ c *api.Client }

func (s *Workflows) Templates(ctx context.Context) ([]model.WorkflowTemplate, error) {
	return get[[]model.WorkflowTemplate](ctx, s.c, "/api/workflows/templates", nil)
}

func (s *Workflows) Instances(ctx context.Context, templateID int64) ([]model.WorkflowInstance, error) {
	var q url.Values
	if templateID != 0 {
		q = url.Values{"template_id": {itoa(templateID)}}
	}
	return get[[]model.WorkflowInstance](ctx, s.c, "/api/workflows/instances", q)
}

// Package forms holds the create/edit forms behind the modals. A form checks its
// own fields first and only talks to the backend when they pass.
package forms

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"teamboard-cli/internal/model"
	"teamboard-cli/internal/service"
)

// ValidationError maps field names to messages. It is never sent anywhere.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

type checker struct {
	fields map[string]string
}

func (c *checker) fail(field, msg string) {
	if c.fields == nil {
		c.fields = map[string]string{}
	}
	if _, ok := c.fields[field]; !ok {
		c.fields[field] = msg
	}
}

func (c *checker) minLen(field, v string, n int) {
	if utf8.RuneCountInString(strings.TrimSpace(v)) < n {
		if n <= 1 {
			c.fail(field, "is required")
			return
		}
		c.fail(field, fmt.Sprintf("must be at least %d characters", n))
	}
}

func (c *checker) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: c.fields}
}

// Form is one modal's worth of input.
type Form interface {
	Validate() error
	Submit(ctx context.Context, svc *service.Services) (any, error)
	Reset()
}

// Run validates, submits, and on success resets the form and calls reload.
// A reload failure is reported but the created object is still returned.
func Run(ctx context.Context, f Form, svc *service.Services, reload func(context.Context) error) (any, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out, err := f.Submit(ctx, svc)
	if err != nil {
		return nil, err
	}
	f.Reset()
	if reload != nil {
		if err := reload(ctx); err != nil {
			return out, fmt.Errorf("saved, but reload failed: %w", err)
		}
	}
	return out, nil
}

type CreateTeam struct {
	Name        string
	Description string
	ManagerID   *int64
}

func (f *CreateTeam) Validate() error {
	var c checker
	c.minLen("name", f.Name, 2)
	return c.err()
}

func (f *CreateTeam) Submit(ctx context.Context, svc *service.Services) (any, error) {
	return svc.Teams.Create(ctx, service.TeamInput{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		ManagerID:   f.ManagerID,
	})
}

func (f *CreateTeam) Reset() { *f = CreateTeam{} }

type EditTeam struct {
	ID          int64
	Name        string
	Description string
}

func (f *EditTeam) Validate() error {
	var c checker
	if f.ID == 0 {
		c.fail("id", "is required")
	}
	c.minLen("name", f.Name, 2)
	return c.err()
}

func (f *EditTeam) Submit(ctx context.Context, svc *service.Services) (any, error) {
	return svc.Teams.Update(ctx, f.ID, service.TeamInput{Name: strings.TrimSpace(f.Name), Description: strings.TrimSpace(f.Description)})
}

func (f *EditTeam) Reset() { *f = EditTeam{} }

type CreateProject struct {
	Name        string
	Description string
	TeamID      *int64
}

func (f *CreateProject) Validate() error {
	var c checker
	c.minLen("name", f.Name, 1)
	return c.err()
}

func (f *CreateProject) Submit(ctx context.Context, svc *service.Services) (any, error) {
	return svc.Projects.Create(ctx, service.ProjectInput{Name: strings.TrimSpace(f.Name), Description: strings.TrimSpace(f.Description), TeamID: f.TeamID})
}

func (f *CreateProject) Reset() { *f = CreateProject{} }

type CreateBoard struct {
	Name        string
	Description string
	ProjectID   *int64
}

func (f *CreateBoard) Validate() error {
	var c checker
	c.minLen("name", f.Name, 1)
	return c.err()
}

func (f *CreateBoard) Submit(ctx context.Context, svc *service.Services) (any, error) {
	return svc.Boards.Create(ctx, service.BoardInput{Name: strings.TrimSpace(f.Name), Description: strings.TrimSpace(f.Description), ProjectID: f.ProjectID})
}

func (f *CreateBoard) Reset() { *f = CreateBoard{} }

type CreateList struct {
	BoardID  int64
	Name     string
	Position int
}

func (f *CreateList) Validate() error {
	var c checker
	if f.BoardID == 0 {
		c.fail("board", "is required")
	}
	c.minLen("name", f.Name, 1)
	if f.Position < 0 {
		c.fail("position", "must not be negative")
	}
	return c.err()
}

func (f *CreateList) Submit(ctx context.Context, svc *service.Services) (any, error) {
	return svc.Boards.CreateList(ctx, f.BoardID, strings.TrimSpace(f.Name), f.Position)
}

func (f *CreateList) Reset() { *f = CreateList{BoardID: f.BoardID} }

type CreateTask struct {
	ListID      int64
	Title       string
	Description string
	Priority    model.TaskPriority
	AssigneeID  *int64
	DueDate     string
}

var priorities = map[model.TaskPriority]bool{
	model.PriorityLow: true, model.PriorityMedium: true, model.PriorityHigh: true, model.PriorityUrgent: true,
}

func (f *CreateTask) Validate() error {
	var c checker
	if f.ListID == 0 {
		c.fail("list", "is required")
	}
	c.minLen("title", f.Title, 1)
	if f.Priority != "" && !priorities[f.Priority] {
		c.fail("priority", "must be low, medium, high or urgent")
	}
	return c.err()
}

func (f *CreateTask) Submit(ctx context.Context, svc *service.Services) (any, error) {
	return svc.Tasks.Create(ctx, f.ListID, service.TaskInput{
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		Priority:    f.Priority,
		AssigneeID:  f.AssigneeID,
		DueDate:     f.DueDate,
	})
}

func (f *CreateTask) Reset() { *f = CreateTask{ListID: f.ListID} }

type StartConversation struct {
	Title          string
	ParticipantIDs []int64
}

func (f *StartConversation) Validate() error {
	var c checker
	if len(f.ParticipantIDs) == 0 {
		c.fail("participants", "choose at least one participant")
	}
	return c.err()
}

func (f *StartConversation) Submit(ctx context.Context, svc *service.Services) (any, error) {
	return svc.Messages.StartConversation(ctx, strings.TrimSpace(f.Title), f.ParticipantIDs)
}

func (f *StartConversation) Reset() { *f = StartConversation{} }

// Reply posts a message to a conversation, or a comment when TaskID is set.
type Reply struct {
	ConversationID int64
	TaskID         int64
	Body           string
}

func (f *Reply) Validate() error {
	var c checker
	if f.ConversationID == 0 && f.TaskID == 0 {
		c.fail("target", "is required")
	}
	c.minLen("body", f.Body, 1)
	return c.err()
}

func (f *Reply) Submit(ctx context.Context, svc *service.Services) (any, error) {
	body := strings.TrimSpace(f.Body)
	if f.TaskID != 0 {
		return svc.Tasks.AddComment(ctx, f.TaskID, body)
	}
	return svc.Messages.Send(ctx, f.ConversationID, body)
}

func (f *Reply) Reset() { f.Body = "" }

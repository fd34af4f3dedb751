package model

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	MemberCount int       `json:"member_count"`
	Managers    []User    `json:"managers,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Flags relative to the current user.
	HasPendingRequest    bool `json:"has_pending_request,omitempty"`
	HasPendingInvitation bool `json:"has_pending_invitation,omitempty"`
	IsMember             bool `json:"is_member,omitempty"`
}

type TeamMember struct {
	User     User      `json:"user"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TeamID      *int64    `json:"team_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Board struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ProjectID   *int64    `json:"project_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type List struct {
	ID       int64  `json:"id"`
	BoardID  int64  `json:"board_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

type Task struct {
	ID          int64        `json:"id"`
	ListID      int64        `json:"list_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Priority    TaskPriority `json:"priority,omitempty"`
	Status      TaskStatus   `json:"status,omitempty"`
	AssigneeID  *int64       `json:"assignee_id,omitempty"`
	Assignee    *User        `json:"assignee,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Author    User      `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Activity struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Actor     User      `json:"actor"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title,omitempty"`
	Participants []User    `json:"participants,omitempty"`
	LastMessage  *Message  `json:"last_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Sender         User      `json:"sender"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

type DependencyType string

const (
	DependencyBlocks    DependencyType = "blocks"
	DependencyBlockedBy DependencyType = "blocked_by"
	DependencyRelatesTo DependencyType = "relates_to"
	DependencyDuplicate DependencyType = "duplicates"
)

type Dependency struct {
	ID              int64          `json:"id"`
	TaskID          int64          `json:"task_id"`
	DependsOnTaskID int64          `json:"depends_on_task_id"`
	Type            DependencyType `json:"dependency_type"`
	CreatedAt       time.Time      `json:"created_at"`
}

type Permission struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
}

type RoleDef struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
	IsSystem    bool     `json:"is_system,omitempty"`
}

type PermissionGrant struct {
	ID           int64  `json:"id"`
	RoleID       *int64 `json:"role_id,omitempty"`
	UserID       *int64 `json:"user_id,omitempty"`
	Permission   string `json:"permission"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   *int64 `json:"resource_id,omitempty"`
}

type RoleAssignment struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	RoleID       int64  `json:"role_id"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   *int64 `json:"resource_id,omitempty"`
}

type Notification struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`

	RelatedTaskID    *int64 `json:"related_task_id,omitempty"`
	RelatedBoardID   *int64 `json:"related_board_id,omitempty"`
	RelatedProjectID *int64 `json:"related_project_id,omitempty"`
	RelatedTeamID    *int64 `json:"related_team_id,omitempty"`
	RelatedCommentID *int64 `json:"related_comment_id,omitempty"`
}

type WorkflowTemplate struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Trigger string `json:"trigger,omitempty"`
	Enabled bool   `json:"enabled"`
}

type WorkflowInstance struct {
	ID         int64      `json:"id"`
	TemplateID int64      `json:"template_id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type FieldValidation struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

type CustomFieldDefinition struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	FieldType   string           `json:"field_type"`
	EntityType  string           `json:"entity_type"`
	Required    bool             `json:"required"`
	Description string           `json:"description,omitempty"`
	Options     []string         `json:"options,omitempty"`
	Validation  *FieldValidation `json:"validation,omitempty"`
}

type CustomFieldValue struct {
	ID         int64           `json:"id"`
	FieldID    int64           `json:"field_id"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	Value      json.RawMessage `json:"value"`
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

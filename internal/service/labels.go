package service

import (
	"strings"

	"teamboard-cli/internal/model"
)

// Badge is a display label with a hex color. Unknown keys map to a neutral
// badge that echoes the raw key.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

const neutralColor = "#6b7280"

type badgeTable map[string]Badge

func (t badgeTable) lookup(key string) Badge {
	if b, ok := t[key]; ok {
		return b
	}
	if key == "" {
		return Badge{Text: "Unknown", Color: neutralColor}
	}
	return Badge{Text: humanizeKey(key), Color: neutralColor}
}

func humanizeKey(key string) string {
	s := strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(key)), " ")
	if s == "" {
		return key
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var statusBadges = badgeTable{
	string(model.TaskTodo):       {"To Do", "#6b7280"},
	string(model.TaskInProgress): {"In Progress", "#3b82f6"},
	string(model.TaskReview):     {"Review", "#f59e0b"},
	string(model.TaskDone):       {"Done", "#10b981"},
}

var priorityBadges = badgeTable{
	string(model.PriorityLow):    {"Low", "#10b981"},
	string(model.PriorityMedium): {"Medium", "#f59e0b"},
	string(model.PriorityHigh):   {"High", "#f97316"},
	string(model.PriorityUrgent): {"Urgent", "#ef4444"},
}

var workflowBadges = badgeTable{
	"pending":   {"Pending", "#6b7280"},
	"running":   {"Running", "#3b82f6"},
	"completed": {"Completed", "#10b981"},
	"failed":    {"Failed", "#ef4444"},
	"cancelled": {"Cancelled", "#9ca3af"},
}

var dependencyBadges = badgeTable{
	string(model.DependencyBlocks):    {"Blocks", "#ef4444"},
	string(model.DependencyBlockedBy): {"Blocked by", "#f97316"},
	string(model.DependencyRelatesTo): {"Relates to", "#3b82f6"},
	string(model.DependencyDuplicate): {"Duplicates", "#8b5cf6"},
}

var roleBadges = badgeTable{
	string(model.RoleAdmin):   {"Admin", "#ef4444"},
	string(model.RoleManager): {"Manager", "#8b5cf6"},
	string(model.RoleMember):  {"Member", "#3b82f6"},
}

var fieldTypeBadges = badgeTable{
	"text":         {"Text", "#6b7280"},
	"textarea":     {"Long text", "#6b7280"},
	"number":       {"Number", "#3b82f6"},
	"date":         {"Date", "#f59e0b"},
	"select":       {"Select", "#8b5cf6"},
	"multi_select": {"Multi-select", "#8b5cf6"},
	"checkbox":     {"Checkbox", "#10b981"},
	"url":          {"URL", "#0ea5e9"},
	"email":        {"Email", "#0ea5e9"},
	"user":         {"User", "#ec4899"},
}

var notificationBadges = badgeTable{
	"task_assigned":         {"Assigned", "#3b82f6"},
	"task_updated":          {"Task updated", "#6b7280"},
	"task_commented":        {"Comment", "#8b5cf6"},
	"task_mentioned":        {"Mention", "#ec4899"},
	"task_due_soon":         {"Due soon", "#f59e0b"},
	"task_overdue":          {"Overdue", "#ef4444"},
	"task_completed":        {"Completed", "#10b981"},
	"board_enrolled":        {"Added to board", "#3b82f6"},
	"board_updated":         {"Board updated", "#6b7280"},
	"board_shared":          {"Board shared", "#0ea5e9"},
	"project_added":         {"Added to project", "#3b82f6"},
	"project_updated":       {"Project updated", "#6b7280"},
	"team_invitation":       {"Invitation", "#8b5cf6"},
	"team_join_request":     {"Join request", "#f59e0b"},
	"team_request_approved": {"Request approved", "#10b981"},
	"team_request_rejected": {"Request rejected", "#ef4444"},
}

func StatusBadge(s model.TaskStatus) Badge         { return statusBadges.lookup(string(s)) }
func PriorityBadge(p model.TaskPriority) Badge     { return priorityBadges.lookup(string(p)) }
func WorkflowBadge(status string) Badge            { return workflowBadges.lookup(status) }
func DependencyBadge(t model.DependencyType) Badge { return dependencyBadges.lookup(string(t)) }
func RoleBadge(r model.Role) Badge                 { return roleBadges.lookup(string(r)) }
func FieldTypeBadge(t string) Badge                { return fieldTypeBadges.lookup(t) }
func NotificationBadge(t string) Badge             { return notificationBadges.lookup(t) }

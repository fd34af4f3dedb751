package tui

import (
	"strconv"
	"strings"
	"time"

	"teamboard-cli/internal/forms"
	"teamboard-cli/internal/model"
)

// Dialog builders. Each returns a formModal whose build func turns raw input
// into the matching forms type.

func fieldErr(key, msg string) error {
	return &forms.ValidationError{Fields: map[string]string{key: msg}}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func optionalID(vals map[string]string, key string) (*int64, error) {
	s := strings.TrimSpace(vals[key])
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, fieldErr(key, "must be a positive number")
	}
	return &id, nil
}

func newTeamModal() *formModal {
	return newFormModal("New team", "Team created.", []fieldSpec{
		{key: "name", label: "Name", placeholder: "at least 2 characters"},
		{key: "description", label: "Description"},
		{key: "manager", label: "Manager user id", placeholder: "optional"},
	}, func(v map[string]string) (forms.Form, error) {
		mgr, err := optionalID(v, "manager")
		if err != nil {
			return nil, err
		}
		return &forms.CreateTeam{Name: v["name"], Description: v["description"], ManagerID: mgr}, nil
	})
}

func editTeamModal(t model.Team) *formModal {
	return newFormModal("Edit "+t.Name, "Team updated.", []fieldSpec{
		{key: "name", label: "Name", value: t.Name},
		{key: "description", label: "Description", value: t.Description},
	}, func(v map[string]string) (forms.Form, error) {
		return &forms.EditTeam{ID: t.ID, Name: v["name"], Description: v["description"]}, nil
	})
}

func newProjectModal() *formModal {
	return newFormModal("New project", "Project created.", []fieldSpec{
		{key: "name", label: "Name"},
		{key: "description", label: "Description"},
		{key: "team", label: "Team id", placeholder: "optional"},
	}, func(v map[string]string) (forms.Form, error) {
		team, err := optionalID(v, "team")
		if err != nil {
			return nil, err
		}
		return &forms.CreateProject{Name: v["name"], Description: v["description"], TeamID: team}, nil
	})
}

// newBoardModal asks for the project only when it is not already known.
func newBoardModal(projectID *int64) *formModal {
	specs := []fieldSpec{
		{key: "name", label: "Name"},
		{key: "description", label: "Description"},
	}
	if projectID == nil {
		specs = append(specs, fieldSpec{key: "project", label: "Project id", placeholder: "optional"})
	}
	return newFormModal("New board", "Board created.", specs, func(v map[string]string) (forms.Form, error) {
		pid := projectID
		if pid == nil {
			var err error
			if pid, err = optionalID(v, "project"); err != nil {
				return nil, err
			}
		}
		return &forms.CreateBoard{Name: v["name"], Description: v["description"], ProjectID: pid}, nil
	})
}

func newListModal(boardID int64, position int) *formModal {
	return newFormModal("New list", "List created.", []fieldSpec{
		{key: "name", label: "Name"},
	}, func(v map[string]string) (forms.Form, error) {
		return &forms.CreateList{BoardID: boardID, Name: v["name"], Position: position}, nil
	})
}

func newTaskModal(list model.List) *formModal {
	return newFormModal("New task in "+list.Name, "Task created.", []fieldSpec{
		{key: "title", label: "Title"},
		{key: "description", label: "Description", placeholder: "markdown"},
		{key: "priority", label: "Priority", placeholder: "low, medium, high or urgent"},
		{key: "assignee", label: "Assignee user id", placeholder: "optional"},
		{key: "due", label: "Due date", placeholder: "YYYY-MM-DD"},
	}, func(v map[string]string) (forms.Form, error) {
		assignee, err := optionalID(v, "assignee")
		if err != nil {
			return nil, err
		}
		due := strings.TrimSpace(v["due"])
		if due != "" {
			if _, err := time.Parse(time.DateOnly, due); err != nil {
				return nil, fieldErr("due", "must be YYYY-MM-DD")
			}
		}
		return &forms.CreateTask{
			ListID:      list.ID,
			Title:       v["title"],
			Description: v["description"],
			Priority:    model.TaskPriority(strings.ToLower(strings.TrimSpace(v["priority"]))),
			AssigneeID:  assignee,
			DueDate:     due,
		}, nil
	})
}

func newConversationModal() *formModal {
	return newFormModal("New conversation", "Conversation started.", []fieldSpec{
		{key: "title", label: "Title", placeholder: "optional"},
		{key: "participants", label: "Participant user ids", placeholder: "2, 3"},
	}, func(v map[string]string) (forms.Form, error) {
		var ids []int64
		for _, s := range splitList(v["participants"]) {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil || id <= 0 {
				return nil, fieldErr("participants", "must be comma-separated user ids")
			}
			ids = append(ids, id)
		}
		return &forms.StartConversation{Title: v["title"], ParticipantIDs: ids}, nil
	})
}

func newRoleModal() *formModal {
	return newFormModal("New role", "Role created.", []fieldSpec{
		{key: "name", label: "Name"},
		{key: "description", label: "Description"},
		{key: "permissions", label: "Permissions", placeholder: "task.create, board.view"},
	}, func(v map[string]string) (forms.Form, error) {
		return &forms.Role{Name: v["name"], Description: v["description"], Permissions: splitList(v["permissions"])}, nil
	})
}

func newFieldModal() *formModal {
	return newFormModal("New custom field", "Custom field created.", []fieldSpec{
		{key: "name", label: "Name"},
		{key: "field_type", label: "Type", placeholder: "text, number, date, select, …"},
		{key: "entity_type", label: "Applies to", placeholder: "task, project, board, team, user"},
		{key: "options", label: "Options", placeholder: "for select types: a, b, c"},
		{key: "required", label: "Required", placeholder: "y/n"},
		{key: "description", label: "Description"},
	}, func(v map[string]string) (forms.Form, error) {
		req := strings.ToLower(strings.TrimSpace(v["required"]))
		return &forms.CustomField{
			Name:        v["name"],
			FieldType:   strings.TrimSpace(v["field_type"]),
			EntityType:  strings.TrimSpace(v["entity_type"]),
			Required:    req == "y" || req == "yes" || req == "true",
			Description: v["description"],
			Options:     splitList(v["options"]),
		}, nil
	})
}

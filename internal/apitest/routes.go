package apitest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"teamboard-cli/internal/model"

	"github.com/go-chi/chi/v5"
)

func (s *Server) userRoutes(r chi.Router) {
	r.Get("/api/users", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := make([]model.User, 0, len(s.Users))
		for _, u := range s.Users {
			out = append(out, u)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		writeJSON(w, http.StatusOK, out)
	})
	r.Get("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, s.currentUser(r))
	})
	r.Get("/api/users/search", func(w http.ResponseWriter, r *http.Request) {
		q := strings.ToLower(r.URL.Query().Get("q"))
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []model.User{}
		for _, u := range s.Users {
			if strings.Contains(strings.ToLower(u.Username+" "+u.FullName), q) {
				out = append(out, u)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		writeJSON(w, http.StatusOK, out)
	})
	r.Get("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		u, ok := s.Users[pathID(r, "id")]
		if !ok {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, u)
	})
	r.Put("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in model.User
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		u, ok := s.Users[id]
		if !ok {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if in.FullName != "" {
			u.FullName = in.FullName
		}
		if in.Email != "" {
			u.Email = in.Email
		}
		if in.Role != "" {
			u.Role = in.Role
		}
		s.Users[id] = u
		writeJSON(w, http.StatusOK, u)
	})
}

func (s *Server) teamRoutes(r chi.Router) {
	r.Get("/api/teams", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Teams))
	})
	r.Get("/api/teams/discover", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []model.Team{}
		for _, t := range s.Teams {
			if !t.IsMember {
				out = append(out, t)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Post("/api/teams", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			ManagerID   *int64 `json:"manager_id"`
		}
		if err := readJSON(r, &in); err != nil || len(strings.TrimSpace(in.Name)) < 2 {
			writeError(w, http.StatusBadRequest, "team name must be at least 2 characters")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		t := model.Team{ID: s.id(), Name: in.Name, Description: in.Description, CreatedAt: s.Now(), IsMember: true, MemberCount: 1}
		if in.ManagerID != nil {
			if u, ok := s.Users[*in.ManagerID]; ok {
				t.Managers = []model.User{u}
			}
		}
		s.Teams = append(s.Teams, t)
		writeJSON(w, http.StatusCreated, t)
	})
	r.Get("/api/teams/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if i := s.teamIndex(pathID(r, "id")); i >= 0 {
			writeJSON(w, http.StatusOK, s.Teams[i])
			return
		}
		writeError(w, http.StatusNotFound, "team not found")
	})
	r.Put("/api/teams/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.teamIndex(pathID(r, "id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if in.Name != "" {
			s.Teams[i].Name = in.Name
		}
		s.Teams[i].Description = in.Description
		writeJSON(w, http.StatusOK, s.Teams[i])
	})
	r.Delete("/api/teams/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.teamIndex(pathID(r, "id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		s.Teams = append(s.Teams[:i], s.Teams[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/teams/{id}/members", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		if s.teamIndex(id) < 0 {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		writeJSON(w, http.StatusOK, nonNil(s.TeamMembers[id]))
	})
	r.Post("/api/teams/{id}/members", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			UserID int64      `json:"user_id"`
			Role   model.Role `json:"role"`
		}
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		u, ok := s.Users[in.UserID]
		if !ok || s.teamIndex(id) < 0 {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		m := model.TeamMember{User: u, Role: in.Role, JoinedAt: s.Now()}
		s.TeamMembers[id] = append(s.TeamMembers[id], m)
		s.Teams[s.teamIndex(id)].MemberCount++
		writeJSON(w, http.StatusCreated, m)
	})
	r.Delete("/api/teams/{id}/members/{uid}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id, uid := pathID(r, "id"), pathID(r, "uid")
		ms := s.TeamMembers[id]
		for i, m := range ms {
			if m.User.ID == uid {
				s.TeamMembers[id] = append(ms[:i], ms[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, "member not found")
	})
	r.Post("/api/teams/{id}/join-requests", s.teamFlag(func(t *model.Team) { t.HasPendingRequest = true }))
	r.Delete("/api/teams/{id}/join-requests", s.teamFlag(func(t *model.Team) { t.HasPendingRequest = false }))
	r.Post("/api/teams/{id}/invitations/accept", s.teamFlag(func(t *model.Team) {
		t.HasPendingInvitation = false
		t.IsMember = true
		t.MemberCount++
	}))

	r.Get("/api/projects", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Projects))
	})
	r.Post("/api/projects", func(w http.ResponseWriter, r *http.Request) {
		var p model.Project
		if err := readJSON(r, &p); err != nil || strings.TrimSpace(p.Name) == "" {
			writeError(w, http.StatusBadRequest, "project name is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		p.ID = s.id()
		p.CreatedAt = s.Now()
		s.Projects = append(s.Projects, p)
		writeJSON(w, http.StatusCreated, p)
	})
	r.Get("/api/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for _, p := range s.Projects {
			if p.ID == id {
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
		writeError(w, http.StatusNotFound, "project not found")
	})
	r.Get("/api/projects/{id}/boards", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		out := []model.Board{}
		for _, b := range s.Boards {
			if b.ProjectID != nil && *b.ProjectID == id {
				out = append(out, b)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func (s *Server) teamFlag(fn func(t *model.Team)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.teamIndex(pathID(r, "id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		fn(&s.Teams[i])
		writeJSON(w, http.StatusOK, s.Teams[i])
	}
}

func (s *Server) teamIndex(id int64) int {
	for i, t := range s.Teams {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) boardRoutes(r chi.Router) {
	r.Get("/api/boards", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Boards))
	})
	r.Post("/api/boards", func(w http.ResponseWriter, r *http.Request) {
		var b model.Board
		if err := readJSON(r, &b); err != nil || strings.TrimSpace(b.Name) == "" {
			writeError(w, http.StatusBadRequest, "board name is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		b.ID = s.id()
		b.CreatedAt = s.Now()
		s.Boards = append(s.Boards, b)
		writeJSON(w, http.StatusCreated, b)
	})
	r.Get("/api/boards/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for _, b := range s.Boards {
			if b.ID == id {
				writeJSON(w, http.StatusOK, b)
				return
			}
		}
		writeError(w, http.StatusNotFound, "board not found")
	})
	r.Delete("/api/boards/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for i, b := range s.Boards {
			if b.ID == id {
				s.Boards = append(s.Boards[:i], s.Boards[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, "board not found")
	})
	r.Get("/api/boards/{id}/lists", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		out := []model.List{}
		for _, l := range s.Lists {
			if l.BoardID == id {
				out = append(out, l)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Post("/api/boards/{id}/lists", func(w http.ResponseWriter, r *http.Request) {
		var l model.List
		if err := readJSON(r, &l); err != nil || strings.TrimSpace(l.Name) == "" {
			writeError(w, http.StatusBadRequest, "list name is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		l.ID = s.id()
		l.BoardID = pathID(r, "id")
		s.Lists = append(s.Lists, l)
		writeJSON(w, http.StatusCreated, l)
	})
	r.Get("/api/boards/{id}/tasks", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		lists := map[int64]bool{}
		for _, l := range s.Lists {
			if l.BoardID == id {
				lists[l.ID] = true
			}
		}
		out := []model.Task{}
		for _, t := range s.Tasks {
			if lists[t.ListID] {
				out = append(out, t)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Get("/api/tasks", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		assignee := queryID(r, "assignee_id")
		out := []model.Task{}
		for _, t := range s.Tasks {
			if assignee == 0 || (t.AssigneeID != nil && *t.AssigneeID == assignee) {
				out = append(out, t)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Post("/api/lists/{id}/tasks", func(w http.ResponseWriter, r *http.Request) {
		var t model.Task
		if err := readJSON(r, &t); err != nil || strings.TrimSpace(t.Title) == "" {
			writeError(w, http.StatusBadRequest, "task title is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		t.ID = s.id()
		t.ListID = pathID(r, "id")
		if t.Status == "" {
			t.Status = model.TaskTodo
		}
		t.CreatedAt, t.UpdatedAt = s.Now(), s.Now()
		s.Tasks = append(s.Tasks, t)
		writeJSON(w, http.StatusCreated, t)
	})
	r.Get("/api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if i := s.taskIndex(pathID(r, "id")); i >= 0 {
			writeJSON(w, http.StatusOK, s.Tasks[i])
			return
		}
		writeError(w, http.StatusNotFound, "task not found")
	})
	r.Put("/api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]json.RawMessage
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.taskIndex(pathID(r, "id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		cur, _ := json.Marshal(s.Tasks[i])
		var merged map[string]json.RawMessage
		_ = json.Unmarshal(cur, &merged)
		for k, v := range in {
			merged[k] = v
		}
		b, _ := json.Marshal(merged)
		var t model.Task
		_ = json.Unmarshal(b, &t)
		t.UpdatedAt = s.Now()
		s.Tasks[i] = t
		writeJSON(w, http.StatusOK, t)
	})
	r.Delete("/api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.taskIndex(pathID(r, "id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.Tasks = append(s.Tasks[:i], s.Tasks[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/tasks/{id}/board", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.DirectBoardLookup {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		i := s.taskIndex(pathID(r, "id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		for _, l := range s.Lists {
			if l.ID == s.Tasks[i].ListID {
				for _, b := range s.Boards {
					if b.ID == l.BoardID {
						writeJSON(w, http.StatusOK, b)
						return
					}
				}
			}
		}
		writeError(w, http.StatusNotFound, "board not found")
	})
	r.Get("/api/tasks/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		out := []model.Comment{}
		for _, c := range s.Comments {
			if c.TaskID == id {
				out = append(out, c)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Post("/api/tasks/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Body string `json:"body"`
		}
		if err := readJSON(r, &in); err != nil || strings.TrimSpace(in.Body) == "" {
			writeError(w, http.StatusBadRequest, "comment body is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		c := model.Comment{ID: s.id(), TaskID: pathID(r, "id"), Author: s.currentUser(r), Body: in.Body, CreatedAt: s.Now()}
		s.Comments = append(s.Comments, c)
		writeJSON(w, http.StatusCreated, c)
	})
	r.Get("/api/tasks/{id}/activities", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		out := []model.Activity{}
		for _, a := range s.Activities {
			if a.TaskID == id {
				out = append(out, a)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func (s *Server) taskIndex(id int64) int {
	for i, t := range s.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) messageRoutes(r chi.Router) {
	r.Get("/api/conversations", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Conversations))
	})
	r.Post("/api/conversations", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Title          string  `json:"title"`
			ParticipantIDs []int64 `json:"participant_ids"`
		}
		if err := readJSON(r, &in); err != nil || len(in.ParticipantIDs) == 0 {
			writeError(w, http.StatusBadRequest, "participants are required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		c := model.Conversation{ID: s.id(), Title: in.Title, UpdatedAt: s.Now()}
		for _, id := range in.ParticipantIDs {
			if u, ok := s.Users[id]; ok {
				c.Participants = append(c.Participants, u)
			}
		}
		s.Conversations = append(s.Conversations, c)
		writeJSON(w, http.StatusCreated, c)
	})
	r.Get("/api/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		out := []model.Message{}
		for _, m := range s.Messages {
			if m.ConversationID == id {
				out = append(out, m)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Post("/api/messages", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			ConversationID int64  `json:"conversation_id"`
			Body           string `json:"body"`
		}
		if err := readJSON(r, &in); err != nil || strings.TrimSpace(in.Body) == "" {
			writeError(w, http.StatusBadRequest, "message body is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		m := model.Message{ID: s.id(), ConversationID: in.ConversationID, Sender: s.currentUser(r), Body: in.Body, CreatedAt: s.Now()}
		s.Messages = append(s.Messages, m)
		writeJSON(w, http.StatusCreated, m)
	})
}

func (s *Server) fieldRoutes(r chi.Router) {
	r.Get("/api/custom-fields", func(w http.ResponseWriter, r *http.Request) {
		et := r.URL.Query().Get("entity_type")
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []model.CustomFieldDefinition{}
		for _, f := range s.Fields {
			if et == "" || f.EntityType == et {
				out = append(out, f)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Post("/api/custom-fields", func(w http.ResponseWriter, r *http.Request) {
		var f model.CustomFieldDefinition
		if err := readJSON(r, &f); err != nil || strings.TrimSpace(f.Name) == "" {
			writeError(w, http.StatusBadRequest, "field name is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		f.ID = s.id()
		s.Fields = append(s.Fields, f)
		writeJSON(w, http.StatusCreated, f)
	})
	r.Put("/api/custom-fields/{id}", func(w http.ResponseWriter, r *http.Request) {
		var f model.CustomFieldDefinition
		if err := readJSON(r, &f); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for i := range s.Fields {
			if s.Fields[i].ID == id {
				f.ID = id
				s.Fields[i] = f
				writeJSON(w, http.StatusOK, f)
				return
			}
		}
		writeError(w, http.StatusNotFound, "field not found")
	})
	r.Delete("/api/custom-fields/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for i := range s.Fields {
			if s.Fields[i].ID == id {
				s.Fields = append(s.Fields[:i], s.Fields[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, "field not found")
	})
	r.Get("/api/custom-fields/values", func(w http.ResponseWriter, r *http.Request) {
		et, eid := r.URL.Query().Get("entity_type"), queryID(r, "entity_id")
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []model.CustomFieldValue{}
		for _, v := range s.FieldValues {
			if v.EntityType == et && v.EntityID == eid {
				out = append(out, v)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Put("/api/custom-fields/{id}/values", func(w http.ResponseWriter, r *http.Request) {
		var in model.CustomFieldValue
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		in.FieldID = pathID(r, "id")
		for i, v := range s.FieldValues {
			if v.FieldID == in.FieldID && v.EntityType == in.EntityType && v.EntityID == in.EntityID {
				in.ID = v.ID
				s.FieldValues[i] = in
				writeJSON(w, http.StatusOK, in)
				return
			}
		}
		in.ID = s.id()
		s.FieldValues = append(s.FieldValues, in)
		writeJSON(w, http.StatusOK, in)
	})
}

func (s *Server) dependencyRoutes(r chi.Router) {
	r.Get("/api/dependencies", func(w http.ResponseWriter, r *http.Request) {
		tid := queryID(r, "task_id")
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []model.Dependency{}
		for _, d := range s.Deps {
			if d.TaskID == tid {
				out = append(out, d)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Get("/api/dependencies/blocking", func(w http.ResponseWriter, r *http.Request) {
		tid := queryID(r, "task_id")
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []model.Task{}
		for _, d := range s.Deps {
			if d.TaskID == tid && d.Type == model.DependencyBlockedBy {
				if i := s.taskIndex(d.DependsOnTaskID); i >= 0 && s.Tasks[i].Status != model.TaskDone {
					out = append(out, s.Tasks[i])
				}
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Post("/api/dependencies", func(w http.ResponseWriter, r *http.Request) {
		var d model.Dependency
		if err := readJSON(r, &d); err != nil || d.TaskID == 0 || d.DependsOnTaskID == 0 {
			writeError(w, http.StatusBadRequest, "task ids are required")
			return
		}
		if d.TaskID == d.DependsOnTaskID {
			writeError(w, http.StatusBadRequest, "a task cannot depend on itself")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		d.ID = s.id()
		d.CreatedAt = s.Now()
		s.Deps = append(s.Deps, d)
		writeJSON(w, http.StatusCreated, d)
	})
	r.Delete("/api/dependencies/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for i, d := range s.Deps {
			if d.ID == id {
				s.Deps = append(s.Deps[:i], s.Deps[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, "dependency not found")
	})
}

func (s *Server) timeRoutes(r chi.Router) {
	r.Get("/api/time-tracking/timer", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.Timer == nil {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeJSON(w, http.StatusOK, s.Timer)
	})
	r.Post("/api/time-tracking/timer/start", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			TaskID      int64  `json:"task_id"`
			Description string `json:"description"`
		}
		if err := readJSON(r, &in); err != nil || in.TaskID == 0 {
			writeError(w, http.StatusBadRequest, "task_id is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.Timer != nil {
			writeError(w, http.StatusConflict, "a timer is already running")
			return
		}
		s.Timer = &model.Timer{ID: s.id(), TaskID: in.TaskID, UserID: s.currentUser(r).ID, Description: in.Description, StartTime: s.Now(), IsRunning: true}
		writeJSON(w, http.StatusCreated, s.Timer)
	})
	r.Post("/api/time-tracking/timer/pause", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.Timer == nil || !s.Timer.IsRunning {
			writeError(w, http.StatusConflict, "timer is not running")
			return
		}
		now := s.Now()
		s.Timer.IsRunning, s.Timer.IsPaused, s.Timer.PausedAt = false, true, &now
		writeJSON(w, http.StatusOK, s.Timer)
	})
	r.Post("/api/time-tracking/timer/resume", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.Timer == nil || !s.Timer.IsPaused || s.Timer.PausedAt == nil {
			writeError(w, http.StatusConflict, "timer is not paused")
			return
		}
		s.Timer.TotalPauseDuration += int64(s.Now().Sub(*s.Timer.PausedAt) / time.Second)
		s.Timer.IsRunning, s.Timer.IsPaused, s.Timer.PausedAt = true, false, nil
		writeJSON(w, http.StatusOK, s.Timer)
	})
	r.Post("/api/time-tracking/timer/stop", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.Timer == nil {
			writeError(w, http.StatusConflict, "no active timer")
			return
		}
		end := s.Now()
		if s.Timer.PausedAt != nil {
			end = *s.Timer.PausedAt
		}
		d := int64(end.Sub(s.Timer.StartTime)/time.Second) - s.Timer.TotalPauseDuration
		if d < 0 {
			d = 0
		}
		e := model.TimeEntry{ID: s.id(), TaskID: s.Timer.TaskID, UserID: s.Timer.UserID, Description: s.Timer.Description, StartTime: s.Timer.StartTime, EndTime: &end, DurationSeconds: d}
		s.Entries = append(s.Entries, e)
		s.Timer = nil
		writeJSON(w, http.StatusOK, e)
	})
	r.Get("/api/time-tracking/entries", func(w http.ResponseWriter, r *http.Request) {
		tid := queryID(r, "task_id")
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []model.TimeEntry{}
		for _, e := range s.Entries {
			if tid == 0 || e.TaskID == tid {
				out = append(out, e)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Post("/api/time-tracking/entries", func(w http.ResponseWriter, r *http.Request) {
		var e model.TimeEntry
		if err := readJSON(r, &e); err != nil || e.TaskID == 0 || e.DurationSeconds <= 0 {
			writeError(w, http.StatusBadRequest, "task_id and a positive duration are required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		e.ID = s.id()
		e.UserID = s.currentUser(r).ID
		s.Entries = append(s.Entries, e)
		writeJSON(w, http.StatusCreated, e)
	})
	r.Delete("/api/time-tracking/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for i, e := range s.Entries {
			if e.ID == id {
				s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, "entry not found")
	})
	r.Get("/api/time-tracking/estimates/{task_id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		est, ok := s.Estimates[pathID(r, "task_id")]
		if !ok {
			writeError(w, http.StatusNotFound, "no estimate")
			return
		}
		writeJSON(w, http.StatusOK, est)
	})
	r.Put("/api/time-tracking/estimates/{task_id}", func(w http.ResponseWriter, r *http.Request) {
		var est model.TaskEstimate
		if err := readJSON(r, &est); err != nil || est.EstimatedHours < 0 {
			writeError(w, http.StatusBadRequest, "invalid estimate")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		est.TaskID = pathID(r, "task_id")
		s.Estimates[est.TaskID] = est
		writeJSON(w, http.StatusOK, est)
	})
	r.Get("/api/time-tracking/progress/{task_id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		tid := pathID(r, "task_id")
		p := model.TaskProgress{TaskID: tid}
		var secs int64
		for _, e := range s.Entries {
			if e.TaskID == tid {
				secs += e.DurationSeconds
			}
		}
		p.LoggedHours = float64(secs) / 3600
		if est, ok := s.Estimates[tid]; ok {
			p.EstimatedHours = est.EstimatedHours
			p.RemainingHours = est.EstimatedHours - p.LoggedHours
			if p.RemainingHours < 0 {
				p.RemainingHours = 0
			}
			if est.EstimatedHours > 0 {
				p.PercentComplete = p.LoggedHours / est.EstimatedHours * 100
			}
		}
		writeJSON(w, http.StatusOK, p)
	})
	r.Get("/api/time-tracking/timesheet", func(w http.ResponseWriter, r *http.Request) {
		start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
		s.mu.Lock()
		defer s.mu.Unlock()
		ts := model.TimeSheet{UserID: s.currentUser(r).ID, StartDate: start, EndDate: end, Entries: []model.TimeEntry{}, ByDay: map[string]int64{}}
		for _, e := range s.Entries {
			day := e.StartTime.Format("2006-01-02")
			if (start == "" || day >= start) && (end == "" || day <= end) {
				ts.Entries = append(ts.Entries, e)
				ts.TotalSeconds += e.DurationSeconds
				ts.ByDay[day] += e.DurationSeconds
			}
		}
		writeJSON(w, http.StatusOK, ts)
	})
	r.Get("/api/time-tracking/velocity", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Velocity[queryID(r, "board_id")]))
	})
}

func (s *Server) permissionRoutes(r chi.Router) {
	r.Get("/api/permissions", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Permissions))
	})
	r.Get("/api/permissions/roles", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Roles))
	})
	r.Post("/api/permissions/roles", func(w http.ResponseWriter, r *http.Request) {
		var role model.RoleDef
		if err := readJSON(r, &role); err != nil || strings.TrimSpace(role.Name) == "" {
			writeError(w, http.StatusBadRequest, "role name is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		role.ID = s.id()
		s.Roles = append(s.Roles, role)
		writeJSON(w, http.StatusCreated, role)
	})
	r.Put("/api/permissions/roles/{id}", func(w http.ResponseWriter, r *http.Request) {
		var role model.RoleDef
		if err := readJSON(r, &role); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for i := range s.Roles {
			if s.Roles[i].ID == id {
				role.ID = id
				s.Roles[i] = role
				writeJSON(w, http.StatusOK, role)
				return
			}
		}
		writeError(w, http.StatusNotFound, "role not found")
	})
	r.Delete("/api/permissions/roles/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for i := range s.Roles {
			if s.Roles[i].ID == id {
				if s.Roles[i].IsSystem {
					writeError(w, http.StatusForbidden, "system roles cannot be deleted")
					return
				}
				s.Roles = append(s.Roles[:i], s.Roles[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, "role not found")
	})
	r.Get("/api/permissions/grants", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Grants))
	})
	r.Post("/api/permissions/grants", func(w http.ResponseWriter, r *http.Request) {
		var g model.PermissionGrant
		if err := readJSON(r, &g); err != nil || g.Permission == "" {
			writeError(w, http.StatusBadRequest, "permission is required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		g.ID = s.id()
		s.Grants = append(s.Grants, g)
		writeJSON(w, http.StatusCreated, g)
	})
	r.Delete("/api/permissions/grants/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for i := range s.Grants {
			if s.Grants[i].ID == id {
				s.Grants = append(s.Grants[:i], s.Grants[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, "grant not found")
	})
	r.Get("/api/permissions/assignments", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Assignments))
	})
	r.Post("/api/permissions/assignments", func(w http.ResponseWriter, r *http.Request) {
		var a model.RoleAssignment
		if err := readJSON(r, &a); err != nil || a.UserID == 0 || a.RoleID == 0 {
			writeError(w, http.StatusBadRequest, "user_id and role_id are required")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		a.ID = s.id()
		s.Assignments = append(s.Assignments, a)
		writeJSON(w, http.StatusCreated, a)
	})
	r.Delete("/api/permissions/assignments/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for i := range s.Assignments {
			if s.Assignments[i].ID == id {
				s.Assignments = append(s.Assignments[:i], s.Assignments[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, "assignment not found")
	})
	r.Get("/api/permissions/check", func(w http.ResponseWriter, r *http.Request) {
		perm := r.URL.Query().Get("permission")
		s.mu.Lock()
		defer s.mu.Unlock()
		u := s.currentUser(r)
		allowed := u.IsAdmin()
		for _, g := range s.Grants {
			if g.Permission == perm && g.UserID != nil && *g.UserID == u.ID {
				allowed = true
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"allowed": allowed})
	})
}

func (s *Server) notificationRoutes(r chi.Router) {
	r.Get("/api/notifications", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Notifications))
	})
	r.Post("/api/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.Notifications {
			s.Notifications[i].IsRead = true
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/api/notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for i := range s.Notifications {
			if s.Notifications[i].ID == id {
				s.Notifications[i].IsRead = true
				writeJSON(w, http.StatusOK, s.Notifications[i])
				return
			}
		}
		writeError(w, http.StatusNotFound, "notification not found")
	})
}

func (s *Server) workflowRoutes(r chi.Router) {
	r.Get("/api/workflows/templates", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(s.Templates))
	})
	r.Get("/api/workflows/instances", func(w http.ResponseWriter, r *http.Request) {
		tid := queryID(r, "template_id")
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []model.WorkflowInstance{}
		for _, in := range s.Instances {
			if tid == 0 || in.TemplateID == tid {
				out = append(out, in)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

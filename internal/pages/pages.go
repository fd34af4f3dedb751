// Package pages gathers the data each screen shows. Primary fetches run in
// parallel and any failure fails the page; per-item extras (comments on a task,
// members of a team) are fetched best-effort.
package pages

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"teamboard-cli/internal/logging"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/service"

	"golang.org/x/sync/errgroup"
)

// itemConcurrency bounds the fan-out for per-item fetches.
const itemConcurrency = 4

type Loader struct {
	svc *service.Services
	log *slog.Logger
	now func() time.Time
}

func NewLoader(svc *service.Services, logger *slog.Logger) *Loader {
	return &Loader{svc: svc, log: logging.OrDiscard(logger), now: time.Now}
}

type Dashboard struct {
	User          model.User           `json:"user"`
	Boards        []model.Board        `json:"boards"`
	Projects      []model.Project      `json:"projects"`
	MyTasks       []model.Task         `json:"my_tasks"`
	Overdue       []model.Task         `json:"overdue"`
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
	Timer         *model.Timer         `json:"timer,omitempty"`
}

func (l *Loader) Dashboard(ctx context.Context, me model.User) (*Dashboard, error) {
	d := &Dashboard{User: me}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { d.Boards, err = l.svc.Boards.List(ctx); return })
	g.Go(func() (err error) { d.Projects, err = l.svc.Projects.List(ctx); return })
	g.Go(func() (err error) { d.MyTasks, err = l.svc.Tasks.List(ctx, me.ID); return })
	g.Go(func() (err error) { d.Notifications, err = l.svc.Notifications.List(ctx); return })
	g.Go(func() error {
		t, err := l.svc.Time.Timer(ctx)
		if err != nil {
			l.log.Debug("dashboard timer unavailable", "err", err)
			return nil
		}
		d.Timer = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	d.Unread = service.Unread(d.Notifications)
	now := l.now()
	for _, t := range d.MyTasks {
		if t.DueDate != nil && t.Status != model.TaskDone && t.DueDate.Before(now) {
			d.Overdue = append(d.Overdue, t)
		}
	}
	return d, nil
}

type Admin struct {
	Users       []model.User                  `json:"users"`
	Teams       []model.Team                  `json:"teams"`
	Fields      []model.CustomFieldDefinition `json:"fields"`
	Roles       []model.RoleDef               `json:"roles"`
	Permissions []model.Permission            `json:"permissions"`
	Grants      []model.PermissionGrant       `json:"grants"`
	Workflows   []model.WorkflowTemplate      `json:"workflows"`
}

func (l *Loader) Admin(ctx context.Context) (*Admin, error) {
	a := &Admin{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { a.Users, err = l.svc.Users.List(ctx); return })
	g.Go(func() (err error) { a.Teams, err = l.svc.Teams.List(ctx); return })
	g.Go(func() (err error) { a.Fields, err = l.svc.Fields.List(ctx, ""); return })
	g.Go(func() (err error) { a.Roles, err = l.svc.Permissions.Roles(ctx); return })
	g.Go(func() (err error) { a.Permissions, err = l.svc.Permissions.List(ctx); return })
	g.Go(func() (err error) { a.Grants, err = l.svc.Permissions.Grants(ctx); return })
	g.Go(func() (err error) { a.Workflows, err = l.svc.Workflows.Templates(ctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return a, nil
}

type Discover struct {
	Teams    []model.Team `json:"teams"`
	MyTeams  []model.Team `json:"my_teams"`
	Selected int64        `json:"selected,omitempty"`
}

// Discover loads joinable teams; selected highlights one (from ?team=).
func (l *Loader) Discover(ctx context.Context, selected int64) (*Discover, error) {
	d := &Discover{Selected: selected}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { d.Teams, err = l.svc.Teams.Discover(ctx); return })
	g.Go(func() (err error) { d.MyTeams, err = l.svc.Teams.List(ctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

type Messages struct {
	Conversations []model.Conversation `json:"conversations"`
	Users         []model.User         `json:"users"`
	Open          int64                `json:"open,omitempty"`
	Thread        []model.Message      `json:"thread,omitempty"`
}

func (l *Loader) Messages(ctx context.Context, open int64) (*Messages, error) {
	m := &Messages{Open: open}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { m.Conversations, err = l.svc.Messages.Conversations(gctx); return })
	g.Go(func() (err error) { m.Users, err = l.svc.Users.List(gctx); return })
	if open != 0 {
		g.Go(func() (err error) { m.Thread, err = l.svc.Messages.List(gctx, open); return })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(m.Conversations, func(i, j int) bool {
		return m.Conversations[i].UpdatedAt.After(m.Conversations[j].UpdatedAt)
	})
	return m, nil
}

type TeamWithMembers struct {
	Team    model.Team         `json:"team"`
	Members []model.TeamMember `json:"members"`
	// MembersErr is set when the member list could not be loaded.
	MembersErr string `json:"members_error,omitempty"`
}

type Members struct {
	Teams []TeamWithMembers `json:"teams"`
}

func (l *Loader) Members(ctx context.Context) (*Members, error) {
	teams, err := l.svc.Teams.List(ctx)
	if err != nil {
		return nil, err
	}
	out := &Members{Teams: make([]TeamWithMembers, len(teams))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(itemConcurrency)
	for i, t := range teams {
		out.Teams[i].Team = t
		g.Go(func() error {
			ms, err := l.svc.Teams.Members(gctx, t.ID)
			if err != nil {
				l.log.Debug("team members unavailable", "team_id", t.ID, "err", err)
				out.Teams[i].MembersErr = err.Error()
				return nil
			}
			out.Teams[i].Members = ms
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

type Notifications struct {
	Items  []model.Notification `json:"items"`
	Unread int                  `json:"unread"`
}

func (l *Loader) Notifications(ctx context.Context) (*Notifications, error) {
	ns, err := l.svc.Notifications.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].CreatedAt.After(ns[j].CreatedAt) })
	return &Notifications{Items: ns, Unread: service.Unread(ns)}, nil
}

type TaskDetail struct {
	Task       model.Task         `json:"task"`
	Comments   []model.Comment    `json:"comments"`
	Activities []model.Activity   `json:"activities"`
	Blocking   []model.Task       `json:"blocking,omitempty"`
	Deps       []model.Dependency `json:"dependencies,omitempty"`
}

type Column struct {
	List  model.List   `json:"list"`
	Tasks []TaskDetail `json:"tasks"`
}

type Board struct {
	Board   model.Board  `json:"board"`
	Columns []Column     `json:"columns"`
	Users   []model.User `json:"users"`
}

// Board loads a board with its lists and tasks. Comments and activities per
// task are best-effort: a failure leaves that task's slices empty.
func (l *Loader) Board(ctx context.Context, id int64) (*Board, error) {
	b := &Board{}
	var lists []model.List
	var tasks []model.Task
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { b.Board, err = l.svc.Boards.Get(gctx, id); return })
	g.Go(func() (err error) { lists, err = l.svc.Boards.Lists(gctx, id); return })
	g.Go(func() (err error) { tasks, err = l.svc.Boards.Tasks(gctx, id); return })
	g.Go(func() (err error) { b.Users, err = l.svc.Users.List(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	details := make([]TaskDetail, len(tasks))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(itemConcurrency)
	for i, t := range tasks {
		details[i].Task = t
		eg.Go(func() error {
			cs, err := l.svc.Tasks.Comments(ectx, t.ID)
			if err != nil {
				l.log.Debug("task comments unavailable", "task_id", t.ID, "err", err)
			}
			as, err := l.svc.Tasks.Activities(ectx, t.ID)
			if err != nil {
				l.log.Debug("task activities unavailable", "task_id", t.ID, "err", err)
			}
			details[i].Comments, details[i].Activities = cs, as
			return nil
		})
	}
	_ = eg.Wait()

	sort.SliceStable(lists, func(i, j int) bool { return lists[i].Position < lists[j].Position })
	byList := map[int64][]TaskDetail{}
	for _, d := range details {
		byList[d.Task.ListID] = append(byList[d.Task.ListID], d)
	}
	for _, li := range lists {
		b.Columns = append(b.Columns, Column{List: li, Tasks: byList[li.ID]})
	}
	return b, nil
}

// Task loads one task with its thread and dependency context.
func (l *Loader) Task(ctx context.Context, id int64) (*TaskDetail, error) {
	d := &TaskDetail{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { d.Task, err = l.svc.Tasks.Get(gctx, id); return })
	g.Go(func() (err error) { d.Comments, err = l.svc.Tasks.Comments(gctx, id); return })
	g.Go(func() (err error) { d.Activities, err = l.svc.Tasks.Activities(gctx, id); return })
	g.Go(func() error {
		deps, err := l.svc.Dependencies.List(gctx, id)
		if err != nil {
			l.log.Debug("dependencies unavailable", "task_id", id, "err", err)
			return nil
		}
		d.Deps = deps
		blocking, err := l.svc.Dependencies.Blocking(gctx, id)
		if err != nil {
			l.log.Debug("blocking tasks unavailable", "task_id", id, "err", err)
			return nil
		}
		d.Blocking = blocking
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

type Time struct {
	Timer    *model.Timer          `json:"timer,omitempty"`
	Entries  []model.TimeEntry     `json:"entries"`
	Sheet    model.TimeSheet       `json:"timesheet"`
	Velocity []model.VelocityPoint `json:"velocity,omitempty"`
	BoardID  int64                 `json:"board_id,omitempty"`
}

// Time loads the current week's sheet, the active timer and, when boardID is
// set, its velocity series.
func (l *Loader) Time(ctx context.Context, boardID int64) (*Time, error) {
	t := &Time{BoardID: boardID}
	start, end := WeekOf(l.now())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { t.Timer, err = l.svc.Time.Timer(gctx); return })
	g.Go(func() (err error) { t.Entries, err = l.svc.Time.Entries(gctx, 0); return })
	g.Go(func() (err error) { t.Sheet, err = l.svc.Time.TimeSheet(gctx, start, end); return })
	if boardID != 0 {
		g.Go(func() (err error) { t.Velocity, err = l.svc.Time.Velocity(gctx, boardID, 0); return })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

// WeekOf returns the Monday..Sunday dates (YYYY-MM-DD) containing now.
func WeekOf(now time.Time) (string, string) {
	wd := int(now.Weekday()+6) % 7
	mon := time.Date(now.Year(), now.Month(), now.Day()-wd, 0, 0, 0, 0, now.Location())
	return mon.Format("2006-01-02"), mon.AddDate(0, 0, 6).Format("2006-01-02")
}

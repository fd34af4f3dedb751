package forms

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"teamboard-cli/internal/api"
	"teamboard-cli/internal/apitest"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminServices(t *testing.T) (*apitest.Server, *service.Services) {
	t.Helper()
	srv := apitest.New(t)
	c, err := api.New(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	c.SetSessionID(srv.Login(1))
	c.SetUserID(1)
	return srv, service.New(c)
}

func TestCreateTeam_PostsAndReloads(t *testing.T) {
	srv, svc := adminServices(t)
	ctx := context.Background()

	f := &CreateTeam{Name: "Platform", Description: "infra team", ManagerID: model.Int64(2)}
	var reloaded []model.Team
	out, err := Run(ctx, f, svc, func(ctx context.Context) error {
		var err error
		reloaded, err = svc.Teams.List(ctx)
		return err
	})
	require.NoError(t, err)

	team, ok := out.(model.Team)
	require.True(t, ok)
	assert.Equal(t, "Platform", team.Name)

	posts := srv.RequestsTo(http.MethodPost, "/api/teams")
	require.Len(t, posts, 1)
	assert.Equal(t, map[string]any{"name": "Platform", "description": "infra team", "manager_id": float64(2)}, posts[0].Body)

	assert.Equal(t, CreateTeam{}, *f, "form is cleared after success")
	require.Len(t, reloaded, 1)
	assert.Equal(t, "Platform", reloaded[0].Name)
}

func TestCreateTeam_ShortNameNeverSubmits(t *testing.T) {
	srv, svc := adminServices(t)
	f := &CreateTeam{Name: " P ", Description: "keep me"}

	_, err := Run(context.Background(), f, svc, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields["name"], "at least 2")
	assert.Empty(t, srv.RequestsTo(http.MethodPost, "/api/teams"))
	assert.Equal(t, "keep me", f.Description, "form keeps input on failure")
}

func TestRun_ServerErrorKeepsInput(t *testing.T) {
	srv, svc := adminServices(t)
	srv.FailWith("POST /api/projects", http.StatusForbidden)
	f := &CreateProject{Name: "Apollo"}

	_, err := Run(context.Background(), f, svc, nil)
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusForbidden))
	assert.Equal(t, "Apollo", f.Name)
}

func TestRun_ReloadFailureStillReturnsObject(t *testing.T) {
	_, svc := adminServices(t)
	f := &CreateBoard{Name: "Sprint"}
	out, err := Run(context.Background(), f, svc, func(context.Context) error { return errors.New("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reload failed")
	assert.Equal(t, "Sprint", out.(model.Board).Name)
}

func TestCustomField_SelectNeedsOption(t *testing.T) {
	f := &CustomField{Name: "Tier", FieldType: "select", EntityType: "task", Options: []string{" ", ""}}
	var ve *ValidationError
	require.ErrorAs(t, f.Validate(), &ve)
	assert.Contains(t, ve.Fields, "options")

	f.Options = []string{"Gold", "gold", "Silver"}
	require.NoError(t, f.Validate())
	assert.Equal(t, []string{"Gold", "Silver"}, f.definition().Options)
}

func TestCustomField_RejectsBadInput(t *testing.T) {
	f := &CustomField{FieldType: "formula", EntityType: "galaxy", Validation: &model.FieldValidation{Min: ptr(5.0), Max: ptr(1.0)}}
	var ve *ValidationError
	require.ErrorAs(t, f.Validate(), &ve)
	for _, k := range []string{"name", "entity_type", "field_type", "validation"} {
		assert.Contains(t, ve.Fields, k)
	}
}

func TestGrant_Target(t *testing.T) {
	assert.Error(t, (&Grant{Permission: "x"}).Validate())
	assert.Error(t, (&Grant{Permission: "x", RoleID: model.Int64(1), UserID: model.Int64(2)}).Validate())
	assert.Error(t, (&Grant{Permission: "x", RoleID: model.Int64(1), ResourceID: model.Int64(3)}).Validate())
	assert.NoError(t, (&Grant{Permission: "x", UserID: model.Int64(2)}).Validate())
}

func TestCreateList_ResetKeepsBoard(t *testing.T) {
	f := &CreateList{BoardID: 4, Name: "Done", Position: 2}
	f.Reset()
	assert.Equal(t, CreateList{BoardID: 4}, *f)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "bad", "a": "is required"}}
	assert.Equal(t, "invalid input: a: is required; b: bad", err.Error())
}

func ptr[T any](v T) *T { return &v }

func TestStartConversation_NeedsParticipant(t *testing.T) {
	srv, svc := adminServices(t)

	_, err := Run(context.Background(), &StartConversation{Title: "hi"}, svc, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "participants")
	assert.Empty(t, srv.RequestsTo(http.MethodPost, "/api/conversations"))

	out, err := Run(context.Background(), &StartConversation{Title: " Sync ", ParticipantIDs: []int64{2}}, svc, nil)
	require.NoError(t, err)
	assert.Equal(t, "Sync", out.(model.Conversation).Title)
}

func TestReply_CommentOrMessage(t *testing.T) {
	srv, svc := adminServices(t)
	task := srv.AddTask(model.Task{Title: "Ship"})

	f := &Reply{TaskID: task.ID, Body: "  "}
	_, err := Run(context.Background(), f, svc, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "body")

	f.Body = "looks good"
	out, err := Run(context.Background(), f, svc, nil)
	require.NoError(t, err)
	assert.Equal(t, "looks good", out.(model.Comment).Body)
	assert.Equal(t, task.ID, f.TaskID, "reset keeps the target")
	assert.Empty(t, f.Body)
}

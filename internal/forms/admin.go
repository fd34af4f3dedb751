package forms

import (
	"context"
	"strings"

	"teamboard-cli/internal/customfield"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/service"
)

var entityTypes = map[string]bool{"task": true, "board": true, "project": true, "team": true, "user": true}

// CustomField creates a field definition, or updates one when ID is set.
type CustomField struct {
	ID          int64
	Name        string
	FieldType   string
	EntityType  string
	Required    bool
	Description string
	Options     []string
	Validation  *model.FieldValidation
}

func (f *CustomField) options() []string {
	out := []string{}
	seen := map[string]bool{}
	for _, o := range f.Options {
		o = strings.TrimSpace(o)
		if o == "" || seen[strings.ToLower(o)] {
			continue
		}
		seen[strings.ToLower(o)] = true
		out = append(out, o)
	}
	return out
}

func (f *CustomField) definition() model.CustomFieldDefinition {
	def := model.CustomFieldDefinition{
		ID:          f.ID,
		Name:        strings.TrimSpace(f.Name),
		FieldType:   f.FieldType,
		EntityType:  f.EntityType,
		Required:    f.Required,
		Description: strings.TrimSpace(f.Description),
		Validation:  f.Validation,
	}
	if f.FieldType == "select" || f.FieldType == "multi_select" {
		def.Options = f.options()
	}
	return def
}

func (f *CustomField) Validate() error {
	var c checker
	c.minLen("name", f.Name, 1)
	if !entityTypes[f.EntityType] {
		c.fail("entity_type", "must be task, board, project, team or user")
	}
	def := f.definition()
	if !customfield.IsSupported(def) {
		c.fail("field_type", "is not a supported field type")
	}
	if (f.FieldType == "select" || f.FieldType == "multi_select") && len(def.Options) == 0 {
		c.fail("options", "at least one option is required")
	}
	if v := f.Validation; v != nil {
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			c.fail("validation", "min must not exceed max")
		}
		if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
			c.fail("validation", "min_length must not exceed max_length")
		}
	}
	return c.err()
}

func (f *CustomField) Submit(ctx context.Context, svc *service.Services) (any, error) {
	if f.ID != 0 {
		return svc.Fields.Update(ctx, f.ID, f.definition())
	}
	return svc.Fields.Create(ctx, f.definition())
}

func (f *CustomField) Reset() { *f = CustomField{EntityType: f.EntityType} }

// Role creates a role, or updates one when ID is set.
type Role struct {
	ID          int64
	Name        string
	Description string
	Permissions []string
}

func (f *Role) Validate() error {
	var c checker
	c.minLen("name", f.Name, 2)
	return c.err()
}

func (f *Role) Submit(ctx context.Context, svc *service.Services) (any, error) {
	r := model.RoleDef{Name: strings.TrimSpace(f.Name), Description: strings.TrimSpace(f.Description), Permissions: f.Permissions}
	if r.Permissions == nil {
		r.Permissions = []string{}
	}
	if f.ID != 0 {
		return svc.Permissions.UpdateRole(ctx, f.ID, r)
	}
	return svc.Permissions.CreateRole(ctx, r)
}

func (f *Role) Reset() { *f = Role{} }

type Grant struct {
	RoleID       *int64
	UserID       *int64
	Permission   string
	ResourceType string
	ResourceID   *int64
}

func (f *Grant) Validate() error {
	var c checker
	c.minLen("permission", f.Permission, 1)
	switch {
	case f.RoleID == nil && f.UserID == nil:
		c.fail("target", "choose a role or a user")
	case f.RoleID != nil && f.UserID != nil:
		c.fail("target", "choose either a role or a user, not both")
	}
	if f.ResourceID != nil && f.ResourceType == "" {
		c.fail("resource_type", "is required when a resource is chosen")
	}
	return c.err()
}

func (f *Grant) Submit(ctx context.Context, svc *service.Services) (any, error) {
	return svc.Permissions.Grant(ctx, model.PermissionGrant{
		RoleID:       f.RoleID,
		UserID:       f.UserID,
		Permission:   strings.TrimSpace(f.Permission),
		ResourceType: f.ResourceType,
		ResourceID:   f.ResourceID,
	})
}

func (f *Grant) Reset() { *f = Grant{} }

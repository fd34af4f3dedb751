package cli

import (
	"fmt"
	"strings"

	"teamboard-cli/internal/customfield"
	"teamboard-cli/internal/forms"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/service"

	"github.com/spf13/cobra"
)

// idCmd builds "<verb> <id>" commands whose whole job is one service call.
func idCmd(app *App, kind, use, short string, fn func(cmd *cobra.Command, id int64) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID(kind, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := fn(cmd, id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		}),
	}
}

// listCmd builds argument-less listing commands.
func listCmd[T any](app *App, use, short string, fn func(cmd *cobra.Command) ([]T, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			xs, err := fn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": xs, "meta": map[string]any{"count": len(xs)}})
		}),
	}
}

func newFieldsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Custom field commands",
	}

	var entityType string
	list := listCmd(app, "list", "List custom field definitions", func(cmd *cobra.Command) ([]model.CustomFieldDefinition, error) {
		return app.svc.Fields.List(cmd.Context(), entityType)
	})
	list.Flags().StringVar(&entityType, "entity-type", "", "Only fields for this entity type")
	cmd.AddCommand(list)

	cmd.AddCommand(newFieldsSaveCmd(app, false))
	cmd.AddCommand(newFieldsSaveCmd(app, true))
	cmd.AddCommand(idCmd(app, "field", "delete <field-id>", "Delete a custom field", func(cmd *cobra.Command, id int64) (any, error) {
		return map[string]any{"deleted": id}, app.svc.Fields.Delete(cmd.Context(), id)
	}))
	cmd.AddCommand(newFieldsValuesCmd(app))
	cmd.AddCommand(newFieldsSetCmd(app))
	return cmd
}

func newFieldsSaveCmd(app *App, update bool) *cobra.Command {
	var f forms.CustomField
	var min, max float64
	var minLen, maxLen int
	var pattern string

	use, short := "create", "Create a custom field"
	args := cobra.NoArgs
	if update {
		use, short = "update <field-id>", "Replace a custom field definition"
		args = cobra.ExactArgs(1)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			if update {
				id, err := parseID("field", args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				f.ID = id
			}
			var v model.FieldValidation
			changed := false
			if cmd.Flags().Changed("min") {
				v.Min, changed = &min, true
			}
			if cmd.Flags().Changed("max") {
				v.Max, changed = &max, true
			}
			if cmd.Flags().Changed("min-length") {
				v.MinLength, changed = &minLen, true
			}
			if cmd.Flags().Changed("max-length") {
				v.MaxLength, changed = &maxLen, true
			}
			if pattern != "" {
				v.Pattern, changed = pattern, true
			}
			if changed {
				f.Validation = &v
			}
			return submit(cmd, app, &f)
		}),
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "Field name")
	cmd.Flags().StringVar(&f.FieldType, "type", "text", "Field type (text|textarea|number|date|select|multi_select|checkbox|url|email|user)")
	cmd.Flags().StringVar(&f.EntityType, "entity-type", "task", "Entity type (task|board|project|team|user)")
	cmd.Flags().BoolVar(&f.Required, "required", false, "Require a value")
	cmd.Flags().StringVar(&f.Description, "description", "", "Help text")
	cmd.Flags().StringSliceVar(&f.Options, "option", nil, "Choice for select fields (repeatable)")
	cmd.Flags().Float64Var(&min, "min", 0, "Minimum (number fields)")
	cmd.Flags().Float64Var(&max, "max", 0, "Maximum (number fields)")
	cmd.Flags().IntVar(&minLen, "min-length", 0, "Minimum length (text fields)")
	cmd.Flags().IntVar(&maxLen, "max-length", 0, "Maximum length (text fields)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Regular expression the value must match (text fields)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newFieldsValuesCmd(app *App) *cobra.Command {
	var entityType string
	var entityID int64

	cmd := &cobra.Command{
		Use:   "values",
		Short: "Show an entity's custom field values",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			defs, err := app.svc.Fields.List(cmd.Context(), entityType)
			if err != nil {
				return writeErr(cmd, err)
			}
			vals, err := app.svc.Fields.Values(cmd.Context(), entityType, entityID)
			if err != nil {
				return writeErr(cmd, err)
			}
			byID := map[int64]model.CustomFieldDefinition{}
			for _, d := range defs {
				byID[d.ID] = d
			}
			rendered := map[string]string{}
			for _, v := range vals {
				if d, ok := byID[v.FieldID]; ok {
					rendered[d.Name] = customfield.For(d).Render(v.Value)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": vals, "meta": map[string]any{"rendered": rendered}})
		}),
	}

	cmd.Flags().StringVar(&entityType, "entity-type", "task", "Entity type")
	cmd.Flags().Int64Var(&entityID, "entity-id", 0, "Entity id")
	_ = cmd.MarkFlagRequired("entity-id")
	return cmd
}

func newFieldsSetCmd(app *App) *cobra.Command {
	var entityType, value string
	var entityID int64

	cmd := &cobra.Command{
		Use:   "set <field-id>",
		Short: "Set a custom field value; the input is checked against the field's type",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("field", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			defs, err := app.svc.Fields.List(cmd.Context(), entityType)
			if err != nil {
				return writeErr(cmd, err)
			}
			var def *model.CustomFieldDefinition
			for i := range defs {
				if defs[i].ID == id {
					def = &defs[i]
				}
			}
			if def == nil {
				return writeErr(cmd, errNotFound("field", id))
			}
			parsed, err := customfield.For(*def).Parse(value)
			if err != nil {
				return writeErr(cmd, &forms.ValidationError{Fields: map[string]string{def.Name: err.Error()}})
			}
			v, err := app.svc.Fields.SetValue(cmd.Context(), id, entityType, entityID, parsed)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": v})
		}),
	}

	cmd.Flags().StringVar(&entityType, "entity-type", "task", "Entity type")
	cmd.Flags().Int64Var(&entityID, "entity-id", 0, "Entity id")
	cmd.Flags().StringVar(&value, "value", "", "Value as text (blank clears)")
	_ = cmd.MarkFlagRequired("entity-id")
	return cmd
}

func newDepsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Task dependency commands",
	}
	cmd.AddCommand(idCmd(app, "task", "list <task-id>", "List a task's dependencies", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Dependencies.List(cmd.Context(), id)
	}))
	cmd.AddCommand(idCmd(app, "task", "blocking <task-id>", "List tasks that block this one", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Dependencies.Blocking(cmd.Context(), id)
	}))
	cmd.AddCommand(idCmd(app, "dependency", "remove <dependency-id>", "Remove a dependency", func(cmd *cobra.Command, id int64) (any, error) {
		return map[string]any{"deleted": id}, app.svc.Dependencies.Delete(cmd.Context(), id)
	}))

	var on int64
	var typ string
	add := idCmd(app, "task", "add <task-id>", "Make a task depend on another", func(cmd *cobra.Command, id int64) (any, error) {
		if on == id {
			return nil, &forms.ValidationError{Fields: map[string]string{"on": "a task cannot depend on itself"}}
		}
		switch t := model.DependencyType(typ); t {
		case model.DependencyBlocks, model.DependencyBlockedBy, model.DependencyRelatesTo, model.DependencyDuplicate:
			return app.svc.Dependencies.Create(cmd.Context(), id, on, t)
		}
		return nil, &forms.ValidationError{Fields: map[string]string{"type": "must be blocks, blocked_by, relates_to or duplicates"}}
	})
	add.Flags().Int64Var(&on, "on", 0, "The task it depends on")
	add.Flags().StringVar(&typ, "type", string(model.DependencyBlockedBy), "Dependency type")
	_ = add.MarkFlagRequired("on")
	cmd.AddCommand(add)
	return cmd
}

func newPermsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perms",
		Short: "Roles, permission grants and role assignments",
	}
	cmd.AddCommand(listCmd(app, "list", "List permissions", func(cmd *cobra.Command) ([]model.Permission, error) {
		return app.svc.Permissions.List(cmd.Context())
	}))
	cmd.AddCommand(listCmd(app, "roles", "List roles", func(cmd *cobra.Command) ([]model.RoleDef, error) {
		return app.svc.Permissions.Roles(cmd.Context())
	}))
	cmd.AddCommand(newPermsRoleCmd(app, false))
	cmd.AddCommand(newPermsRoleCmd(app, true))
	cmd.AddCommand(idCmd(app, "role", "delete-role <role-id>", "Delete a role", func(cmd *cobra.Command, id int64) (any, error) {
		return map[string]any{"deleted": id}, app.svc.Permissions.DeleteRole(cmd.Context(), id)
	}))
	cmd.AddCommand(listCmd(app, "grants", "List permission grants", func(cmd *cobra.Command) ([]model.PermissionGrant, error) {
		return app.svc.Permissions.Grants(cmd.Context())
	}))
	cmd.AddCommand(newPermsGrantCmd(app))
	cmd.AddCommand(idCmd(app, "grant", "revoke <grant-id>", "Revoke a permission grant", func(cmd *cobra.Command, id int64) (any, error) {
		return map[string]any{"deleted": id}, app.svc.Permissions.Revoke(cmd.Context(), id)
	}))
	cmd.AddCommand(listCmd(app, "assignments", "List role assignments", func(cmd *cobra.Command) ([]model.RoleAssignment, error) {
		return app.svc.Permissions.Assignments(cmd.Context())
	}))
	cmd.AddCommand(newPermsAssignCmd(app))
	cmd.AddCommand(idCmd(app, "assignment", "unassign <assignment-id>", "Remove a role assignment", func(cmd *cobra.Command, id int64) (any, error) {
		return map[string]any{"deleted": id}, app.svc.Permissions.Unassign(cmd.Context(), id)
	}))
	cmd.AddCommand(newPermsCheckCmd(app))
	return cmd
}

func newPermsRoleCmd(app *App, update bool) *cobra.Command {
	var f forms.Role

	use, short := "create-role", "Create a role"
	args := cobra.NoArgs
	if update {
		use, short = "update-role <role-id>", "Replace a role's name, description and permissions"
		args = cobra.ExactArgs(1)
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			if update {
				id, err := parseID("role", args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				f.ID = id
			}
			return submit(cmd, app, &f)
		}),
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "Role name (at least 2 characters)")
	cmd.Flags().StringVar(&f.Description, "description", "", "Description")
	cmd.Flags().StringSliceVar(&f.Permissions, "permission", nil, "Permission name (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPermsGrantCmd(app *App) *cobra.Command {
	var f forms.Grant
	var roleID, userID, resourceID int64

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant a permission to a role or a user",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			f.RoleID, f.UserID, f.ResourceID = optID(roleID), optID(userID), optID(resourceID)
			return submit(cmd, app, &f)
		}),
	}

	cmd.Flags().Int64Var(&roleID, "role", 0, "Role id")
	cmd.Flags().Int64Var(&userID, "user", 0, "User id")
	cmd.Flags().StringVar(&f.Permission, "permission", "", "Permission name")
	cmd.Flags().StringVar(&f.ResourceType, "resource-type", "", "Limit to a resource type")
	cmd.Flags().Int64Var(&resourceID, "resource-id", 0, "Limit to one resource")
	_ = cmd.MarkFlagRequired("permission")
	return cmd
}

func newPermsAssignCmd(app *App) *cobra.Command {
	var a model.RoleAssignment
	var resourceID int64

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a role to a user",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			a.ResourceID = optID(resourceID)
			if a.ResourceID != nil && a.ResourceType == "" {
				return writeErr(cmd, &forms.ValidationError{Fields: map[string]string{"resource_type": "is required when a resource is chosen"}})
			}
			out, err := app.svc.Permissions.Assign(cmd.Context(), a)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		}),
	}

	cmd.Flags().Int64Var(&a.UserID, "user", 0, "User id")
	cmd.Flags().Int64Var(&a.RoleID, "role", 0, "Role id")
	cmd.Flags().StringVar(&a.ResourceType, "resource-type", "", "Scope to a resource type")
	cmd.Flags().Int64Var(&resourceID, "resource-id", 0, "Scope to one resource")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newPermsCheckCmd(app *App) *cobra.Command {
	var permission, resourceType string
	var resourceID int64

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ask whether you hold a permission",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			ok, err := app.svc.Permissions.Check(cmd.Context(), permission, resourceType, resourceID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"permission": permission, "allowed": ok}})
		}),
	}

	cmd.Flags().StringVar(&permission, "permission", "", "Permission name")
	cmd.Flags().StringVar(&resourceType, "resource-type", "", "Resource type")
	cmd.Flags().Int64Var(&resourceID, "resource-id", 0, "Resource id")
	_ = cmd.MarkFlagRequired("permission")
	return cmd
}

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User commands",
	}
	cmd.AddCommand(listCmd(app, "list", "List users", func(cmd *cobra.Command) ([]model.User, error) {
		return app.svc.Users.List(cmd.Context())
	}))
	cmd.AddCommand(idCmd(app, "user", "show <user-id>", "Show a user", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Users.Get(cmd.Context(), id)
	}))
	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Find users by name",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			us, err := app.svc.Users.Search(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": us})
		}),
	})

	var in service.UserUpdate
	var role string
	update := idCmd(app, "user", "update <user-id>", "Change a user's name, email or role", func(cmd *cobra.Command, id int64) (any, error) {
		in.Role = model.Role(role)
		switch in.Role {
		case "", model.RoleAdmin, model.RoleManager, model.RoleMember:
		default:
			return nil, fmt.Errorf("invalid role %q (want admin, manager or member)", role)
		}
		return app.svc.Users.Update(cmd.Context(), id, in)
	})
	update.Flags().StringVar(&in.FullName, "full-name", "", "Full name")
	update.Flags().StringVar(&in.Email, "email", "", "Email")
	update.Flags().StringVar(&role, "role", "", "Role (admin|manager|member)")
	cmd.AddCommand(update)
	return cmd
}

func newWorkflowsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Workflow templates and runs",
	}
	cmd.AddCommand(listCmd(app, "templates", "List workflow templates", func(cmd *cobra.Command) ([]model.WorkflowTemplate, error) {
		return app.svc.Workflows.Templates(cmd.Context())
	}))

	var templateID int64
	instances := listCmd(app, "instances", "List workflow runs", func(cmd *cobra.Command) ([]model.WorkflowInstance, error) {
		return app.svc.Workflows.Instances(cmd.Context(), templateID)
	})
	instances.Flags().Int64Var(&templateID, "template", 0, "Only runs of this template")
	cmd.AddCommand(instances)
	return cmd
}

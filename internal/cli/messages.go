package cli

import (
	"context"
	"errors"
	"strings"

	"teamboard-cli/internal/forms"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/pages"
	"teamboard-cli/internal/redirect"

	"github.com/spf13/cobra"
)

func newMessagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Direct message commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "conversations",
		Short: "List conversations, most recent first",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			m, err := pages.NewLoader(app.svc, app.log).Messages(cmd.Context(), 0)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": m.Conversations})
		}),
	})
	cmd.AddCommand(newMessagesStartCmd(app))
	cmd.AddCommand(idCmd(app, "conversation", "list <conversation-id>", "Show a conversation's messages", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Messages.List(cmd.Context(), id)
	}))

	var body string
	send := idCmd(app, "conversation", "send <conversation-id>", "Send a message", func(cmd *cobra.Command, id int64) (any, error) {
		if strings.TrimSpace(body) == "" {
			return nil, &forms.ValidationError{Fields: map[string]string{"body": "is required"}}
		}
		return app.svc.Messages.Send(cmd.Context(), id, body)
	})
	send.Flags().StringVar(&body, "body", "", "Message text")
	_ = send.MarkFlagRequired("body")
	cmd.AddCommand(send)
	return cmd
}

func newMessagesStartCmd(app *App) *cobra.Command {
	var title string
	var with []int64

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a conversation",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			if len(with) == 0 {
				return writeErr(cmd, &forms.ValidationError{Fields: map[string]string{"with": "choose at least one participant"}})
			}
			c, err := app.svc.Messages.StartConversation(cmd.Context(), strings.TrimSpace(title), with)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": c})
		}),
	}

	cmd.Flags().StringVar(&title, "title", "", "Conversation title")
	cmd.Flags().Int64SliceVar(&with, "with", nil, "Participant user id (repeatable)")
	return cmd
}

func newNotificationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Notification commands",
	}

	var unreadOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			page, err := pages.NewLoader(app.svc, app.log).Notifications(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			items := page.Items
			if unreadOnly {
				items = []model.Notification{}
				for _, n := range page.Items {
					if !n.IsRead {
						items = append(items, n)
					}
				}
			}
			return writeOut(cmd, app, map[string]any{"data": items, "meta": map[string]any{"unread": page.Unread}})
		}),
	}
	list.Flags().BoolVar(&unreadOnly, "unread", false, "Only unread notifications")
	cmd.AddCommand(list)

	cmd.AddCommand(idCmd(app, "notification", "read <notification-id>", "Mark a notification read", func(cmd *cobra.Command, id int64) (any, error) {
		return map[string]any{"read": id}, app.svc.Notifications.MarkRead(cmd.Context(), id)
	}))
	cmd.AddCommand(&cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			if err := app.svc.Notifications.MarkAllRead(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"unread": 0}})
		}),
	})
	cmd.AddCommand(newNotificationsOpenCmd(app))
	return cmd
}

// navigation records what a redirect outcome asked for.
type navigation struct {
	toast  *redirect.Toast
	target string
}

func (n *navigation) Toast(t redirect.Toast) { n.toast = &t }
func (n *navigation) Navigate(target string) { n.target = target }

func newNotificationsOpenCmd(app *App) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "open <notification-id>",
		Short: "Resolve where a notification leads (marks it read)",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("notification", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ns, err := app.svc.Notifications.List(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			var n *model.Notification
			for i := range ns {
				if ns[i].ID == id {
					n = &ns[i]
				}
			}
			if n == nil {
				return writeErr(cmd, errNotFound("notification", id))
			}
			if !n.IsRead {
				if err := app.svc.Notifications.MarkRead(cmd.Context(), id); err != nil {
					app.log.Warn("could not mark notification read", "notification_id", id, "err", err)
				}
			}
			if !redirect.CanRedirect(*n) {
				return writeErr(cmd, redirect.ErrNoTarget)
			}

			res := redirect.NewResolver(redirect.ServiceLookup{Svc: app.svc}, app.cfg.RedirectDelay, app.log)
			o := res.Redirect(cmd.Context(), *n)
			if !wait {
				o.Delay = 0
			}
			var nav navigation
			if err := redirect.Apply(cmd.Context(), o, &nav); err != nil && !errors.Is(err, context.Canceled) {
				return writeErr(cmd, err)
			}
			meta := map[string]any{"type": n.Type}
			if nav.toast != nil {
				meta["toast"] = map[string]any{"message": nav.toast.Message, "level": nav.toast.Level}
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"target": nav.target}, "meta": meta})
		}),
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Pause for the redirect delay before printing, as the TUI does")
	return cmd
}

func newDashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Your boards, projects, tasks, overdue work and unread count",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			d, err := pages.NewLoader(app.svc, app.log).Dashboard(cmd.Context(), *app.auth.CurrentUser())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": d})
		}),
	}
}

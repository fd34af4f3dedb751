package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteShortcutArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"no args", []string{"teamboard"}, []string{"teamboard"}},
		{"task ref", []string{"teamboard", "#42"}, []string{"teamboard", "tasks", "show", "42"}},
		{"task ref after value flag", []string{"teamboard", "--format", "yaml", "#42"}, []string{"teamboard", "--format", "yaml", "tasks", "show", "42"}},
		{"task ref after equals flag", []string{"teamboard", "--api-url=http://x", "#7"}, []string{"teamboard", "--api-url=http://x", "tasks", "show", "7"}},
		{"task ref after bool flag", []string{"teamboard", "--pretty", "#7"}, []string{"teamboard", "--pretty", "tasks", "show", "7"}},
		{"route", []string{"teamboard", "/boards/12"}, []string{"teamboard", "route", "check", "/boards/12"}},
		{"route after double dash", []string{"teamboard", "--", "/admin"}, []string{"teamboard", "route", "check", "/admin"}},
		{"task ref after double dash", []string{"teamboard", "--", "#42"}, []string{"teamboard", "tasks", "show", "42"}},
		{"flag then double dash", []string{"teamboard", "--pretty", "--", "#42"}, []string{"teamboard", "--pretty", "tasks", "show", "42"}},
		{"plain arg after double dash", []string{"teamboard", "--", "tasks"}, []string{"teamboard", "--", "tasks"}},
		{"bad task ref", []string{"teamboard", "#abc"}, []string{"teamboard", "#abc"}},
		{"subcommand untouched", []string{"teamboard", "tasks", "show", "42"}, []string{"teamboard", "tasks", "show", "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, rewriteShortcutArgs(tt.in))
		})
	}
}

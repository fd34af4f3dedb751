package tui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"teamboard-cli/internal/guard"
)

type routeKind int

const (
	routeLogin routeKind = iota
	routeDashboard
	routeAdmin
	routeDiscover
	routeMessages
	routeMembers
	routeNotifications
	routeBoard
	routeProject
	routeTime
)

var staticRoutes = map[string]routeKind{
	"/login":         routeLogin,
	"/dashboard":     routeDashboard,
	"/admin":         routeAdmin,
	"/discover":      routeDiscover,
	"/messages":      routeMessages,
	"/members":       routeMembers,
	"/notifications": routeNotifications,
	"/time":          routeTime,
}

// route is a parsed location. Query carries view state such as ?task= on a
// board or ?team= on discover.
type route struct {
	kind  routeKind
	id    int64
	query url.Values
}

func (r route) path() string {
	switch r.kind {
	case routeBoard:
		return fmt.Sprintf("/boards/%d", r.id)
	case routeProject:
		return fmt.Sprintf("/projects/%d", r.id)
	}
	for p, k := range staticRoutes {
		if k == r.kind {
			return p
		}
	}
	return "/dashboard"
}

func (r route) String() string {
	if len(r.query) == 0 {
		return r.path()
	}
	return r.path() + "?" + r.query.Encode()
}

func (r route) queryID(key string) int64 {
	id, _ := strconv.ParseInt(r.query.Get(key), 10, 64)
	return id
}

// parseRoute maps a location string to a route. "/" and "/register" have no
// view of their own and land on login.
func parseRoute(s string) (route, error) {
	raw := strings.TrimSpace(s)
	var q url.Values
	if i := strings.Index(raw, "?"); i >= 0 {
		parsed, err := url.ParseQuery(raw[i+1:])
		if err != nil {
			return route{}, fmt.Errorf("bad query in %q: %w", s, err)
		}
		q = parsed
	}
	p := guard.Normalize(raw)
	switch p {
	case "/", "/register":
		return route{kind: routeLogin, query: q}, nil
	}
	if k, ok := staticRoutes[p]; ok {
		return route{kind: k, query: q}, nil
	}
	for prefix, kind := range map[string]routeKind{"/boards/": routeBoard, "/projects/": routeProject} {
		if rest, ok := strings.CutPrefix(p, prefix); ok {
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil || id <= 0 {
				return route{}, fmt.Errorf("unknown route: %s", s)
			}
			return route{kind: kind, id: id, query: q}, nil
		}
	}
	return route{}, fmt.Errorf("unknown route: %s", s)
}

// navKeys are the number-key shortcuts shown in the header.
var navKeys = []struct {
	key   string
	label string
	path  string
}{
	{"1", "Dashboard", "/dashboard"},
	{"2", "Notifications", "/notifications"},
	{"3", "Messages", "/messages"},
	{"4", "Members", "/members"},
	{"5", "Discover", "/discover"},
	{"6", "Time", "/time"},
	{"7", "Admin", "/admin"},
}

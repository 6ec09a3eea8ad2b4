package testutil

import (
	"fmt"
	"time"
)

// Fixture request type ids. Requests reference KnownRequestTypeID once and
// UnknownRequestTypeID once.
const (
	KnownRequestTypeID   = "rt-1"
	UnknownRequestTypeID = "rt-missing"
)

// LoadStandardFixture fills the mock with one account, 3 users, 2 teams,
// 1 webhook, 2 request types and 5 requests updated within the last hours
// before now.
func (m *MockSpoke) LoadStandardFixture(now time.Time) {
	m.SetAccount(map[string]any{
		"org":         "acme",
		"displayName": "Acme Admin",
		"email":       "admin@acme.test",
	})

	m.SetCollection("/users",
		user("u-1", "Ada Lovelace", "ada@acme.test", "ACTIVE"),
		user("u-2", "Grace Hopper", "grace@acme.test", "ACTIVE"),
		user("u-3", "", "nobody@acme.test", "DEACTIVATED"),
	)

	m.SetCollection("/teams",
		team("t-1", "IT", "it"),
		team("t-2", "People Ops", "people-ops"),
	)

	m.SetCollection("/webhooks", map[string]any{
		"id":          "wh-1",
		"enabled":     true,
		"topics":      []string{"request.created", "request.resolved"},
		"url":         "https://hooks.acme.test/spoke",
		"client":      "acme-bridge",
		"description": "forwards requests to the ticket bridge",
	})

	m.SetCollection("/request_types",
		map[string]any{"id": KnownRequestTypeID, "status": "ACTIVE", "icon": "laptop", "title": "Hardware", "description": "Laptops and peripherals"},
		map[string]any{"id": "rt-2", "status": "ACTIVE", "icon": "key", "title": "Access", "description": "Access requests"},
	)

	requests := make([]any, 0, 5)
	for i := 1; i <= 5; i++ {
		r := map[string]any{
			"id":            fmt.Sprintf("req-%d", i),
			"subject":       fmt.Sprintf("Request %d", i),
			"requester":     "u-1",
			"owner":         "u-2",
			"status":        "OPEN",
			"privacyLevel":  "team",
			"team":          "t-1",
			"org":           "acme",
			"permalink":     fmt.Sprintf("https://acme.askspoke.com/requests/req-%d", i),
			"isAutoResolve": false,
			"isFiled":       true,
			"email":         "help@acme.test",
			"createdAt":     now.Add(-time.Duration(i) * 2 * time.Hour).Format(time.RFC3339),
			"updatedAt":     now.Add(-time.Duration(i) * time.Hour).Format(time.RFC3339),
		}
		switch i {
		case 1:
			r["requestType"] = KnownRequestTypeID
			r["requestTypeInfo"] = map[string]any{"title": "Hardware"}
		case 2:
			r["requestType"] = UnknownRequestTypeID
		}
		requests = append(requests, r)
	}
	m.SetCollection("/requests", requests...)
}

func user(id, name, email, status string) map[string]any {
	return map[string]any{
		"id":                 id,
		"displayName":        name,
		"email":              email,
		"isEmailVerified":    true,
		"isProfileCompleted": name != "",
		"status":             status,
		"profile":            map[string]any{"title": "Engineer"},
		"memberships":        []string{"t-1"},
		"startDate":          "2024-01-08",
	}
}

func team(id, name, slug string) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        name,
		"slug":        slug,
		"description": name + " team",
		"keywords":    []string{slug},
		"icon":        "users",
		"color":       "#336699",
		"status":      "ACTIVE",
		"goals":       map[string]any{"sla": "1d"},
		"createdAt":   "2024-01-01T00:00:00Z",
		"updatedAt":   "2024-06-01T00:00:00Z",
		"owner":       "u-1",
		"org":         "acme",
		"email":       slug + "@acme.test",
		"permalink":   "https://acme.askspoke.com/teams/" + slug,
	}
}

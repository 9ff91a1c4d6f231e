package api

import "github.com/blockedby/grouppulse/internal/telegram"

// GroupResponse is one group entry in the groups listing.
type GroupResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status string `json:"status"`
}

// GroupsFromDomain projects domain groups to the response shape.
func GroupsFromDomain(groups []telegram.Group) []GroupResponse {
	out := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupResponse{ID: g.ID, Name: g.Name})
	}
	return out
}

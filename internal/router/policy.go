package router

import (
	"net/http"

	"github.com/iliyamo/freelance-marketplace/internal/middleware"
	"github.com/iliyamo/freelance-marketplace/internal/model"
)

var (
	admin      = model.RoleAdmin
	client     = model.RoleClient
	freelancer = model.RoleFreelancer
)

// Rules is the access table for the HTTP surface, evaluated first match
// wins.  Anything not listed needs an authenticated caller.
var Rules = []middleware.Rule{
	{Method: http.MethodGet, Pattern: "/healthz", Access: middleware.Public},
	{Method: http.MethodGet, Pattern: "/metrics", Access: middleware.Public},
	{Method: http.MethodPost, Pattern: "/api/login", Access: middleware.Public},
	{Method: http.MethodPost, Pattern: "/api/register", Access: middleware.Public},
	{Method: http.MethodGet, Pattern: "/api/home", Access: middleware.Public},
	{Method: http.MethodGet, Pattern: "/api/application/{id}/download-cv", Access: middleware.Public},

	{Pattern: "/api/user/**", Access: middleware.Roles(admin)},
	{Pattern: "/api/mail/**", Access: middleware.Roles(admin)},

	{Method: http.MethodGet, Pattern: "/api/project/allProjects", Access: middleware.Roles(admin)},
	{Method: http.MethodPost, Pattern: "/api/project/post", Access: middleware.Roles(admin, client)},
	{Method: http.MethodGet, Pattern: "/api/project/available", Access: middleware.Roles(freelancer)},
	{Method: http.MethodGet, Pattern: "/api/project/title/{title}", Access: middleware.Roles(freelancer)},
	{Method: http.MethodGet, Pattern: "/api/project/my-projects", Access: middleware.Roles(admin, client)},
	{Method: http.MethodGet, Pattern: "/api/project/freelancer/my-projects", Access: middleware.Roles(admin, freelancer)},
	{Method: http.MethodGet, Pattern: "/api/project/client/stats", Access: middleware.Roles(client)},
	{Method: http.MethodPost, Pattern: "/api/project/{id}/apply/{username}", Access: middleware.Roles(freelancer)},
	{Method: http.MethodPost, Pattern: "/api/project/{id}/apply/{username}/with-cv", Access: middleware.Roles(freelancer)},
	{Method: http.MethodGet, Pattern: "/api/project/{id}/applications", Access: middleware.Roles(admin, client)},
	{Method: http.MethodGet, Pattern: "/api/project/{id}/freelancer/{freelancerId}", Access: middleware.Roles(admin)},
	{Method: http.MethodPut, Pattern: "/api/project/{id}/complete", Access: middleware.Roles(admin, freelancer)},
	{Method: http.MethodPut, Pattern: "/api/project/{id}/approve", Access: middleware.Roles(admin)},
	{Method: http.MethodPut, Pattern: "/api/project/{id}/deny", Access: middleware.Roles(admin)},
	{Method: http.MethodPut, Pattern: "/api/project/{id}/status", Access: middleware.Roles(admin)},
	{Method: http.MethodPut, Pattern: "/api/project/{id}", Access: middleware.Roles(admin, client)},
	{Method: http.MethodDelete, Pattern: "/api/project/{id}", Access: middleware.Roles(admin, client)},

	{Method: http.MethodGet, Pattern: "/api/client/{username}/my-applications", Access: middleware.Roles(admin, client)},
	{Pattern: "/api/client/**", Access: middleware.Roles(client)},
	{Pattern: "/api/freelancer/**", Access: middleware.Roles(freelancer)},

	{Method: http.MethodPut, Pattern: "/api/application/{id}/approve", Access: middleware.Roles(admin, client)},
	{Method: http.MethodPut, Pattern: "/api/application/{id}/reject", Access: middleware.Roles(admin, client)},
	{Pattern: "/api/application/**", Access: middleware.Roles(admin)},

	{Pattern: "/api/chat/**", Access: middleware.Authenticated},
	{Pattern: "/api/notifications/**", Access: middleware.Roles(client, freelancer, admin)},

	{Method: http.MethodPost, Pattern: "/api/report", Access: middleware.Roles(client, freelancer)},
	{Pattern: "/api/report/**", Access: middleware.Roles(admin)},
}

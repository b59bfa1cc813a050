package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/casework-service/internal/api/http/handlers"
	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Conversations  *handlers.ConversationsHandler
	Consultations  *handlers.ConsultationsHandler
	Broadcast      *handlers.BroadcastHandler
	Directory      *handlers.DirectoryHandler
	WS             *handlers.WSHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	conversations := api.Group("/conversations")
	conversations.Post("", cfg.Conversations.Create)
	conversations.Get("", cfg.Conversations.List)
	conversations.Get("/:id", cfg.Conversations.Get)
	conversations.Post("/:id/messages", cfg.Conversations.AppendMessage)
	conversations.Patch("/:id/status", auth.RequireRoleAtLeast(domain.RoleManager), cfg.Conversations.UpdateStatus)
	conversations.Get("/:id/greeting", auth.RequireRoleAtLeast(domain.RoleManager), cfg.Conversations.PreviewGreeting)

	conversations.Get("/:id/case", auth.RequireRoleAtLeast(domain.RoleManager), cfg.Consultations.GetCase)
	conversations.Put("/:id/case", auth.RequireRoleAtLeast(domain.RoleManager), cfg.Consultations.UpsertCase)
	conversations.Post("/:id/case/tags/generate", auth.RequireRoleAtLeast(domain.RoleManager), cfg.Consultations.GenerateTags)
	conversations.Get("/:id/tag-changes", auth.RequireRoleAtLeast(domain.RoleManager), cfg.Consultations.ListTagChanges)

	api.Post("/messages/:id/artifact/regenerate", auth.RequireRoleAtLeast(domain.RoleManager), cfg.Conversations.RegenerateArtifact)
	api.Post("/suggestion-usages", auth.RequireRoleAtLeast(domain.RoleManager), cfg.Consultations.RecordSuggestionUsage)

	api.Post("/broadcasts", auth.RequireRoleAtLeast(domain.RoleManager), cfg.Broadcast.Broadcast)

	api.Post("/organizations", auth.RequireRole(domain.RoleSystemAdmin), cfg.Directory.CreateOrganization)
	api.Get("/organizations/:id/groups", cfg.Directory.ListGroups)
	api.Post("/groups", auth.RequireRoleAtLeast(domain.RoleAreaManager), cfg.Directory.CreateGroup)
	api.Delete("/groups/:id", auth.RequireRoleAtLeast(domain.RoleAreaManager), cfg.Directory.DeleteGroup)
	api.Post("/groups/:id/restore", auth.RequireRoleAtLeast(domain.RoleAreaManager), cfg.Directory.RestoreGroup)
	api.Post("/groups/:id/migrate", auth.RequireRole(domain.RoleSystemAdmin), cfg.Directory.MigrateGroup)
	api.Post("/groups/:id/memberships", auth.RequireRoleAtLeast(domain.RoleManager), cfg.Directory.AddMembership)
	api.Get("/users/:id/memberships", cfg.Directory.ListMemberships)

	api.Get("/ws", cfg.WS.Upgrade, cfg.WS.Serve())
}

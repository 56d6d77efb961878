package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sagebrookliving/sagebrook-backend/api/controllers"
	"github.com/sagebrookliving/sagebrook-backend/api/middleware"
	"github.com/sagebrookliving/sagebrook-backend/internal/analytics"
	"github.com/sagebrookliving/sagebrook-backend/internal/auth"
	"github.com/sagebrookliving/sagebrook-backend/internal/blog"
	"github.com/sagebrookliving/sagebrook-backend/internal/communities"
	"github.com/sagebrookliving/sagebrook-backend/internal/leads"
	"github.com/sagebrookliving/sagebrook-backend/internal/notifications"
	"github.com/sagebrookliving/sagebrook-backend/internal/users"
	"github.com/sagebrookliving/sagebrook-backend/pkg/auth/session"
	"github.com/sagebrookliving/sagebrook-backend/pkg/bigquery"
	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/db"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pubsub"
	"github.com/sagebrookliving/sagebrook-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pubsubClient *pubsub.Client,
	bigqueryClient bigquery.Pinger,
	sessions session.AccessSessionChecker,
	authService auth.Service,
	registerService auth.AdminRegisterService,
	usersService users.Service,
	leadsService leads.Service,
	communitiesService communities.Service,
	blogService blog.Service,
	notificationsService notifications.Service,
	eventsPublisher *analytics.Publisher,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	leadPolicy := middleware.NewIPRateLimitPolicy(
		"lead",
		cfg.AuthRateLimit.LeadWindow,
		cfg.AuthRateLimit.LeadIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(dbP, redisClient, pubsubClient, bigqueryClient)))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(
			middleware.IPRateLimit(leadPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/leads", controllers.SubmitLead(leadsService, logg))
		r.Post("/events", controllers.TrackSiteEvent(eventsPublisher, logg))

		r.Route("/communities", func(r chi.Router) {
			r.Get("/", controllers.ListCommunities(communitiesService, logg))
			r.Get("/{slug}", controllers.GetCommunity(communitiesService, logg))
		})
		r.Route("/blog", func(r chi.Router) {
			r.Get("/", controllers.ListPosts(blogService, logg))
			r.Get("/{slug}", controllers.GetPost(blogService, logg))
		})
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.Post("/register", controllers.AuthRegister(registerService, authService, cfg, logg))
		}
		r.Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/me/password", controllers.ChangePassword(usersService, logg))

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", controllers.AdminListLeads(leadsService, logg))
			r.Get("/{leadId}", controllers.AdminGetLead(leadsService, logg))
			r.Patch("/{leadId}/status", controllers.AdminUpdateLeadStatus(leadsService, logg))
		})

		r.Route("/communities", func(r chi.Router) {
			r.Get("/", controllers.AdminListCommunities(communitiesService, logg))
			r.Post("/", controllers.AdminCreateCommunity(communitiesService, logg))
			r.Get("/{communityId}", controllers.AdminGetCommunity(communitiesService, logg))
			r.Patch("/{communityId}", controllers.AdminUpdateCommunity(communitiesService, logg))
			r.Post("/{communityId}/publish", controllers.AdminPublishCommunity(communitiesService, logg))
		})

		r.Route("/blog", func(r chi.Router) {
			r.Get("/", controllers.AdminListPosts(blogService, logg))
			r.Post("/", controllers.AdminCreatePost(blogService, logg))
			r.Get("/{postId}", controllers.AdminGetPost(blogService, logg))
			r.Patch("/{postId}", controllers.AdminUpdatePost(blogService, logg))
			r.Post("/{postId}/schedule", controllers.AdminSchedulePost(blogService, logg))
			r.Post("/{postId}/publish", controllers.AdminPublishPost(blogService, logg))
			r.Post("/{postId}/archive", controllers.AdminArchivePost(blogService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/", controllers.AdminListUsers(usersService, logg))
			r.Post("/", controllers.AdminInviteUser(usersService, logg))
			r.Get("/{userId}", controllers.AdminGetUser(usersService, logg))
			r.Patch("/{userId}/role", controllers.AdminUpdateUserRole(usersService, logg))
			r.Patch("/{userId}/active", controllers.AdminSetUserActive(usersService, logg))
		})
	})

	return r
}

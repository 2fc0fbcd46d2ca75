package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legaldrishti/backend/internal/api/handlers"
	"github.com/legaldrishti/backend/internal/api/middleware"
	"github.com/legaldrishti/backend/internal/auth"
	"github.com/legaldrishti/backend/internal/cache"
	"github.com/legaldrishti/backend/internal/chat"
	"github.com/legaldrishti/backend/internal/config"
	"github.com/legaldrishti/backend/internal/llm"
	"github.com/legaldrishti/backend/internal/models"
	"github.com/legaldrishti/backend/internal/pipeline"
	"github.com/legaldrishti/backend/internal/queue"
	"github.com/legaldrishti/backend/internal/storage"
	"github.com/legaldrishti/backend/internal/vectorstore"
)

type Router struct {
	mux     *chi.Mux
	db      *pgxpool.Pool
	cache   *cache.Cache
	blobs   storage.Storage
	cfg     *config.Config
	authSvc *auth.Service
	jwt     *auth.JWTMiddleware
	llmGW   llm.Gateway
}

func NewRouter(db *pgxpool.Pool, c *cache.Cache, blobs storage.Storage, authSvc *auth.Service, cfg *config.Config) *Router {
	return &Router{
		mux:     chi.NewRouter(),
		db:      db,
		cache:   c,
		blobs:   blobs,
		cfg:     cfg,
		authSvc: authSvc,
		jwt:     auth.NewJWTMiddleware(authSvc),
		llmGW:   llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.db, rt.cache)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	store := pipeline.NewPostgresStore(rt.db)
	coordinator := pipeline.NewCoordinator(store, time.Now)
	docSvc := pipeline.NewService(store, coordinator, rt.blobs, time.Now)
	queueClient := queue.NewClient(rt.cfg.Redis)
	vectors := vectorstore.NewPgVectorStore(rt.db, rt.cfg.LLM.EmbeddingDims)
	chatSvc := chat.NewService(rt.llmGW, rt.cfg.LLM.DefaultModel)

	authH := handlers.NewAuthHandler(rt.authSvc)
	docH := handlers.NewDocumentHandler(docSvc, rt.blobs, queueClient)
	stepH := handlers.NewStepHandler(docSvc, queueClient, rt.llmGW, vectors, rt.cfg.LLM.EmbeddingModel)
	taskH := handlers.NewTaskHandler(coordinator)
	statsH := handlers.NewStatsHandler(docSvc, rt.cache)
	chatH := handlers.NewChatHandler(chatSvc)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.Register)
			r.Post("/register/lawyer", authH.RegisterLawyer)
			r.Post("/register/firm", authH.RegisterFirm)
			r.Post("/login", authH.Login)
			r.Post("/refresh", authH.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(rt.jwt.Authenticate)
				r.Get("/me", authH.Me)
				r.Post("/logout", authH.Logout)
				r.With(auth.RequireRoles()).Post("/register/internal", authH.RegisterInternal)
			})
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(rt.jwt.Authenticate)

			r.Route("/chat", func(r chi.Router) {
				r.Post("/", chatH.Respond)
				r.Post("/stream", chatH.Stream)
				r.Get("/personas", chatH.Personas)
				r.Get("/quick-actions", chatH.QuickActions)
				r.Get("/models", chatH.Models)
			})

			r.Get("/files/*", docH.ServeFile)

			// Pipeline operations are internal-team only.
			r.Route("/pipeline", func(r chi.Router) {
				r.Use(auth.RequireRoles(models.RoleInternalTeam))

				r.Get("/stats", statsH.Stats)

				r.Route("/documents", func(r chi.Router) {
					r.Post("/", docH.Upload)
					r.Get("/", docH.List)
					r.Get("/{id}", docH.Get)
					r.Patch("/{id}", docH.Update)
					r.Delete("/{id}", docH.Delete)
					r.Get("/{id}/download", docH.Download)

					r.Post("/{id}/extraction", stepH.SaveExtraction)
					r.Get("/{id}/extraction", stepH.GetExtraction)
					r.Post("/{id}/extraction/auto", stepH.AutoExtract)

					r.Post("/{id}/chunks", stepH.SaveChunks)
					r.Get("/{id}/chunks", stepH.GetChunks)
					r.Post("/{id}/chunks/suggest", stepH.SuggestChunks)
					r.Post("/{id}/chunks/embed", stepH.EmbedChunks)

					r.Post("/{id}/metadata", stepH.SaveMetadata)
					r.Get("/{id}/metadata", stepH.GetMetadata)
					r.Post("/{id}/summary", stepH.SaveSummary)

					r.Post("/{id}/qa-reviews", stepH.CreateQAReview)
					r.Get("/{id}/qa-reviews", stepH.ListQAReviews)

					r.Post("/{id}/publish", stepH.Publish)
					r.Get("/{id}/published", stepH.GetPublished)
				})

				r.Patch("/chunks/{chunkID}", stepH.UpdateChunk)
				r.Get("/chunks/similar", stepH.SimilarChunks)

				r.Route("/tasks", func(r chi.Router) {
					r.Get("/mine", taskH.MyTasks)
					r.Get("/available", taskH.Available)
					r.Post("/assign", taskH.Assign)
					r.Post("/{taskID}/pickup", taskH.Pickup)
					r.Post("/{taskID}/start", taskH.Start)
					r.Post("/{taskID}/complete", taskH.Complete)
					r.Post("/{taskID}/revision", taskH.RequestRevision)
				})
			})
		})
	})

	return r
}

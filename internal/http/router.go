// Package httpapi mounts the companion store's REST API on a Gin engine:
// middleware stack, health and metrics endpoints, Swagger UI, and one route
// per store operation.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-companion-store/docs"
	"github.com/tbourn/go-companion-store/internal/ai"
	"github.com/tbourn/go-companion-store/internal/config"
	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/http/handlers"
	"github.com/tbourn/go-companion-store/internal/http/middleware"
	"github.com/tbourn/go-companion-store/internal/repo"
	"github.com/tbourn/go-companion-store/internal/services"
)

// AIClient is the provider collaborator: chat completions plus model listing.
type AIClient interface {
	ai.Provider
	handlers.ModelLister
}

// Services is the set of store services behind the routes.
type Services struct {
	Entities   *services.EntityStore
	Accounting *services.SessionAccounting
	Config     *services.ConfigStore
	Codec      *services.ImportExportCodec
	Chat       *services.ChatService
}

// NewServices builds every store service on top of kv.
func NewServices(kv repo.KeyValueStore, client ai.Provider, cfg config.Config) *Services {
	es := services.NewEntityStore(kv)
	es.MaxCodeAttempts = cfg.CodeMaxAttempts

	cs := services.NewConfigStore(kv, domain.APIConfig{
		Provider:    cfg.AI.DefaultProvider,
		Endpoint:    cfg.AI.DefaultEndpoint,
		Model:       cfg.AI.DefaultModel,
		MaxTokens:   cfg.AI.DefaultMaxTokens,
		Temperature: cfg.AI.DefaultTemperature,
	})
	acc := services.NewSessionAccounting(es)

	chat := services.NewChatService(es, acc, cs, client)
	chat.HistoryLimit = cfg.AI.HistoryLimit

	return &Services{
		Entities:   es,
		Accounting: acc,
		Config:     cs,
		Codec:      services.NewImportExportCodec(es, cs),
		Chat:       chat,
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the store API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. AccessLog: structured logs with secret scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per client/IP)
//  8. CORS and security headers
//  9. gzip (exports are large and compress well)
func RegisterRoutes(r *gin.Engine, kv repo.KeyValueStore, client AIClient, cfg config.Config) *Services {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(middleware.LogOptions{
		MaskHeaders: []string{"X-Provider-Key"},
	}))
	r.Use(middleware.Recovery())

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 32 << 20
	}
	r.Use(limitBody(maxBody))

	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClient())
	r.Use(rl.Handler())

	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderClientID}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Responses carry provider API keys: never cache them.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", health(kv))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	svc := NewServices(kv, client, cfg)
	h := handlers.New(handlers.Deps{
		Directory:  svc.Entities,
		Accounting: svc.Accounting,
		Exchanger:  svc.Chat,
		Settings:   svc.Config,
		Transfer:   svc.Codec,
		Models:     client,
	})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Friends
		api.POST("/friends", h.AddFriend)
		api.GET("/friends", h.ListFriends)
		api.GET("/friends/:id", h.GetFriend)
		api.PATCH("/friends/:id", h.UpdateFriend)
		api.DELETE("/friends/:id", h.DeleteFriend)

		// Chats, exchanges and stats
		api.GET("/friends/:id/chat", h.GetChat)
		api.PUT("/friends/:id/chat", h.SaveChat)
		api.DELETE("/friends/:id/chat", h.DeleteChat)
		api.GET("/friends/:id/messages", h.ListMessages)
		api.POST("/friends/:id/send", h.Send)
		api.DELETE("/friends/:id/exchange", h.AbandonExchange)
		api.GET("/friends/:id/stats", h.GetStats)
		api.POST("/friends/:id/stats/usage", h.ApplyUsage)
		api.DELETE("/friends/:id/stats", h.ResetStats)

		// Memory
		api.GET("/friends/:id/memory", h.GetMemory)
		api.PUT("/friends/:id/memory", h.SaveMemory)
		api.POST("/friends/:id/memory/entries", h.AppendMemoryEntry)
		api.DELETE("/friends/:id/memory", h.DeleteMemory)

		// Friend codes
		api.POST("/codes/generate", h.GenerateFriendCode)
		api.POST("/codes", h.AddFriendCode)
		api.GET("/codes", h.ListFriendCodes)
		api.GET("/codes/:code", h.GetCodeInfo)
		api.PUT("/codes/:code/status", h.UpdateCodeStatus)

		// Groups
		api.GET("/groups", h.ListGroups)
		api.POST("/groups", h.AddGroup)
		api.GET("/groups/:id/friends", h.ListGroupFriends)
		api.PUT("/groups/:id", h.RenameGroup)
		api.DELETE("/groups/:id", h.DeleteGroup)

		// Configuration
		api.GET("/config/api", h.GetAPIConfig)
		api.PATCH("/config/api", h.UpdateAPIConfig)
		api.POST("/config/api/models", h.ListModels)
		api.GET("/config/voice", h.GetVoiceConfig)
		api.PUT("/config/voice", h.SaveVoiceConfig)
		api.GET("/config/user", h.GetUserSettings)
		api.PUT("/config/user", h.SaveUserSettings)

		// Presets
		api.GET("/presets", h.ListPresets)
		api.POST("/presets", h.SavePreset)
		api.PATCH("/presets/:id", h.UpdatePreset)
		api.DELETE("/presets/:id", h.DeletePreset)
		api.POST("/presets/:id/load", h.LoadPreset)

		// Import / export
		api.GET("/export", h.Export)
		api.GET("/export/partial", h.ExportPartial)
		api.POST("/import", h.Import)
	}
	return svc
}

// health reports liveness and, when the store can describe itself, its key
// count. A failing store turns the probe into a 503.
func health(kv repo.KeyValueStore) gin.HandlerFunc {
	st, _ := kv.(repo.Stater)
	return func(c *gin.Context) {
		if st == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		stats, err := st.Stats(c.Request.Context())
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("store stats failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": stats})
	}
}

// limitBody caps the request body size for all endpoints to maxBytes using
// http.MaxBytesReader. Requests exceeding the cap cause downstream body
// reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

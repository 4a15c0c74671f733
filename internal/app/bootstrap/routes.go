// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	errorsfeature "github.com/dalemusser/groupchat/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/groupchat/internal/app/features/groups"
	healthfeature "github.com/dalemusser/groupchat/internal/app/features/health"
	groupservice "github.com/dalemusser/groupchat/internal/app/service/groups"
	conversationstore "github.com/dalemusser/groupchat/internal/app/store/groupconversations"
	messagestore "github.com/dalemusser/groupchat/internal/app/store/groupmessages"
	"github.com/dalemusser/groupchat/internal/app/system/auth"
	"github.com/dalemusser/groupchat/internal/app/system/notify"
	"github.com/dalemusser/groupchat/internal/app/system/requestid"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The router tags every request with an
// id, resolves the caller from the gateway header, and mounts the health
// check and the group conversation API.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	identity := auth.NewIdentity(appCfg.UserHeader, errorsHandler.Unauthenticated, logger)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	// Loads the caller id into context when present; routes that need one
	// add identity.RequireUser.
	r.Use(identity.LoadUser)
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	var rdb redis.UniversalClient
	if deps.Redis != nil {
		rdb = deps.Redis
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, rdb, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Group conversations. The service reads 0 retries as "use the default",
	// so an explicit 0 from config becomes -1.
	retries := appCfg.ConflictRetries
	if retries == 0 {
		retries = -1
	}
	svc := groupservice.New(
		conversationstore.New(deps.MongoDatabase),
		messagestore.New(deps.MongoDatabase),
		notify.NewOutboxDispatcher(deps.Outbox, logger),
		logger,
		groupservice.Config{
			MaxContentLength: appCfg.MaxContentLength,
			DefaultPageSize:  appCfg.DefaultPageSize,
			MaxPageSize:      appCfg.MaxPageSize,
			ConflictRetries:  retries,
		},
	)
	groupsHandler := groupsfeature.NewHandler(svc, errLog, logger).WithSendLimiter(deps.SendLimiter)
	r.Mount("/api/groups", groupsfeature.Routes(groupsHandler, identity))

	return r, nil
}

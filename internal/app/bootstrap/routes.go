// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	contactfeature "github.com/dalemusser/classhub/internal/app/features/contact"
	groupsfeature "github.com/dalemusser/classhub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/classhub/internal/app/features/health"
	lecturesfeature "github.com/dalemusser/classhub/internal/app/features/lectures"
	usersfeature "github.com/dalemusser/classhub/internal/app/features/users"
	"github.com/dalemusser/classhub/internal/app/services/accounts"
	"github.com/dalemusser/classhub/internal/app/services/catalog"
	"github.com/dalemusser/classhub/internal/app/services/contact"
	"github.com/dalemusser/classhub/internal/app/services/coursework"
	"github.com/dalemusser/classhub/internal/app/services/enrollment"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// classhub builds its services over the shared database and event
// transport, applies CORS and bearer-token middleware, and mounts the JSON
// API under /api.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	st := deps.state
	if st == nil || st.tokens == nil {
		return nil, errors.New("build handler: startup has not run")
	}
	db := deps.MongoDatabase

	catalogSvc := catalog.New(db, logger)
	enrollmentSvc := enrollment.New(db, deps.Events, appCfg.AdminEmail, logger)
	courseworkSvc := coursework.New(db, deps.Events, logger)
	accountsSvc := accounts.New(db, st.tokens, deps.Events, accounts.Config{
		AdminEmail:           appCfg.AdminEmail,
		CodeTTL:              appCfg.VerifyCodeTTL,
		RequireVerifiedEmail: appCfg.RequireVerifiedEmail,
	}, logger)
	contactSvc := contact.New(db, deps.Events, appCfg.AdminEmail, logger)

	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Global auth middleware: attaches the bearer-token principal, if any.
	r.Use(st.tokens.LoadPrincipal)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Events, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		usersHandler := usersfeature.NewHandler(accountsSvc, courseworkSvc, st.logins, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler))

		groupsHandler := groupsfeature.NewHandler(catalogSvc, enrollmentSvc, courseworkSvc, logger)
		api.Mount("/groups", groupsfeature.Routes(groupsHandler))

		lecturesHandler := lecturesfeature.NewHandler(courseworkSvc, st.checkIns, logger)
		api.Mount("/lectures", lecturesfeature.Routes(lecturesHandler))

		contactHandler := contactfeature.NewHandler(contactSvc, st.contact, logger)
		api.Mount("/contact", contactfeature.Routes(contactHandler))
	})

	return r, nil
}

const requestIDHeader = "X-Request-ID"

// requestID echoes the caller's X-Request-ID or assigns a fresh one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

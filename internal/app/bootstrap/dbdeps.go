// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/classhub/internal/app/system/auth"
	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/app/system/ratelimit"
	"github.com/dalemusser/classhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Events carries notifications from the services to the notifier.
	Events events.Transport

	// state is filled in by Startup and torn down by Shutdown.
	state *appState
}

// appState holds long-lived components built once config and backends
// are ready.
type appState struct {
	tokens   *auth.Manager
	notifier *workers.Notifier

	logins   *ratelimit.LoginLimiter
	checkIns *ratelimit.CheckInLimiter
	contact  *ratelimit.Limiter
}

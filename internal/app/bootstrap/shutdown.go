// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown closes the event transport, lets the notifier deliver what was
// already queued, releases throttles, and disconnects MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Events != nil {
		if err := deps.Events.Close(); err != nil {
			logger.Warn("event transport close failed", zap.Error(err))
		}
	}

	if st := deps.state; st != nil {
		if st.notifier != nil {
			st.notifier.Stop(ctx)
		}
		if st.logins != nil {
			st.logins.Close()
		}
		if st.checkIns != nil {
			st.checkIns.Close()
		}
		if st.contact != nil {
			st.contact.Close()
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}

// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/classhub/internal/app/system/auth"
	"github.com/dalemusser/classhub/internal/app/system/mailer"
	"github.com/dalemusser/classhub/internal/app/system/ratelimit"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
	"github.com/dalemusser/classhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the token manager and request throttles, and starts the notification
// worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.state == nil {
		return errors.New("startup: backends not connected")
	}
	timeouts.Configure(appCfg.Timeouts)

	tokens, err := auth.NewManager(appCfg.JWTSecret, appCfg.JWTTTL, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return err
	}

	sender, err := mailer.New(mailer.Config{
		Backend:     appCfg.MailBackend,
		SMTPHost:    appCfg.MailSMTPHost,
		SMTPPort:    appCfg.MailSMTPPort,
		SMTPUser:    appCfg.MailSMTPUser,
		SMTPPass:    appCfg.MailSMTPPass,
		SendGridKey: appCfg.SendGridAPIKey,
		From:        appCfg.MailFrom,
		FromName:    appCfg.MailFromName,
	}, logger)
	if err != nil {
		logger.Error("mailer init failed", zap.Error(err))
		return err
	}

	notifier := workers.NewNotifier(deps.Events, sender, logger, appCfg.MailFromName, appCfg.BaseURL)
	if err := notifier.Start(); err != nil {
		logger.Error("notifier start failed", zap.Error(err))
		return err
	}

	st := deps.state
	st.tokens = tokens
	st.notifier = notifier
	st.logins = ratelimit.NewLoginLimiter(appCfg.LoginRateLimit)
	st.checkIns = ratelimit.NewCheckInLimiter(appCfg.CheckInRateLimit)
	st.contact = ratelimit.New(appCfg.ContactRateLimit, time.Minute)
	return nil
}

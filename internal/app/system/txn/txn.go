// internal/app/system/txn/txn.go

// Package txn runs multi-document writes as one all-or-nothing unit.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a MongoDB transaction. The context passed to fn is
// bound to the session, so every store call made with it joins the
// transaction. Transient commit errors are retried by the driver.
//
// Standalone servers cannot run transactions. When the deployment reports
// that, Run logs a warning and runs fn without one; this only happens in
// local development.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runPlain(ctx, log, fn, err)
		}
		return err
	}
	defer sess.EndSession(ctx)

	var fnErr error
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		fnErr = fn(sc)
		return nil, fnErr
	})
	if err == nil {
		return nil
	}
	// On a standalone server the first write inside fn is what fails.
	if IsNotSupported(err) {
		return runPlain(ctx, log, fn, err)
	}
	if fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	return err
}

func runPlain(ctx context.Context, log *zap.Logger, fn func(ctx context.Context) error, cause error) error {
	if log != nil {
		log.Warn("transactions not supported; running without one", zap.Error(cause))
	}
	return fn(ctx)
}

// IsNotSupported reports whether err says the deployment cannot run
// transactions (standalone mongod, or a server that rejects sessions).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // codes returned by standalone and session-less servers
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}

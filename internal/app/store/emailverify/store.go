// internal/app/store/emailverify/store.go
package emailverify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the length of an emailed code (6 digits).
	CodeLength = 6
	// DefaultExpiry is how long a code is valid.
	DefaultExpiry = 10 * time.Minute
	// BcryptCost for hashing codes.
	BcryptCost = 10
	// MaxVerifyAttempts is the number of guesses allowed per code.
	MaxVerifyAttempts = 5
	// MaxResends is the number of codes that may be re-sent within ResendWindow.
	MaxResends = 3
	// ResendWindow is the time window for tracking resend rate limiting.
	ResendWindow = 10 * time.Minute
)

// Purpose separates the codes a user may hold at the same time.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

var (
	// ErrNotFound is returned when no unexpired code exists.
	ErrNotFound = errors.New("code not found or expired")
	// ErrInvalidCode is returned when the code doesn't match.
	ErrInvalidCode = errors.New("invalid code")
	// ErrTooManyAttempts is returned once a code has been guessed at too often.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrTooManyResends is returned when codes are requested too often.
	ErrTooManyResends = errors.New("too many resend requests")
)

// Code is a pending emailed code.
type Code struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      primitive.ObjectID `bson:"user_id"`
	Purpose     Purpose            `bson:"purpose"`
	Email       string             `bson:"email"`
	CodeHash    string             `bson:"code_hash"`  // bcrypt hash of the 6-digit code
	ExpiresAt   time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt   time.Time          `bson:"created_at"`
	Attempts    int                `bson:"attempts"`
	ResendCount int                `bson:"resend_count"`
	WindowStart time.Time          `bson:"window_start"` // start of the resend window
}

// Store manages emailed codes.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New creates a Store whose codes live for expiry. If expiry is 0 or
// negative, DefaultExpiry is used.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		c:      db.Collection("email_codes"),
		expiry: expiry,
	}
}

// Expiry returns how long codes are valid.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// CreateResult contains a freshly issued code.
type CreateResult struct {
	Code        string // plain text code to mail to the user
	ExpiresAt   time.Time
	ResendCount int
}

// Create issues a new code for userID and purpose, replacing any earlier
// one. If isResend is true, it counts against the resend limit.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, email string, purpose Purpose, isResend bool) (*CreateResult, error) {
	now := time.Now().UTC()
	key := bson.M{"user_id": userID, "purpose": purpose}

	var existing Code
	err := s.c.FindOne(ctx, key).Decode(&existing)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	found := err == nil

	resendCount := 0
	windowStart := now
	if found && now.Before(existing.WindowStart.Add(ResendWindow)) {
		if isResend && existing.ResendCount >= MaxResends {
			return nil, ErrTooManyResends
		}
		windowStart = existing.WindowStart
		resendCount = existing.ResendCount
		if isResend {
			resendCount++
		}
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	if _, err := s.c.DeleteMany(ctx, key); err != nil {
		return nil, err
	}
	c := Code{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Purpose:     purpose,
		Email:       email,
		CodeHash:    string(hash),
		ExpiresAt:   now.Add(s.expiry),
		CreatedAt:   now,
		ResendCount: resendCount,
		WindowStart: windowStart,
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return nil, fmt.Errorf("insert code: %w", err)
	}

	return &CreateResult{Code: code, ExpiresAt: c.ExpiresAt, ResendCount: resendCount}, nil
}

// Verify checks code against userID's pending code for purpose. A matching
// code is consumed. Every call counts as an attempt.
func (s *Store) Verify(ctx context.Context, userID primitive.ObjectID, purpose Purpose, code string) (*Code, error) {
	var c Code
	err := s.c.FindOne(ctx, bson.M{
		"user_id":    userID,
		"purpose":    purpose,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if c.Attempts >= MaxVerifyAttempts {
		return nil, ErrTooManyAttempts
	}
	if _, err := s.c.UpdateByID(ctx, c.ID, bson.M{"$inc": bson.M{"attempts": 1}}); err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)); err != nil {
		return nil, ErrInvalidCode
	}

	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": c.ID}); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteByUser removes every code held by a user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

// generateCode returns a random 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

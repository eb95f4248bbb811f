package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

// ResetTokenRepository keeps at most one reset token per user, embedded in
// the user document. Sharing the document with the password hash lets a
// single update spend the token and replace the password.
type ResetTokenRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewResetTokenRepository(db *mongo.Database, timeout time.Duration) *ResetTokenRepository {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ResetTokenRepository{coll: db.Collection(usersCollection), timeout: timeout}
}

type resetDocument struct {
	TokenHash  string     `bson:"token_hash"`
	ExpiresAt  time.Time  `bson:"expires_at"`
	ConsumedAt *time.Time `bson:"consumed_at"`
	CreatedAt  time.Time  `bson:"created_at"`
}

// Save replaces any outstanding token of the user.
func (r *ResetTokenRepository) Save(ctx context.Context, token *domain.PasswordResetToken) error {
	oid, err := primitive.ObjectIDFromHex(token.UserID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc := resetDocument{
		TokenHash: token.TokenHash,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"reset": doc}})
	if err != nil {
		return storeError("save reset token", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Consume marks the token consumed and stores passwordHash in one
// findAndModify. The filter only matches an unconsumed, unexpired token of an
// active account, so concurrent callers race on the server and at most one
// wins.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"reset.token_hash":  tokenHash,
		"reset.consumed_at": nil,
		"reset.expires_at":  bson.M{"$gt": now},
		"status":            bson.M{"$ne": string(domain.UserStatusLocked)},
	}
	update := bson.M{
		"$set": bson.M{
			"password_hash":     passwordHash,
			"reset.consumed_at": now,
			"updated_at":        now.Unix(),
		},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storeError("consume reset token", err)
	}
	return r.classify(ctx, tokenHash, passwordHash, now)
}

// classify explains why Consume matched nothing. A token already spent by
// this same passwordHash means an earlier attempt committed but its reply was
// lost; that is reported as success.
func (r *ResetTokenRepository) classify(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*domain.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{"reset.token_hash": tokenHash}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, storeError("classify reset token", err)
	}
	if doc.Reset == nil {
		return nil, domain.ErrInvalidToken
	}
	if doc.Reset.ConsumedAt != nil && doc.PasswordHash == passwordHash {
		return doc.toDomain(), nil
	}
	if domain.UserStatus(doc.Status) == domain.UserStatusLocked {
		return nil, domain.ErrInvalidToken
	}

	token := domain.PasswordResetToken{
		TokenHash:  doc.Reset.TokenHash,
		ExpiresAt:  doc.Reset.ExpiresAt,
		ConsumedAt: doc.Reset.ConsumedAt,
	}
	if err := token.State(now).Err(); err != nil {
		return nil, err
	}
	return nil, domain.ErrInvalidToken
}

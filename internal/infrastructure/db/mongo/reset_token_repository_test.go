package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

func resetDoc(expires time.Time, consumed *time.Time) bson.D {
	var consumedAt interface{}
	if consumed != nil {
		consumedAt = *consumed
	}
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "reset", Value: bson.D{
			{Key: "token_hash", Value: "abc"},
			{Key: "expires_at", Value: expires},
			{Key: "consumed_at", Value: consumedAt},
			{Key: "created_at", Value: expires.Add(-15 * time.Minute)},
		}},
	}
}

func withFields(doc bson.D, fields ...bson.E) bson.D {
	return append(doc, fields...)
}

func TestResetTokenRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	mt.Run("save for unknown user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		repo := NewResetTokenRepository(mt.DB, time.Second)

		err := repo.Save(context.Background(), &domain.PasswordResetToken{UserID: primitive.NewObjectID().Hex(), TokenHash: "abc"})
		if !errors.Is(err, domain.ErrUserNotFound) {
			mt.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	mt.Run("save replaces token", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		repo := NewResetTokenRepository(mt.DB, time.Second)

		err := repo.Save(context.Background(), &domain.PasswordResetToken{
			UserID: primitive.NewObjectID().Hex(), TokenHash: "abc", ExpiresAt: now.Add(time.Minute), CreatedAt: now,
		})
		if err != nil {
			mt.Fatalf("unexpected error: %v", err)
		}
	})

	mt.Run("consume returns updated user", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		doc := userDoc(id, "alice", 4)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc}))
		repo := NewResetTokenRepository(mt.DB, time.Second)

		user, err := repo.Consume(context.Background(), "abc", "new-hash", now)
		if err != nil {
			mt.Fatalf("unexpected error: %v", err)
		}
		if user.ID != id.Hex() || user.Version != 4 {
			mt.Fatalf("unexpected user: %+v", user)
		}
	})

	mt.Run("consume replayed after lost reply", func(mt *mtest.T) {
		doc := withFields(resetDoc(now.Add(time.Minute), &now),
			bson.E{Key: "username", Value: "alice"},
			bson.E{Key: "password_hash", Value: "new-hash"},
			bson.E{Key: "version", Value: int64(2)},
		)
		responses := []bson.D{mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})}
		responses = append(responses, findResponses(doc)...)
		mt.AddMockResponses(responses...)
		repo := NewResetTokenRepository(mt.DB, time.Second)

		user, err := repo.Consume(context.Background(), "abc", "new-hash", now)
		if err != nil {
			mt.Fatalf("unexpected error: %v", err)
		}
		if user.Username != "alice" || user.Version != 2 {
			mt.Fatalf("unexpected user: %+v", user)
		}
	})

	cases := []struct {
		name string
		docs []bson.D
		want error
	}{
		{"unknown token", nil, domain.ErrInvalidToken},
		{"expired token", []bson.D{resetDoc(now.Add(-time.Second), nil)}, domain.ErrTokenExpired},
		{"consumed token", []bson.D{resetDoc(now.Add(time.Minute), &now)}, domain.ErrTokenConsumed},
		{"consumed with another password", []bson.D{withFields(resetDoc(now.Add(time.Minute), &now),
			bson.E{Key: "password_hash", Value: "other-hash"})}, domain.ErrTokenConsumed},
		{"locked account", []bson.D{withFields(resetDoc(now.Add(time.Minute), nil),
			bson.E{Key: "status", Value: string(domain.UserStatusLocked)})}, domain.ErrInvalidToken},
	}
	for _, tc := range cases {
		tc := tc
		mt.Run(tc.name, func(mt *mtest.T) {
			responses := []bson.D{mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})}
			responses = append(responses, findResponses(tc.docs...)...)
			mt.AddMockResponses(responses...)
			repo := NewResetTokenRepository(mt.DB, time.Second)

			_, err := repo.Consume(context.Background(), "abc", "new-hash", now)
			if !errors.Is(err, tc.want) {
				mt.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

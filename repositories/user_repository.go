// repositories/user_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nkhalil/accounts_backend/models"
)

// ErrUserNotFound is returned when no account matches the lookup key.
var ErrUserNotFound = errors.New("user not found")

// UserStore is the storage capability the account lifecycle depends on.
// Accounts are looked up by their unique keys (email, mobile, id) and mutated
// with single-document updates; concurrent writers race last-writer-wins.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailOrMobile(ctx context.Context, email, mobile string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Create(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	// RefreshChallenge re-arms an unverified account: name and password hash
	// are replaced and a fresh OTP challenge is stored.
	RefreshChallenge(ctx context.Context, id primitive.ObjectID, name, passwordHash string, otp models.OTPInfo) error
	SetOTP(ctx context.Context, id primitive.ObjectID, otp models.OTPInfo) error
	// MarkVerified flips the account to verified and clears the OTP challenge.
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	// ResetPassword replaces the password hash and clears the OTP challenge in
	// a single update, so a consumed reset code cannot be replayed.
	ResetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	ClearExpiredOTPs(ctx context.Context) (int64, error)
}

// UserRepository is the MongoDB-backed UserStore.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(collection *mongo.Collection) *UserRepository {
	return &UserRepository{collection: collection}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByEmailOrMobile(ctx context.Context, email, mobile string) (*models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"mobile": mobile},
	}}
	return r.findOne(ctx, filter)
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return user.ID, nil
}

func (r *UserRepository) RefreshChallenge(ctx context.Context, id primitive.ObjectID, name, passwordHash string, otp models.OTPInfo) error {
	update := bson.M{"$set": bson.M{
		"name":      name,
		"password":  passwordHash,
		"otpInfo":   otp,
		"updatedAt": time.Now(),
	}}
	return r.updateOne(ctx, id, update)
}

func (r *UserRepository) SetOTP(ctx context.Context, id primitive.ObjectID, otp models.OTPInfo) error {
	update := bson.M{"$set": bson.M{
		"otpInfo":   otp,
		"updatedAt": time.Now(),
	}}
	return r.updateOne(ctx, id, update)
}

func (r *UserRepository) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$set":   bson.M{"isVerified": true, "updatedAt": time.Now()},
		"$unset": bson.M{"otpInfo": ""},
	}
	return r.updateOne(ctx, id, update)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	update := bson.M{"$set": bson.M{
		"password":  passwordHash,
		"updatedAt": time.Now(),
	}}
	return r.updateOne(ctx, id, update)
}

func (r *UserRepository) ResetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	update := bson.M{
		"$set":   bson.M{"password": passwordHash, "updatedAt": time.Now()},
		"$unset": bson.M{"otpInfo": ""},
	}
	return r.updateOne(ctx, id, update)
}

func (r *UserRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearExpiredOTPs drops OTP challenges whose validity window has passed.
func (r *UserRepository) ClearExpiredOTPs(ctx context.Context) (int64, error) {
	filter := bson.M{"otpInfo.expiresAt": bson.M{"$lt": time.Now()}}
	update := bson.M{"$unset": bson.M{"otpInfo": ""}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

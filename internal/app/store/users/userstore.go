package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/hirehub/internal/app/system/authutil"
	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/paging"
	"github.com/dalemusser/hirehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "admin"|"personnel"`)
	errBadStatus      = errors.New(`status must be "active"|"disabled"`)
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads the users with the given ids. Missing ids are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	out := []models.User{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
// An empty password leaves the account unable to sign in.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	u.Status = normalize.Status(u.Status)
	if u.Status == "" {
		u.Status = models.UserActive
	}
	if u.Role == models.RoleAdmin {
		u.CanApproveTime = true
	}

	if !normalize.OneOf(u.Role, []string{models.RoleAdmin, models.RolePersonnel}) {
		return models.User{}, errBadRole
	}
	if !normalize.OneOf(u.Status, []string{models.UserActive, models.UserDisabled}) {
		return models.User{}, errBadStatus
	}

	if password != "" {
		hash, err := authutil.HashPassword(password)
		if err != nil {
			return models.User{}, err
		}
		u.PasswordHash = hash
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Role   string
	Status string
	Search string // prefix of name
}

// List returns one keyset page of users ordered by name.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) (paging.Page[models.User], error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = normalize.Role(f.Role)
	}
	if f.Status != "" {
		filter["status"] = normalize.Status(f.Status)
	}
	if lo, hi := text.PrefixRange(f.Search); lo != "" {
		filter["full_name_ci"] = bson.M{"$gte": lo, "$lt": hi}
	}
	return paging.Find(ctx, s.c, filter, p, "full_name_ci",
		func(u models.User) string { return u.FullNameCI },
		func(u models.User) primitive.ObjectID { return u.ID })
}

// Update holds the admin-editable fields of a user. Nil pointers are left unchanged.
type Update struct {
	FullName       *string
	Role           *string
	Status         *string
	CanApproveTime *bool
	Password       *string
	PersonnelID    *primitive.ObjectID
	ClearPersonnel bool
}

// Update applies upd and returns the updated user.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.FullName != nil {
		name := normalize.Name(*upd.FullName)
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if upd.Role != nil {
		role := normalize.Role(*upd.Role)
		if !normalize.OneOf(role, []string{models.RoleAdmin, models.RolePersonnel}) {
			return nil, errBadRole
		}
		set["role"] = role
	}
	if upd.Status != nil {
		st := normalize.Status(*upd.Status)
		if !normalize.OneOf(st, []string{models.UserActive, models.UserDisabled}) {
			return nil, errBadStatus
		}
		set["status"] = st
	}
	if upd.CanApproveTime != nil {
		set["can_approve_time"] = *upd.CanApproveTime
	}
	if upd.Password != nil {
		hash, err := authutil.HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		set["password_hash"] = hash
	}
	switch {
	case upd.ClearPersonnel:
		unset["personnel_id"] = ""
	case upd.PersonnelID != nil:
		set["personnel_id"] = *upd.PersonnelID
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return s.GetByID(ctx, id)
}

// Delete removes a user. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// TouchLogin records a successful sign-in.
func (s *Store) TouchLogin(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login_at": now}})
	return err
}

// UnlinkPersonnel clears the personnel link of any account pointing at pid.
func (s *Store) UnlinkPersonnel(ctx context.Context, pid primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"personnel_id": pid}, bson.M{
		"$unset": bson.M{"personnel_id": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// EmailExistsForOther checks if an email already exists for a user other than the given ID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// CountAdmins counts active admin accounts.
func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"role": models.RoleAdmin, "status": models.UserActive})
}

// EnsureAdmin creates the bootstrap admin when no account with email exists.
// It reports whether an account was created.
func (s *Store) EnsureAdmin(ctx context.Context, email, fullName, password string) (bool, error) {
	if _, err := s.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if err != mongo.ErrNoDocuments {
		return false, err
	}
	if fullName == "" {
		fullName = "Administrator"
	}
	_, err := s.Create(ctx, models.User{
		FullName: fullName,
		Email:    email,
		Role:     models.RoleAdmin,
	}, password)
	if errors.Is(err, ErrDuplicateEmail) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

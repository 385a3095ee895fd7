package applicationstore

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/paging"
	"github.com/dalemusser/hirehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateEmail is returned when another application already uses the email.
	ErrDuplicateEmail = errors.New("an application with this email already exists")
	// ErrNotPending is returned when an applicant edits an application that is under review or decided.
	ErrNotPending = errors.New("application can only be edited while pending")
	// ErrEditConflict is returned when the application changed between read and write.
	ErrEditConflict = errors.New("application was modified concurrently")
	// ErrConverted is returned for operations not allowed once personnel exists.
	ErrConverted = errors.New("application has already been converted to personnel")
)

type Store struct {
	c        *mongo.Collection
	versions *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("applications"),
		versions: db.Collection("application_versions"),
	}
}

// NewEditToken returns a fresh applicant edit token.
func NewEditToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// HashToken returns the hex SHA-256 of an edit token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyToken reports whether token authorizes access to app.
func VerifyToken(app *models.Application, token string) bool {
	if app == nil || token == "" || app.EditTokenHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(app.EditTokenHash)) == 1
}

func prepare(a *models.Application) {
	a.FullName = normalize.Name(a.FullName)
	a.FullNameCI = text.Fold(a.FullName)
	a.Email = normalize.Email(a.Email)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Position = normalize.Name(a.Position)
	a.Skills = normalize.Skills(a.Skills)
	a.Availability = strings.TrimSpace(a.Availability)
	a.Links.Portfolio = strings.TrimSpace(a.Links.Portfolio)
	a.Links.LinkedIn = strings.TrimSpace(a.Links.LinkedIn)
	a.Links.GitHub = strings.TrimSpace(a.Links.GitHub)
	a.Links.Resume = strings.TrimSpace(a.Links.Resume)
}

// Create inserts a pending application and returns it together with the
// plaintext edit token. The token is not recoverable later.
func (s *Store) Create(ctx context.Context, a models.Application) (models.Application, string, error) {
	prepare(&a)
	a.ID = primitive.NewObjectID()
	a.Status = models.ApplicationPending
	a.Version = 1
	a.PersonnelID = nil
	a.ReviewedBy = nil
	a.ReviewedAt = nil
	a.ReviewNotes = ""

	token := NewEditToken()
	a.EditTokenHash = HashToken(token)

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Application{}, "", ErrDuplicateEmail
		}
		return models.Application{}, "", err
	}
	return a, token, nil
}

// EmailExists reports whether an application other than exclude uses email.
// Pass primitive.NilObjectID to check all applications.
func (s *Store) EmailExists(ctx context.Context, email string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"email": normalize.Email(email)}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	err := s.c.FindOne(ctx, filter).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// GetByID loads an application by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Application, error) {
	var a models.Application
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListFilter narrows List. Search matches a prefix of the name or email.
type ListFilter struct {
	Status string
	Search string
}

// List returns one keyset page of applications ordered by applicant name.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) (paging.Page[models.Application], error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = normalize.Status(f.Status)
	}
	if lo, hi := text.PrefixRange(f.Search); lo != "" {
		or := bson.A{bson.M{"full_name_ci": bson.M{"$gte": lo, "$lt": hi}}}
		if e := normalize.Email(f.Search); e != "" {
			or = append(or, bson.M{"email": bson.M{"$gte": e, "$lt": e + "\uffff"}})
		}
		filter["$or"] = or
	}
	return paging.Find(ctx, s.c, filter, p, "full_name_ci",
		func(a models.Application) string { return a.FullNameCI },
		func(a models.Application) primitive.ObjectID { return a.ID })
}

// Edit holds the applicant-editable fields. Edits replace all of them.
type Edit struct {
	FullName        string
	Email           string
	Phone           string
	Position        string
	Skills          []string
	ExperienceYears int
	CoverLetter     string
	Links           models.ApplicationLinks
	Availability    string
}

// Diff lists the editable fields that differ between cur and next.
func Diff(cur, next *models.Application) []models.FieldChange {
	var out []models.FieldChange
	add := func(field, old, new string) {
		if old != new {
			out = append(out, models.FieldChange{Field: field, Old: old, New: new})
		}
	}
	add("full_name", cur.FullName, next.FullName)
	add("email", cur.Email, next.Email)
	add("phone", cur.Phone, next.Phone)
	add("position", cur.Position, next.Position)
	add("skills", strings.Join(cur.Skills, ", "), strings.Join(next.Skills, ", "))
	add("experience_years", strconv.Itoa(cur.ExperienceYears), strconv.Itoa(next.ExperienceYears))
	add("cover_letter", cur.CoverLetter, next.CoverLetter)
	add("links.portfolio", cur.Links.Portfolio, next.Links.Portfolio)
	add("links.linkedin", cur.Links.LinkedIn, next.Links.LinkedIn)
	add("links.github", cur.Links.GitHub, next.Links.GitHub)
	add("links.resume", cur.Links.Resume, next.Links.Resume)
	add("availability", cur.Availability, next.Availability)
	return out
}

// Edit applies an edit to a pending application, records the field-level
// changes as a new ApplicationVersion and bumps the version. When nothing
// changed the application is returned as is with no changes.
//
// The update only matches the version that was read, so two concurrent edits
// cannot both win; the loser gets ErrEditConflict.
func (s *Store) Edit(ctx context.Context, id primitive.ObjectID, in Edit, editedBy string) (*models.Application, []models.FieldChange, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if cur.Status != models.ApplicationPending {
		return nil, nil, ErrNotPending
	}

	next := *cur
	next.FullName = in.FullName
	next.Email = in.Email
	next.Phone = in.Phone
	next.Position = in.Position
	next.Skills = in.Skills
	next.ExperienceYears = in.ExperienceYears
	next.CoverLetter = in.CoverLetter
	next.Links = in.Links
	next.Availability = in.Availability
	prepare(&next)

	changes := Diff(cur, &next)
	if len(changes) == 0 {
		return cur, nil, nil
	}

	now := time.Now().UTC()
	next.Version = cur.Version + 1
	next.UpdatedAt = now

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ApplicationPending, "version": cur.Version},
		bson.M{"$set": bson.M{
			"full_name":        next.FullName,
			"full_name_ci":     next.FullNameCI,
			"email":            next.Email,
			"phone":            next.Phone,
			"position":         next.Position,
			"skills":           next.Skills,
			"experience_years": next.ExperienceYears,
			"cover_letter":     next.CoverLetter,
			"links":            next.Links,
			"availability":     next.Availability,
			"version":          next.Version,
			"updated_at":       now,
		}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, nil, ErrDuplicateEmail
		}
		return nil, nil, err
	}
	if res.MatchedCount == 0 {
		latest, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if latest.Status != models.ApplicationPending {
			return nil, nil, ErrNotPending
		}
		return nil, nil, ErrEditConflict
	}

	v := models.ApplicationVersion{
		ID:            primitive.NewObjectID(),
		ApplicationID: id,
		Version:       next.Version,
		Changes:       changes,
		EditedBy:      editedBy,
		EditedAt:      now,
	}
	if _, err := s.versions.InsertOne(ctx, v); err != nil {
		return nil, nil, err
	}
	return &next, changes, nil
}

// ListVersions returns the edit history of an application, oldest first.
func (s *Store) ListVersions(ctx context.Context, appID primitive.ObjectID) ([]models.ApplicationVersion, error) {
	cur, err := s.versions.Find(ctx, bson.M{"application_id": appID},
		options.Find().SetSort(bson.D{{Key: "version", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.ApplicationVersion{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus records a review decision and returns the previous status with
// the updated application. Converted applications keep their status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status, notes string, reviewer primitive.ObjectID) (string, *models.Application, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if cur.PersonnelID != nil {
		return "", nil, ErrConverted
	}

	now := time.Now().UTC()
	set := bson.M{
		"status":       normalize.Status(status),
		"review_notes": strings.TrimSpace(notes),
		"reviewed_at":  now,
		"updated_at":   now,
	}
	if !reviewer.IsZero() {
		set["reviewed_by"] = reviewer
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "personnel_id": bson.M{"$exists": false}},
		bson.M{"$set": set})
	if err != nil {
		return "", nil, err
	}
	if res.MatchedCount == 0 {
		return "", nil, ErrConverted
	}
	after, err := s.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return cur.Status, after, nil
}

// LinkPersonnel marks the application as converted.
func (s *Store) LinkPersonnel(ctx context.Context, id, personnelID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"personnel_id": personnelID,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UnlinkPersonnel clears the conversion link, e.g. after the personnel record is deleted.
func (s *Store) UnlinkPersonnel(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$unset": bson.M{"personnel_id": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// Delete removes an application that has not been converted.
// Returns ErrConverted for converted applications and mongo.ErrNoDocuments when missing.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "personnel_id": bson.M{"$exists": false}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 1 {
		return nil
	}
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Err(); err != nil {
		return err
	}
	return ErrConverted
}

// DeleteVersions removes the edit history of an application.
func (s *Store) DeleteVersions(ctx context.Context, appID primitive.ObjectID) (int64, error) {
	res, err := s.versions.DeleteMany(ctx, bson.M{"application_id": appID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByStatus returns the number of applications per status. Every known
// status is present in the result, zero when absent.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(models.ApplicationStatuses))
	for _, st := range models.ApplicationStatuses {
		out[st] = 0
	}
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}

// Recent returns the n most recently submitted applications.
func (s *Store) Recent(ctx context.Context, n int64) ([]models.Application, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(n))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Application{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

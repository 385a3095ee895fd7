// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/hirehub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("applications", applicationsSchema())
	ensure("application_versions", applicationVersionsSchema())
	ensure("communications", communicationsSchema())
	ensure("personnel", personnelSchema())
	ensure("departments", departmentsSchema())
	ensure("projects", projectsSchema())
	ensure("tasks", tasksSchema())
	ensure("time_entries", timeEntriesSchema())
	ensure("linear_workspaces", linearWorkspacesSchema())

	// No validators; created up front so transactions can write to them.
	ensure("counters", nil)
	ensure("oauth_states", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	str      = bson.M{"bsonType": "string"}
	oid      = bson.M{"bsonType": "objectId"}
	optOID   = bson.M{"bsonType": bson.A{"objectId", "null"}}
	date     = bson.M{"bsonType": "date"}
	optDate  = bson.M{"bsonType": bson.A{"date", "null"}}
	integer  = bson.M{"bsonType": bson.A{"int", "long"}}
	boolean  = bson.M{"bsonType": "bool"}
	strArray = bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "string"}}
)

func enum(values []string) bson.M {
	a := make(bson.A, 0, len(values))
	for _, v := range values {
		a = append(a, v)
	}
	return bson.M{"enum": a}
}

func schema(required []string, props bson.M) bson.M {
	req := make(bson.A, 0, len(required))
	for _, r := range required {
		req = append(req, r)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   req,
			"properties": props,
		},
	}
}

func usersSchema() bson.M {
	return schema([]string{"full_name", "email", "role", "status"}, bson.M{
		"full_name":        nonBlank,
		"full_name_ci":     nonBlank,
		"email":            nonBlank,
		"password_hash":    str,
		"role":             enum([]string{models.RoleAdmin, models.RolePersonnel}),
		"status":           enum([]string{models.UserActive, models.UserDisabled}),
		"personnel_id":     optOID,
		"can_approve_time": boolean,
	})
}

func applicationsSchema() bson.M {
	return schema([]string{"full_name", "full_name_ci", "email", "position", "status", "edit_token_hash", "version", "created_at"}, bson.M{
		"full_name":        nonBlank,
		"full_name_ci":     nonBlank,
		"email":            nonBlank,
		"position":         nonBlank,
		"skills":           strArray,
		"experience_years": integer,
		"status":           enum(models.ApplicationStatuses),
		"edit_token_hash":  nonBlank,
		"version":          integer,
		"reviewed_by":      optOID,
		"personnel_id":     optOID,
		"created_at":       date,
		"updated_at":       date,
	})
}

func applicationVersionsSchema() bson.M {
	return schema([]string{"application_id", "version", "changes", "edited_at"}, bson.M{
		"application_id": oid,
		"version":        integer,
		"changes":        bson.M{"bsonType": "array"},
		"edited_by":      enum([]string{models.SenderApplicant, models.SenderAdmin}),
		"edited_at":      date,
	})
}

func communicationsSchema() bson.M {
	return schema([]string{"application_id", "sender_type", "body", "is_read", "created_at"}, bson.M{
		"application_id": oid,
		"sender_type":    enum([]string{models.SenderApplicant, models.SenderAdmin, models.SenderSystem}),
		"sender_id":      optOID,
		"body":           nonBlank,
		"is_read":        boolean,
		"read_at":        optDate,
		"created_at":     date,
	})
}

func personnelSchema() bson.M {
	return schema([]string{"application_id", "employee_id", "full_name", "email", "status", "onboarding"}, bson.M{
		"application_id": oid,
		"employee_id":    nonBlank,
		"full_name":      nonBlank,
		"full_name_ci":   nonBlank,
		"email":          nonBlank,
		"skills":         strArray,
		"department_id":  optOID,
		"manager_id":     optOID,
		"status":         enum(models.PersonnelStatuses),
		"onboarding": bson.M{
			"bsonType": "object",
			"required": bson.A{"total_steps", "completed_steps", "percent"},
			"properties": bson.M{
				"total_steps":     integer,
				"completed_steps": integer,
				"percent":         bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0, "maximum": 100},
			},
		},
	})
}

func departmentsSchema() bson.M {
	return schema([]string{"name", "name_ci", "status"}, bson.M{
		"name":    nonBlank,
		"name_ci": nonBlank,
		"head_id": optOID,
		"status":  enum([]string{"active", "archived"}),
	})
}

func projectsSchema() bson.M {
	return schema([]string{"name", "name_ci", "status", "priority", "sync_status"}, bson.M{
		"name":              nonBlank,
		"name_ci":           nonBlank,
		"status":            enum(models.ProjectStatuses),
		"priority":          enum(models.Priorities),
		"sync_status":       enum(models.SyncStatuses),
		"lead_id":           optOID,
		"department_id":     optOID,
		"linear_project_id": str,
	})
}

func tasksSchema() bson.M {
	return schema([]string{"project_id", "title", "status", "priority", "sync_status"}, bson.M{
		"project_id":      oid,
		"title":           nonBlank,
		"status":          enum(models.TaskStatuses),
		"priority":        enum(models.Priorities),
		"sync_status":     enum(models.SyncStatuses),
		"assignee_id":     optOID,
		"due_date":        optDate,
		"linear_issue_id": str,
	})
}

func timeEntriesSchema() bson.M {
	return schema([]string{"personnel_id", "project_id", "date", "duration_minutes", "is_approved"}, bson.M{
		"personnel_id":     oid,
		"project_id":       oid,
		"task_id":          optOID,
		"date":             date,
		"duration_minutes": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": 1440},
		"billable":         boolean,
		"is_approved":      boolean,
		"approved_by":      optOID,
	})
}

func linearWorkspacesSchema() bson.M {
	return schema([]string{"key", "organization_id", "access_token"}, bson.M{
		"key":             nonBlank,
		"organization_id": nonBlank,
		"access_token":    nonBlank,
		"expires_at":      optDate,
	})
}

// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup fails fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"applications", ensureApplications},
		{"application_versions", ensureApplicationVersions},
		{"communications", ensureCommunications},
		{"personnel", ensurePersonnel},
		{"departments", ensureDepartments},
		{"projects", ensureProjects},
		{"tasks", ensureTasks},
		{"time_entries", ensureTimeEntries},
		{"linear_workspaces", ensureLinearWorkspaces},
		{"oauth_states", ensureOAuthStates},
		{"audit_events", ensureAuditEvents},
	}

	var problems []string
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

// listExisting maps key signature to index for coll. A listing error yields
// an empty map; the subsequent CreateOne reports anything real.
func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// duplicateHint names a query that finds offending documents for the
// unique indexes most likely to trip over legacy data.
func duplicateHint(coll, sig string) string {
	field := ""
	switch {
	case coll == "users" && strings.Contains(sig, "email:1"):
		field = "email"
	case coll == "applications" && strings.Contains(sig, "email:1"):
		field = "email"
	case coll == "personnel" && strings.Contains(sig, "employee_id:1"):
		field = "employee_id"
	}
	if field == "" {
		return ""
	}
	return fmt.Sprintf(" (find duplicates: db.%s.aggregate([{ $group: { _id: \"$%s\", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }]))", coll, field)
}

func createErr(coll *mongo.Collection, name, sig string, unique bool, err error) string {
	if isDuplicateKeyErr(err) && unique {
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s", coll.Name(), name, duplicateHint(coll.Name(), sig))
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

// recreate drops an index and creates the desired model in its place.
func recreate(ctx context.Context, coll *mongo.Collection, old string, m mongo.IndexModel, name, sig string, unique bool) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		zap.L().Warn("drop existing index failed",
			zap.String("collection", coll.Name()),
			zap.String("name", old),
			zap.Error(err))
		return fmt.Errorf("%s(%s): drop failed: %v", coll.Name(), name, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		return errors.New(createErr(coll, name, sig, unique, err))
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var name string
		var uniquePtr *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			uniquePtr = m.Options.Unique
		}
		unique := uniquePtr != nil && *uniquePtr
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
		}
		zap.L().Debug("ensuring index", fields...)

		existing := listExisting(ctx, coll)
		if ex, ok := existing[sig]; ok {
			switch {
			case sameBoolPtr(uniquePtr, ex.Unique) && (name == "" || ex.Name == name):
				zap.L().Debug("reusing existing index", fields...)
			case sameBoolPtr(uniquePtr, ex.Unique):
				// Same keys and options under another name: align the name.
				if err := recreate(ctx, coll, ex.Name, m, name, sig, unique); err != nil {
					errs = append(errs, err.Error())
					continue
				}
				zap.L().Info("index renamed", append(fields, zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))...)
			default:
				// Options differ (e.g. upgrading to unique).
				if err := recreate(ctx, coll, ex.Name, m, name, sig, unique); err != nil {
					errs = append(errs, err.Error())
					continue
				}
				zap.L().Info("index dropped and recreated", append(fields, zap.Duration("took", time.Since(start)))...)
			}
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err == nil {
			zap.L().Info("index ensured", append(fields, zap.String("created_name", created), zap.Duration("took", time.Since(start)))...)
			continue
		}

		if isOptionsConflictErr(err) {
			if match, ok := listExisting(ctx, coll)[sig]; ok {
				if sameBoolPtr(uniquePtr, match.Unique) {
					zap.L().Info("reusing existing index (post-conflict)", append(fields, zap.String("existing_name", match.Name))...)
					continue
				}
				if rerr := recreate(ctx, coll, match.Name, m, name, sig, unique); rerr != nil {
					errs = append(errs, rerr.Error())
					continue
				}
				zap.L().Info("index dropped and recreated (post-conflict)", fields...)
				continue
			}
		}

		zap.L().Warn("index ensure failed", append(fields, zap.Duration("took", time.Since(start)), zap.Error(err))...)
		errs = append(errs, createErr(coll, name, sig, unique, err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// onlyStrings restricts a unique index to documents where field is set.
func onlyStrings(field string) bson.D {
	return bson.D{{Key: field, Value: bson.D{{Key: "$type", Value: "string"}}}}
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Users list: role/status filters, name sort, stable tiebreak.
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "status", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_status_fullnameci_id"),
		},
		{
			Keys:    bson.D{{Key: "personnel_id", Value: 1}},
			Options: options.Index().SetName("idx_users_personnel"),
		},
	})
}

func ensureApplications(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("applications"), []mongo.IndexModel{
		// One application per email address.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_applications_email"),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_applications_status_fullnameci_id"),
		},
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_applications_fullnameci_id"),
		},
		// Dashboard "newest applications".
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_applications_created_desc"),
		},
	})
}

func ensureApplicationVersions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("application_versions"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "application_id", Value: 1}, {Key: "version", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_appversions_app_version"),
		},
	})
}

func ensureCommunications(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("communications"), []mongo.IndexModel{
		// Thread in chronological order.
		{
			Keys: bson.D{
				{Key: "application_id", Value: 1},
				{Key: "created_at", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_comms_app_created_id"),
		},
		// Unread counts per sender side.
		{
			Keys: bson.D{
				{Key: "application_id", Value: 1},
				{Key: "sender_type", Value: 1},
				{Key: "is_read", Value: 1},
			},
			Options: options.Index().SetName("idx_comms_app_sender_read"),
		},
	})
}

func ensurePersonnel(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("personnel"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "employee_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_personnel_employee_id"),
		},
		// At most one personnel record per application; makes conversion idempotent under races.
		{
			Keys:    bson.D{{Key: "application_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_personnel_application"),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_personnel_status_fullnameci_id"),
		},
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_personnel_fullnameci_id"),
		},
		{
			Keys:    bson.D{{Key: "department_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_personnel_department_status"),
		},
	})
}

func ensureDepartments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("departments"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_departments_nameci"),
		},
	})
}

func ensureProjects(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("projects"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_projects_status_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_projects_nameci_id"),
		},
		// Webhook lookups; unlinked projects carry no linear_project_id.
		{
			Keys: bson.D{{Key: "linear_project_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_projects_linear_project").
				SetPartialFilterExpression(onlyStrings("linear_project_id")),
		},
		{
			Keys:    bson.D{{Key: "sync_status", Value: 1}},
			Options: options.Index().SetName("idx_projects_sync_status"),
		},
	})
}

func ensureTasks(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("tasks"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "project_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_tasks_project_status_id"),
		},
		{
			Keys:    bson.D{{Key: "assignee_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_tasks_assignee_status"),
		},
		{
			Keys: bson.D{{Key: "linear_issue_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tasks_linear_issue").
				SetPartialFilterExpression(onlyStrings("linear_issue_id")),
		},
		{
			Keys:    bson.D{{Key: "sync_status", Value: 1}},
			Options: options.Index().SetName("idx_tasks_sync_status"),
		},
	})
}

func ensureTimeEntries(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("time_entries"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "personnel_id", Value: 1},
				{Key: "date", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_time_personnel_date"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_time_project_date"),
		},
		// Pending approvals count on the admin dashboard.
		{
			Keys:    bson.D{{Key: "is_approved", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_time_approved_date"),
		},
	})
}

func ensureLinearWorkspaces(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("linear_workspaces"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_linear_workspace_key"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("oauth_states"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_oauth_state"),
		},
		// TTL index for automatic cleanup
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_ttl"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_ts"),
		},
		{
			Keys:    bson.D{{Key: "target_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_target_ts"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_ts"),
		},
	})
}

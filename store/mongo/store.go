package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
	"github.com/xraph/warrant/store"
)

// Collection name constants.
const (
	colRoles           = "warrant_roles"
	colPermissions     = "warrant_permissions"
	colRolePermissions = "warrant_role_permissions"
	colAssignments     = "warrant_assignments"
	colGrants          = "warrant_grants"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite warrant store.
//
// Multi-document writes run inside a session transaction, so the server
// must be a replica set or a sharded cluster.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all warrant collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("warrant/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all warrant collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colRoles: {
			{
				Keys:    bson.D{{Key: "guard", Value: 1}, {Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}}},
		},
		colPermissions: {
			{
				Keys:    bson.D{{Key: "guard", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colRolePermissions: {
			{
				Keys:    bson.D{{Key: "role_id", Value: 1}, {Key: "permission_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "permission_id", Value: 1}}},
		},
		colAssignments: {
			{
				Keys: bson.D{
					{Key: "tenant_id", Value: 1},
					{Key: "role_id", Value: 1},
					{Key: "subject_kind", Value: 1},
					{Key: "subject_id", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "subject_kind", Value: 1}, {Key: "subject_id", Value: 1}, {Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "role_id", Value: 1}}},
		},
		colGrants: {
			{
				Keys: bson.D{
					{Key: "tenant_id", Value: 1},
					{Key: "permission_id", Value: 1},
					{Key: "subject_kind", Value: 1},
					{Key: "subject_id", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "subject_kind", Value: 1}, {Key: "subject_id", Value: 1}, {Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "permission_id", Value: 1}}},
		},
	}
}

// contains builds a case-insensitive substring match on a literal string.
func contains(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

// withTx runs fn in a session transaction. The transaction commits when fn
// returns nil and aborts otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *mongodriver.MongoTx) error) error {
	raw, err := s.mdb.GroveTx(ctx, 0, false)
	if err != nil {
		return fmt.Errorf("warrant: begin tx: %w", err)
	}
	tx, ok := raw.(*mongodriver.MongoTx)
	if !ok {
		return fmt.Errorf("warrant: begin tx: unexpected %T", raw)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("warrant: commit tx: %w", err)
	}
	return nil
}

// exists reports whether a document matching f is visible to tx. A
// duplicate-key error aborts a MongoDB transaction, so idempotent inserts
// look before they write.
func exists(ctx context.Context, tx *mongodriver.MongoTx, model any, f bson.M) (bool, error) {
	n, err := tx.NewFind(model).Filter(f).Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func tenantFilter(f bson.M, scoped bool, tenantIDs []string) {
	if scoped {
		f["tenant_id"] = bson.M{"$in": tenantIDs}
	}
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	if _, err := s.mdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
		}
		return fmt.Errorf("warrant: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get role: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, guard, tenantID, name string) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"guard": guard, "tenant_id": tenantID, "name": name}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get role by name: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	m := roleToModel(r)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
		}
		return fmt.Errorf("warrant: update role: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRoles(ctx context.Context, roleIDs []id.RoleID) error {
	if len(roleIDs) == 0 {
		return nil
	}
	ids := id.Strings(roleIDs)

	return s.withTx(ctx, func(tx *mongodriver.MongoTx) error {
		if _, err := tx.NewDelete((*rolePermissionModel)(nil)).
			Many().
			Filter(bson.M{"role_id": bson.M{"$in": ids}}).
			Exec(ctx); err != nil {
			return fmt.Errorf("warrant: delete role edges: %w", err)
		}
		if _, err := tx.NewDelete((*assignmentModel)(nil)).
			Many().
			Filter(bson.M{"role_id": bson.M{"$in": ids}}).
			Exec(ctx); err != nil {
			return fmt.Errorf("warrant: delete role assignments: %w", err)
		}
		res, err := tx.NewDelete((*roleModel)(nil)).
			Many().
			Filter(bson.M{"_id": bson.M{"$in": ids}}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("warrant: delete roles: %w", err)
		}
		if n := res.DeletedCount(); int(n) != len(ids) {
			return fmt.Errorf("delete roles: %d of %d found: %w", n, len(ids), store.ErrNotFound)
		}
		return nil
	})
}

func roleFilter(filter *role.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	tenantFilter(f, filter.Scoped, filter.TenantIDs)
	if filter.Guard != "" {
		f["guard"] = filter.Guard
	}
	if filter.Search != "" {
		f["name"] = contains(filter.Search)
	}
	return f
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	if filter.Empty() {
		return []*role.Role{}, nil
	}
	var models []roleModel
	q := s.mdb.NewFind(&models).
		Filter(roleFilter(filter)).
		Sort(bson.D{{Key: "name", Value: 1}, {Key: "tenant_id", Value: 1}, {Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list roles: %w", err)
	}
	return s.withPermissionCounts(ctx, models)
}

// ListRolesByPermission returns the roles the permission is attached to,
// restricted to the filter's tenants.
func (s *Store) ListRolesByPermission(ctx context.Context, permID id.PermissionID, filter *role.ListFilter) ([]*role.Role, error) {
	if filter.Empty() {
		return []*role.Role{}, nil
	}
	var edges []rolePermissionModel
	if err := s.mdb.NewFind(&edges).
		Filter(bson.M{"permission_id": permID.String()}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list roles by permission: %w", err)
	}
	if len(edges) == 0 {
		return []*role.Role{}, nil
	}
	roleIDs := make([]string, len(edges))
	for i, e := range edges {
		roleIDs[i] = e.RoleID
	}

	f := roleFilter(filter)
	f["_id"] = bson.M{"$in": roleIDs}
	var models []roleModel
	if err := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "name", Value: 1}, {Key: "tenant_id", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list roles by permission: %w", err)
	}
	return s.withPermissionCounts(ctx, models)
}

func (s *Store) withPermissionCounts(ctx context.Context, models []roleModel) ([]*role.Role, error) {
	result := make([]*role.Role, len(models))
	ids := make([]string, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
		ids[i] = models[i].ID
	}
	if len(ids) == 0 {
		return result, nil
	}

	var edges []rolePermissionModel
	if err := s.mdb.NewFind(&edges).
		Filter(bson.M{"role_id": bson.M{"$in": ids}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: count role permissions: %w", err)
	}
	counts := make(map[string]int, len(ids))
	for _, e := range edges {
		counts[e.RoleID]++
	}
	for _, r := range result {
		r.PermissionCount = counts[r.ID.String()]
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	if filter.Empty() {
		return 0, nil
	}
	count, err := s.mdb.NewFind((*roleModel)(nil)).
		Filter(roleFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count roles: %w", err)
	}
	return count, nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	var models []rolePermissionModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"role_id": roleID.String()}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list role permissions: %w", err)
	}
	result := make([]id.PermissionID, 0, len(models))
	for _, m := range models {
		pid, err := id.ParsePermissionID(m.PermissionID)
		if err == nil {
			result = append(result, pid)
		}
	}
	return result, nil
}

func (s *Store) UpdatePermissionEdges(ctx context.Context, attach, detach []role.Edge) error {
	if len(attach) == 0 && len(detach) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *mongodriver.MongoTx) error {
		for _, e := range detach {
			_, err := tx.NewDelete((*rolePermissionModel)(nil)).
				Filter(bson.M{"role_id": e.RoleID.String(), "permission_id": e.PermissionID.String()}).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("warrant: detach permission: %w", err)
			}
		}
		for _, e := range attach {
			m := edgeToModel(e)
			found, err := exists(ctx, tx, (*rolePermissionModel)(nil),
				bson.M{"role_id": m.RoleID, "permission_id": m.PermissionID})
			if err != nil {
				return fmt.Errorf("warrant: attach permission: %w", err)
			}
			if found {
				continue
			}
			if _, err := tx.NewInsert(&m).Exec(ctx); err != nil {
				return fmt.Errorf("warrant: attach permission: %w", err)
			}
		}
		return nil
	})
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermissions(ctx context.Context, ps []*permission.Permission) error {
	if len(ps) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *mongodriver.MongoTx) error {
		for _, p := range ps {
			m := permissionToModel(p)
			if _, err := tx.NewInsert(&m).Exec(ctx); err != nil {
				if mongod.IsDuplicateKeyError(err) {
					return fmt.Errorf("permission %q: %w", p.Name, store.ErrConflict)
				}
				return fmt.Errorf("warrant: create permissions: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": permID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get permission: %w", err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) GetPermissionByName(ctx context.Context, guard, name string) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"guard": guard, "name": name}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get permission by name: %w", err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) DeletePermissions(ctx context.Context, permIDs []id.PermissionID) error {
	if len(permIDs) == 0 {
		return nil
	}
	ids := id.Strings(permIDs)

	return s.withTx(ctx, func(tx *mongodriver.MongoTx) error {
		if _, err := tx.NewDelete((*rolePermissionModel)(nil)).
			Many().
			Filter(bson.M{"permission_id": bson.M{"$in": ids}}).
			Exec(ctx); err != nil {
			return fmt.Errorf("warrant: delete permission edges: %w", err)
		}
		if _, err := tx.NewDelete((*grantModel)(nil)).
			Many().
			Filter(bson.M{"permission_id": bson.M{"$in": ids}}).
			Exec(ctx); err != nil {
			return fmt.Errorf("warrant: delete permission grants: %w", err)
		}
		res, err := tx.NewDelete((*permissionModel)(nil)).
			Many().
			Filter(bson.M{"_id": bson.M{"$in": ids}}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("warrant: delete permissions: %w", err)
		}
		if n := res.DeletedCount(); int(n) != len(ids) {
			return fmt.Errorf("delete permissions: %d of %d found: %w", n, len(ids), store.ErrNotFound)
		}
		return nil
	})
}

func permissionFilter(filter *permission.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.Guard != "" {
		f["guard"] = filter.Guard
	}
	var and bson.A
	if filter.Search != "" {
		and = append(and, bson.M{"name": contains(filter.Search)})
	}
	if len(filter.Resources) > 0 {
		or := make(bson.A, len(filter.Resources))
		for i, r := range filter.Resources {
			or[i] = bson.M{"name": bson.M{"$regex": regexp.QuoteMeta(r) + "$", "$options": "i"}}
		}
		and = append(and, bson.M{"$or": or})
	}
	if len(and) > 0 {
		f["$and"] = and
	}
	return f
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	q := s.mdb.NewFind(&models).
		Filter(permissionFilter(filter)).
		Sort(bson.D{{Key: "name", Value: 1}, {Key: "guard", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list permissions: %w", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		result[i] = permissionFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*permissionModel)(nil)).
		Filter(permissionFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count permissions: %w", err)
	}
	return count, nil
}

func (s *Store) ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	var rpModels []rolePermissionModel
	if err := s.mdb.NewFind(&rpModels).
		Filter(bson.M{"role_id": roleID.String()}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list permissions by role: %w", err)
	}
	if len(rpModels) == 0 {
		return []*permission.Permission{}, nil
	}

	permIDs := make([]string, len(rpModels))
	for i, rp := range rpModels {
		permIDs[i] = rp.PermissionID
	}

	var models []permissionModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$in": permIDs}}).
		Sort(bson.D{{Key: "name", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list permissions by role: %w", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		result[i] = permissionFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignments(ctx context.Context, as []*assignment.Assignment) error {
	if len(as) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *mongodriver.MongoTx) error {
		for _, a := range as {
			m := assignmentToModel(a)
			found, err := exists(ctx, tx, (*assignmentModel)(nil), bson.M{
				"tenant_id":    m.TenantID,
				"role_id":      m.RoleID,
				"subject_kind": m.SubjectKind,
				"subject_id":   m.SubjectID,
			})
			if err != nil {
				return fmt.Errorf("warrant: create assignment: %w", err)
			}
			if found {
				continue
			}
			if _, err := tx.NewInsert(&m).Exec(ctx); err != nil {
				return fmt.Errorf("warrant: create assignment: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) DeleteAssignment(ctx context.Context, key assignment.Key) error {
	_, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Filter(bson.M{
			"tenant_id":    key.TenantID,
			"role_id":      key.RoleID.String(),
			"subject_kind": key.SubjectKind,
			"subject_id":   key.SubjectID,
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: delete assignment: %w", err)
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	if filter.Empty() {
		return []*assignment.Assignment{}, nil
	}
	f := bson.M{}
	if filter != nil {
		tenantFilter(f, filter.Scoped, filter.TenantIDs)
		if filter.RoleID != nil {
			f["role_id"] = filter.RoleID.String()
		}
		if filter.Guard != "" {
			f["guard"] = filter.Guard
		}
		if filter.SubjectKind != "" {
			f["subject_kind"] = filter.SubjectKind
		}
		if filter.SubjectID != "" {
			f["subject_id"] = filter.SubjectID
		}
	}
	var models []assignmentModel
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListSubjectsForRole(ctx context.Context, roleID id.RoleID) ([]*assignment.Assignment, error) {
	return s.ListAssignments(ctx, &assignment.ListFilter{RoleID: &roleID})
}

// ──────────────────────────────────────────────────
// Grant operations
// ──────────────────────────────────────────────────

func (s *Store) CreateGrants(ctx context.Context, gs []*grant.Grant) error {
	if len(gs) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *mongodriver.MongoTx) error {
		for _, g := range gs {
			m := grantToModel(g)
			found, err := exists(ctx, tx, (*grantModel)(nil), bson.M{
				"tenant_id":     m.TenantID,
				"permission_id": m.PermissionID,
				"subject_kind":  m.SubjectKind,
				"subject_id":    m.SubjectID,
			})
			if err != nil {
				return fmt.Errorf("warrant: create grant: %w", err)
			}
			if found {
				continue
			}
			if _, err := tx.NewInsert(&m).Exec(ctx); err != nil {
				return fmt.Errorf("warrant: create grant: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) DeleteGrant(ctx context.Context, key grant.Key) error {
	_, err := s.mdb.NewDelete((*grantModel)(nil)).
		Filter(bson.M{
			"tenant_id":     key.TenantID,
			"permission_id": key.PermissionID.String(),
			"subject_kind":  key.SubjectKind,
			"subject_id":    key.SubjectID,
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("warrant: delete grant: %w", err)
	}
	return nil
}

func (s *Store) ListGrants(ctx context.Context, filter *grant.ListFilter) ([]*grant.Grant, error) {
	if filter.Empty() {
		return []*grant.Grant{}, nil
	}
	f := bson.M{}
	if filter != nil {
		tenantFilter(f, filter.Scoped, filter.TenantIDs)
		if filter.PermissionID != nil {
			f["permission_id"] = filter.PermissionID.String()
		}
		if filter.Guard != "" {
			f["guard"] = filter.Guard
		}
		if filter.SubjectKind != "" {
			f["subject_kind"] = filter.SubjectKind
		}
		if filter.SubjectID != "" {
			f["subject_id"] = filter.SubjectID
		}
	}
	var models []grantModel
	if err := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list grants: %w", err)
	}
	result := make([]*grant.Grant, len(models))
	for i := range models {
		result[i] = grantFromModel(&models[i])
	}
	return result, nil
}

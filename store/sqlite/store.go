// Package sqlite provides a SQLite implementation of the warrant composite
// store using grove ORM. It suits single-node deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
	"github.com/xraph/warrant/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite implementation of the composite warrant store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("warrant/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("warrant/sqlite: migration failed: %w", err)
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

// writeErr maps constraint violations onto the store sentinels. The SQLite
// driver reports them only in the message text.
func writeErr(op string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("warrant: %s: %w", op, store.ErrConflict)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("warrant: %s: %w", op, store.ErrNotFound)
	}
	return fmt.Errorf("warrant: %s: %w", op, err)
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// clause is one WHERE predicate with its arguments.
type clause struct {
	query string
	args  []any
}

// inClause expands one placeholder per value. The driver binds a slice as a
// single argument, so "IN (?)" never matches.
func inClause(column string, values []string) clause {
	if len(values) == 0 {
		return clause{"1 = 0", nil}
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	return clause{column + " IN (" + marks + ")", args}
}

func tenantClause(scoped bool, tenantIDs []string) []clause {
	if !scoped {
		return nil
	}
	return []clause{inClause("tenant_id", tenantIDs)}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likeClause matches name case-insensitively against pattern, where pattern
// is built from escaped user text.
func likeClause(pattern string) clause {
	return clause{`LOWER(name) LIKE LOWER(?) ESCAPE '\'`, []any{pattern}}
}

func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}

// page applies limit and offset. SQLite rejects OFFSET without LIMIT.
func page(q *sqlitedriver.SelectQuery, limit, offset int) *sqlitedriver.SelectQuery {
	if limit > 0 {
		q = q.Limit(limit)
	} else if offset > 0 {
		q = q.Limit(math.MaxInt32)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

// deleteIn deletes every row of model whose column is in values.
func deleteIn(ctx context.Context, tx *sqlitedriver.SqliteTx, model any, column string, values []string) (driver.Result, error) {
	c := inClause(column, values)
	return tx.NewDelete(model).Where(c.query, c.args...).Exec(ctx)
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	_, err := s.sdb.NewInsert(roleToModel(r)).Exec(ctx)
	if err != nil {
		return writeErr("create role", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get role: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, guard, tenantID, name string) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).
		Where("guard = ?", guard).
		Where("tenant_id = ?", tenantID).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get role by name: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	res, err := s.sdb.NewUpdate(roleToModel(r)).WherePK().Exec(ctx)
	if err != nil {
		return writeErr("update role", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("warrant: update role: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRoles(ctx context.Context, roleIDs []id.RoleID) error {
	if len(roleIDs) == 0 {
		return nil
	}
	ids := id.Strings(roleIDs)

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("warrant: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := deleteIn(ctx, tx, (*rolePermissionModel)(nil), "role_id", ids); err != nil {
		return fmt.Errorf("warrant: delete role edges: %w", err)
	}
	if _, err := deleteIn(ctx, tx, (*assignmentModel)(nil), "role_id", ids); err != nil {
		return fmt.Errorf("warrant: delete role assignments: %w", err)
	}
	res, err := deleteIn(ctx, tx, (*roleModel)(nil), "id", ids)
	if err != nil {
		return fmt.Errorf("warrant: delete roles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("warrant: delete roles: %w", err)
	}
	if int(n) != len(ids) {
		return fmt.Errorf("delete roles: %d of %d found: %w", n, len(ids), store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("warrant: commit tx: %w", err)
	}
	return nil
}

func roleClauses(filter *role.ListFilter) []clause {
	if filter == nil {
		return nil
	}
	cs := tenantClause(filter.Scoped, filter.TenantIDs)
	if filter.Guard != "" {
		cs = append(cs, clause{"guard = ?", []any{filter.Guard}})
	}
	if filter.Search != "" {
		cs = append(cs, likeClause(containsPattern(filter.Search)))
	}
	return cs
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	if filter.Empty() {
		return []*role.Role{}, nil
	}
	var models []roleModel
	q := s.sdb.NewSelect(&models).OrderExpr("name ASC, tenant_id ASC, id ASC")
	for _, c := range roleClauses(filter) {
		q = q.Where(c.query, c.args...)
	}
	if filter != nil {
		q = page(q, filter.Limit, filter.Offset)
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
	var models []roleModel
	q := s.sdb.NewSelect(&models).
		Join("JOIN", "warrant_role_permissions AS rp", "rp.role_id = warrant_roles.id").
		Where("rp.permission_id = ?", permID.String()).
		OrderExpr("warrant_roles.name ASC, warrant_roles.tenant_id ASC, warrant_roles.id ASC")
	for _, c := range roleClauses(filter) {
		q = q.Where(c.query, c.args...)
	}
	if err := q.Scan(ctx); err != nil {
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
	in := inClause("role_id", ids)
	if err := s.sdb.NewSelect(&edges).Where(in.query, in.args...).Scan(ctx); err != nil {
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
	q := s.sdb.NewSelect((*roleModel)(nil))
	for _, c := range roleClauses(filter) {
		q = q.Where(c.query, c.args...)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count roles: %w", err)
	}
	return count, nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	var models []rolePermissionModel
	err := s.sdb.NewSelect(&models).
		Where("role_id = ?", roleID.String()).
		Scan(ctx)
	if err != nil {
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
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("warrant: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	for _, e := range detach {
		_, err := tx.NewDelete((*rolePermissionModel)(nil)).
			Where("role_id = ?", e.RoleID.String()).
			Where("permission_id = ?", e.PermissionID.String()).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("warrant: detach permission: %w", err)
		}
	}
	if len(attach) > 0 {
		models := make([]rolePermissionModel, len(attach))
		for i, e := range attach {
			models[i] = edgeToModel(e)
		}
		_, err := tx.NewInsert(&models).
			OnConflict("(role_id, permission_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return writeErr("attach permissions", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("warrant: commit tx: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermissions(ctx context.Context, ps []*permission.Permission) error {
	if len(ps) == 0 {
		return nil
	}
	models := make([]permissionModel, len(ps))
	for i, p := range ps {
		models[i] = permissionToModel(p)
	}
	// A single multi-row INSERT is atomic on its own.
	if _, err := s.sdb.NewInsert(&models).Exec(ctx); err != nil {
		return writeErr("create permissions", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.sdb.NewSelect(m).Where("id = ?", permID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get permission: %w", err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) GetPermissionByName(ctx context.Context, guard, name string) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.sdb.NewSelect(m).
		Where("guard = ?", guard).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("permission %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("warrant: get permission by name: %w", err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) DeletePermissions(ctx context.Context, permIDs []id.PermissionID) error {
	if len(permIDs) == 0 {
		return nil
	}
	ids := id.Strings(permIDs)

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("warrant: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := deleteIn(ctx, tx, (*rolePermissionModel)(nil), "permission_id", ids); err != nil {
		return fmt.Errorf("warrant: delete permission edges: %w", err)
	}
	if _, err := deleteIn(ctx, tx, (*grantModel)(nil), "permission_id", ids); err != nil {
		return fmt.Errorf("warrant: delete permission grants: %w", err)
	}
	res, err := deleteIn(ctx, tx, (*permissionModel)(nil), "id", ids)
	if err != nil {
		return fmt.Errorf("warrant: delete permissions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("warrant: delete permissions: %w", err)
	}
	if int(n) != len(ids) {
		return fmt.Errorf("delete permissions: %d of %d found: %w", n, len(ids), store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("warrant: commit tx: %w", err)
	}
	return nil
}

func permissionClauses(filter *permission.ListFilter) []clause {
	if filter == nil {
		return nil
	}
	var cs []clause
	if filter.Guard != "" {
		cs = append(cs, clause{"guard = ?", []any{filter.Guard}})
	}
	if filter.Search != "" {
		cs = append(cs, likeClause(containsPattern(filter.Search)))
	}
	if len(filter.Resources) > 0 {
		parts := make([]string, len(filter.Resources))
		args := make([]any, len(filter.Resources))
		for i, r := range filter.Resources {
			c := likeClause("%" + likeEscaper.Replace(r))
			parts[i] = c.query
			args[i] = c.args[0]
		}
		cs = append(cs, clause{"(" + strings.Join(parts, " OR ") + ")", args})
	}
	return cs
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	q := s.sdb.NewSelect(&models).OrderExpr("name ASC, guard ASC")
	for _, c := range permissionClauses(filter) {
		q = q.Where(c.query, c.args...)
	}
	if filter != nil {
		q = page(q, filter.Limit, filter.Offset)
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
	q := s.sdb.NewSelect((*permissionModel)(nil))
	for _, c := range permissionClauses(filter) {
		q = q.Where(c.query, c.args...)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("warrant: count permissions: %w", err)
	}
	return count, nil
}

func (s *Store) ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	var models []permissionModel
	err := s.sdb.NewSelect(&models).
		Join("JOIN", "warrant_role_permissions AS rp", "rp.permission_id = warrant_permissions.id").
		Where("rp.role_id = ?", roleID.String()).
		OrderExpr("warrant_permissions.name ASC").
		Scan(ctx)
	if err != nil {
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
	models := make([]assignmentModel, len(as))
	for i, a := range as {
		models[i] = assignmentToModel(a)
	}
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(tenant_id, role_id, subject_kind, subject_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return writeErr("create assignments", err)
	}
	return nil
}

func (s *Store) DeleteAssignment(ctx context.Context, key assignment.Key) error {
	_, err := s.sdb.NewDelete((*assignmentModel)(nil)).
		Where("tenant_id = ?", key.TenantID).
		Where("role_id = ?", key.RoleID.String()).
		Where("subject_kind = ?", key.SubjectKind).
		Where("subject_id = ?", key.SubjectID).
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
	var models []assignmentModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC, id ASC")
	if filter != nil {
		for _, c := range tenantClause(filter.Scoped, filter.TenantIDs) {
			q = q.Where(c.query, c.args...)
		}
		if filter.RoleID != nil {
			q = q.Where("role_id = ?", filter.RoleID.String())
		}
		if filter.Guard != "" {
			q = q.Where("guard = ?", filter.Guard)
		}
		if filter.SubjectKind != "" {
			q = q.Where("subject_kind = ?", filter.SubjectKind)
		}
		if filter.SubjectID != "" {
			q = q.Where("subject_id = ?", filter.SubjectID)
		}
		q = page(q, filter.Limit, filter.Offset)
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
	models := make([]grantModel, len(gs))
	for i, g := range gs {
		models[i] = grantToModel(g)
	}
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(tenant_id, permission_id, subject_kind, subject_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return writeErr("create grants", err)
	}
	return nil
}

func (s *Store) DeleteGrant(ctx context.Context, key grant.Key) error {
	_, err := s.sdb.NewDelete((*grantModel)(nil)).
		Where("tenant_id = ?", key.TenantID).
		Where("permission_id = ?", key.PermissionID.String()).
		Where("subject_kind = ?", key.SubjectKind).
		Where("subject_id = ?", key.SubjectID).
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
	var models []grantModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC, id ASC")
	if filter != nil {
		for _, c := range tenantClause(filter.Scoped, filter.TenantIDs) {
			q = q.Where(c.query, c.args...)
		}
		if filter.PermissionID != nil {
			q = q.Where("permission_id = ?", filter.PermissionID.String())
		}
		if filter.Guard != "" {
			q = q.Where("guard = ?", filter.Guard)
		}
		if filter.SubjectKind != "" {
			q = q.Where("subject_kind = ?", filter.SubjectKind)
		}
		if filter.SubjectID != "" {
			q = q.Where("subject_id = ?", filter.SubjectID)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("warrant: list grants: %w", err)
	}
	result := make([]*grant.Grant, len(models))
	for i := range models {
		result[i] = grantFromModel(&models[i])
	}
	return result, nil
}

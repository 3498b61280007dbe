package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"divvy/internal/core"
)

// Ensure SQLiteRepository implements Store
var _ Store = (*SQLiteRepository)(nil)

// SQLiteRepository implements Store on a single SQLite database. Foreign
// keys are enabled so group and expense deletions cascade in the database,
// and every mutation runs inside one transaction.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them, not just
	// the one a PRAGMA statement happens to run on.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateGroup inserts the group and its creator membership in one transaction.
func (r *SQLiteRepository) CreateGroup(ctx context.Context, group *core.Group) error {
	if err := group.Validate(); err != nil {
		return err
	}
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, description, created_by, created_at) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.Name, group.Description, group.CreatedBy, group.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	// Creator is always the first member.
	_, err = tx.ExecContext(ctx,
		"INSERT INTO memberships (group_id, user_id, joined_at) VALUES (?, ?, ?)",
		group.ID, group.CreatedBy, group.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	group.MemberIDs = []string{group.CreatedBy}

	slog.InfoContext(ctx, "Group created",
		"group_id", group.ID,
		"name", group.Name,
		"created_by", group.CreatedBy)

	return nil
}

// GetGroup retrieves a group and its member ids in join order.
func (r *SQLiteRepository) GetGroup(ctx context.Context, groupID string) (*core.Group, error) {
	group := &core.Group{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_by, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.Description, &group.CreatedBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", groupID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	group.CreatedAt = time.Unix(createdAt, 0).UTC()

	members, err := r.groupMembers(ctx, r.db, groupID)
	if err != nil {
		return nil, err
	}
	group.MemberIDs = members

	return group, nil
}

// DeleteGroup removes the group row; memberships, expenses and splits
// cascade through the foreign keys.
func (r *SQLiteRepository) DeleteGroup(ctx context.Context, groupID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete group rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("group %s: %w", groupID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Group deleted", "group_id", groupID)
	return nil
}

// AddMember enrolls a user into an existing group.
func (r *SQLiteRepository) AddMember(ctx context.Context, groupID, userID string) (*core.Membership, error) {
	if userID == "" {
		return nil, &core.ValidationError{Field: "user_id", Reason: "user id cannot be empty"}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", groupID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("check group: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM memberships WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	).Scan(&exists)
	if err == nil {
		return nil, fmt.Errorf("user %s in group %s: %w", userID, groupID, core.ErrAlreadyMember)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("check membership: %w", err)
	}

	membership := &core.Membership{
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO memberships (group_id, user_id, joined_at) VALUES (?, ?, ?)",
		membership.GroupID, membership.UserID, membership.JoinedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Member added", "group_id", groupID, "user_id", userID)
	return membership, nil
}

// ListUserGroups returns ids of all groups the user belongs to.
func (r *SQLiteRepository) ListUserGroups(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT group_id FROM memberships WHERE user_id = ? ORDER BY joined_at, group_id",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	defer rows.Close()

	var groupIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		groupIDs = append(groupIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user groups: %w", err)
	}
	return groupIDs, nil
}

// querier abstracts *sql.DB and *sql.Tx for reads used on both sides of a
// transaction boundary.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SQLiteRepository) groupMembers(ctx context.Context, q querier, groupID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT user_id FROM memberships WHERE group_id = ? ORDER BY joined_at, user_id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("get members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the gatekeeper store (PostgreSQL).
// Unique indexes are named so uniqueViolation can map them to sentinels.
var Migrations = migrate.NewGroup("gatekeeper")

const (
	createRolesSQL = `
CREATE TABLE IF NOT EXISTS gatekeeper_roles (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    is_system       BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS gatekeeper_roles_name_key ON gatekeeper_roles (LOWER(name));
`

	createPermissionsSQL = `
CREATE TABLE IF NOT EXISTS gatekeeper_permissions (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT gatekeeper_permissions_name_key UNIQUE (name)
);
`

	createRolePermissionsSQL = `
CREATE TABLE IF NOT EXISTS gatekeeper_role_permissions (
    role_id         TEXT NOT NULL REFERENCES gatekeeper_roles(id) ON DELETE CASCADE,
    permission_id   TEXT NOT NULL REFERENCES gatekeeper_permissions(id) ON DELETE CASCADE,

    PRIMARY KEY (role_id, permission_id)
);

CREATE INDEX IF NOT EXISTS idx_gatekeeper_role_perms_perm ON gatekeeper_role_permissions (permission_id);
`

	createUsersSQL = `
CREATE TABLE IF NOT EXISTS gatekeeper_users (
    id                   TEXT PRIMARY KEY,
    username             TEXT NOT NULL,
    email                TEXT NOT NULL,
    full_name            TEXT NOT NULL DEFAULT '',
    locked               BOOLEAN NOT NULL DEFAULT FALSE,
    must_reset_password  BOOLEAN NOT NULL DEFAULT FALSE,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS gatekeeper_users_username_key ON gatekeeper_users (LOWER(username));
CREATE UNIQUE INDEX IF NOT EXISTS gatekeeper_users_email_key ON gatekeeper_users (LOWER(email));
CREATE INDEX IF NOT EXISTS idx_gatekeeper_users_locked ON gatekeeper_users (locked);
`

	createUserRolesSQL = `
CREATE TABLE IF NOT EXISTS gatekeeper_user_roles (
    user_id         TEXT NOT NULL REFERENCES gatekeeper_users(id) ON DELETE CASCADE,
    role_id         TEXT NOT NULL REFERENCES gatekeeper_roles(id) ON DELETE CASCADE,

    PRIMARY KEY (user_id, role_id)
);

CREATE INDEX IF NOT EXISTS idx_gatekeeper_user_roles_role ON gatekeeper_user_roles (role_id);
`
)

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_roles",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, createRolesSQL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatekeeper_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_permissions",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, createPermissionsSQL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatekeeper_permissions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_role_permissions",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, createRolePermissionsSQL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatekeeper_role_permissions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_users",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, createUsersSQL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatekeeper_users`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_user_roles",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, createUserRolesSQL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatekeeper_user_roles`)
				return err
			},
		},
	)
}

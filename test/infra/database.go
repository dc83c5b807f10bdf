package infra

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"

	"github.com/jackc/pgx/v5"
)

// LocalDatabase is a throwaway database on a PostgreSQL server reachable
// without Docker, owned by a dedicated login role.
type LocalDatabase struct {
	Host     string
	Port     string
	Name     string
	Owner    string
	Password string
}

// DefaultLocalDatabase is the stress database on a server at 127.0.0.1:5432.
func DefaultLocalDatabase() LocalDatabase {
	return LocalDatabase{
		Host:     "127.0.0.1",
		Port:     "5432",
		Name:     "salonbook_stress",
		Owner:    "salonbook_stress",
		Password: "salonbook",
	}
}

// DSN is the connection string for the database as its owner.
func (l LocalDatabase) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(l.Owner, l.Password),
		Host:     l.Host + ":" + l.Port,
		Path:     "/" + l.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Recreate drops and recreates the database and returns its DSN.
func (l LocalDatabase) Recreate(ctx context.Context) (string, error) {
	if err := exec.CommandContext(ctx, "pg_isready", "-h", l.Host, "-p", l.Port).Run(); err != nil {
		return "", fmt.Errorf("postgres at %s:%s not ready: %w", l.Host, l.Port, err)
	}
	admin, err := l.connectAdmin(ctx)
	if err != nil {
		return "", err
	}
	defer admin.Close(ctx)

	db := pgx.Identifier{l.Name}.Sanitize()
	owner := pgx.Identifier{l.Owner}.Sanitize()
	steps := []struct {
		what string
		sql  string
		args []any
	}{
		{"create role", fmt.Sprintf(`DO $$ BEGIN CREATE ROLE %s WITH LOGIN; EXCEPTION WHEN duplicate_object THEN NULL; END $$`, owner), nil},
		{"set password", fmt.Sprintf("ALTER ROLE %s WITH PASSWORD %s", owner, quoteLiteral(l.Password)), nil},
		{"disconnect", "SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()", []any{l.Name}},
		{"drop database", "DROP DATABASE IF EXISTS " + db, nil},
		{"create database", fmt.Sprintf("CREATE DATABASE %s OWNER %s", db, owner), nil},
	}
	for _, s := range steps {
		if _, err := admin.Exec(ctx, s.sql, s.args...); err != nil {
			return "", fmt.Errorf("%s %s: %w", s.what, l.Name, err)
		}
	}
	return l.DSN(), nil
}

// connectAdmin tries the usual superuser logins of a developer install.
func (l LocalDatabase) connectAdmin(ctx context.Context) (*pgx.Conn, error) {
	var errs []error
	for _, user := range []string{"postgres", os.Getenv("USER")} {
		if user == "" {
			continue
		}
		for _, pw := range []*url.Userinfo{url.User(user), url.UserPassword(user, "postgres")} {
			u := url.URL{Scheme: "postgres", User: pw, Host: l.Host + ":" + l.Port, Path: "/postgres", RawQuery: "sslmode=disable"}
			conn, err := pgx.Connect(ctx, u.String())
			if err == nil {
				return conn, nil
			}
			errs = append(errs, err)
		}
	}
	return nil, fmt.Errorf("connect as admin: %w", errors.Join(errs...))
}

// quoteLiteral quotes s as a SQL string literal. ALTER ROLE takes no bind
// parameters.
func quoteLiteral(s string) string {
	out := []byte{'\''}
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(append(out, '\''))
}

// Package sessionstore keeps session cookies between CLI runs in a SQLite
// database.
package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/skilly-client/pkg/logging"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Jar is an http.CookieJar that writes every cookie it receives through to
// SQLite and replays the stored cookies when opened.
type Jar struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	inner *cookiejar.Jar
}

// Open opens or creates the cookie database at path and loads the cookies
// that have not expired.
func Open(path string) (*Jar, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	inner, _ := cookiejar.New(nil)
	j := &Jar{
		db:     db,
		logger: logging.NewLogger("sessionstore"),
		now:    time.Now,
		inner:  inner,
	}

	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := j.load(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("load cookies: %w", err)
	}
	return j, nil
}

func (j *Jar) migrate() error {
	_, err := j.db.Exec(`
	CREATE TABLE IF NOT EXISTS cookies (
		id         TEXT PRIMARY KEY,
		scheme     TEXT NOT NULL,
		host       TEXT NOT NULL,
		name       TEXT NOT NULL,
		value      TEXT NOT NULL,
		path       TEXT NOT NULL,
		domain     TEXT NOT NULL DEFAULT '',
		expires_at TEXT,
		secure     INTEGER NOT NULL DEFAULT 0,
		http_only  INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		UNIQUE (host, name, path)
	);
	CREATE INDEX IF NOT EXISTS idx_cookies_expires ON cookies(expires_at);
	`)
	return err
}

// load replays stored cookies into the in-memory jar and drops the ones
// that expired while the CLI was not running.
func (j *Jar) load(ctx context.Context) error {
	now := j.now().UTC().Format(time.RFC3339)
	if _, err := j.db.ExecContext(ctx,
		`DELETE FROM cookies WHERE expires_at IS NOT NULL AND expires_at <= ?`, now); err != nil {
		return fmt.Errorf("purge expired: %w", err)
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT scheme, host, name, value, path, domain, expires_at, secure, http_only FROM cookies`)
	if err != nil {
		return err
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var (
			scheme, host string
			expires      sql.NullString
			c            http.Cookie
		)
		if err := rows.Scan(&scheme, &host, &c.Name, &c.Value, &c.Path, &c.Domain, &expires, &c.Secure, &c.HttpOnly); err != nil {
			return fmt.Errorf("scan cookie: %w", err)
		}
		if expires.Valid {
			if t, err := time.Parse(time.RFC3339, expires.String); err == nil {
				c.Expires = t
			}
		}
		j.inner.SetCookies(&url.URL{Scheme: scheme, Host: host, Path: c.Path}, []*http.Cookie{&c})
		loaded++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	j.logger.Debug().Int("cookies", loaded).Msg("Session cookies loaded")
	return nil
}

// SetCookies implements http.CookieJar. Persistence failures are logged;
// the cookies stay usable for this process.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	j.inner.SetCookies(u, cookies)
	j.mu.Unlock()

	for _, c := range cookies {
		if err := j.persist(context.Background(), u, c); err != nil {
			j.logger.Error().Err(err).Str("cookie", c.Name).Str("host", u.Host).Msg("Failed to persist cookie")
		}
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

func (j *Jar) persist(ctx context.Context, u *url.URL, c *http.Cookie) error {
	path := c.Path
	if path == "" || path[0] != '/' {
		path = defaultPath(u.Path)
	}
	now := j.now()

	if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now)) {
		_, err := j.db.ExecContext(ctx,
			`DELETE FROM cookies WHERE host = ? AND name = ? AND path = ?`, u.Host, c.Name, path)
		return err
	}

	var expires sql.NullString
	switch {
	case c.MaxAge > 0:
		expires = sql.NullString{String: now.Add(time.Duration(c.MaxAge) * time.Second).UTC().Format(time.RFC3339), Valid: true}
	case !c.Expires.IsZero():
		expires = sql.NullString{String: c.Expires.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO cookies (id, scheme, host, name, value, path, domain, expires_at, secure, http_only, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host, name, path) DO UPDATE SET
			value = excluded.value,
			scheme = excluded.scheme,
			domain = excluded.domain,
			expires_at = excluded.expires_at,
			secure = excluded.secure,
			http_only = excluded.http_only,
			updated_at = excluded.updated_at`,
		ulid.Make().String(), u.Scheme, u.Host, c.Name, c.Value, path, c.Domain, expires,
		c.Secure, c.HttpOnly, now.UTC().Format(time.RFC3339))
	return err
}

// defaultPath is the cookie path used when the server sets none: the
// directory of the request path (RFC 6265 section 5.1.4).
func defaultPath(requestPath string) string {
	if requestPath == "" || requestPath[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(requestPath, "/")
	if i == 0 {
		return "/"
	}
	return requestPath[:i]
}

// Count returns the number of stored cookies.
func (j *Jar) Count(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cookies`).Scan(&n)
	return n, err
}

// Clear forgets every cookie, stored and in memory.
func (j *Jar) Clear(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM cookies`); err != nil {
		return fmt.Errorf("clear cookies: %w", err)
	}
	inner, _ := cookiejar.New(nil)
	j.mu.Lock()
	j.inner = inner
	j.mu.Unlock()
	j.logger.Info().Msg("Session cookies cleared")
	return nil
}

// Close closes the database.
func (j *Jar) Close() error {
	return j.db.Close()
}

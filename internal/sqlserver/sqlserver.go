// Package sqlserver is the database collaborator for diagnostics: it turns a
// configured server target into a driver connection string and runs single
// read-only statements, each on its own short-lived connection.
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net"
	"net/url"
	"runtime"
	"strconv"
	"time"

	// Registers the "sqlserver" driver.
	_ "github.com/microsoft/go-mssqldb"
	// Registers the "krb5" integrated authentication provider.
	_ "github.com/microsoft/go-mssqldb/integratedauth/krb5"
	"github.com/rs/zerolog"

	"github.com/steveyegge/sqlhealth/internal/config"
)

// DriverName is the database/sql driver used for SQL Server.
const DriverName = "sqlserver"

// Querier runs diagnostic statements against the server.
type Querier interface {
	// Ping opens a connection, verifies the login, and releases it.
	Ping(ctx context.Context) error
	// Query runs a static statement and returns every row.
	Query(ctx context.Context, query string) ([]Row, error)
}

// OpenFunc opens a database handle; sql.Open in production.
type OpenFunc func(driverName, dsn string) (*sql.DB, error)

// Client implements [Querier]. Every call opens a handle limited to one
// connection and closes it before returning, whatever the outcome. No
// connection outlives the call that opened it.
type Client struct {
	dsn  string
	open OpenFunc
	log  zerolog.Logger
}

// NewClient returns a Client for the given connection string.
func NewClient(dsn string, log zerolog.Logger) *Client {
	return &Client{dsn: dsn, open: sql.Open, log: log}
}

// newClientWithOpen swaps the opener (tests inject sqlmock).
func newClientWithOpen(dsn string, open OpenFunc) *Client {
	return &Client{dsn: dsn, open: open, log: zerolog.Nop()}
}

func (c *Client) acquire() (*sql.DB, error) {
	db, err := c.open(DriverName, c.dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)
	return db, nil
}

func (c *Client) release(db *sql.DB) {
	if err := db.Close(); err != nil {
		c.log.Debug().Err(err).Msg("closing connection")
	}
}

// Ping implements [Querier].
func (c *Client) Ping(ctx context.Context) error {
	db, err := c.acquire()
	if err != nil {
		return err
	}
	defer c.release(db)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	return nil
}

// Query implements [Querier].
func (c *Client) Query(ctx context.Context, query string) ([]Row, error) {
	db, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer c.release(db)

	start := time.Now()
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close() //nolint:errcheck // close error surfaces via rows.Err

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	c.log.Debug().Int("rows", len(out)).Dur("elapsed", time.Since(start)).Msg("query complete")
	return out, nil
}

// ConnString builds a go-mssqldb URL connection string for s on the
// running platform. password is used only with SQL authentication.
func ConnString(s config.Server, password string) string {
	return connString(s, password, runtime.GOOS)
}

// IntegratedAuthenticator returns the go-mssqldb provider named for
// integrated authentication on goos. Windows keeps the driver's SSPI
// default. Elsewhere it is Kerberos: the driver's NTLM default needs a
// DOMAIN\user and password, and without them logs in as an empty SQL user.
func IntegratedAuthenticator(goos string) string {
	if goos == "windows" {
		return ""
	}
	return "krb5"
}

func connString(s config.Server, password, goos string) string {
	q := url.Values{}
	if s.Database != "" {
		q.Set("database", s.Database)
	}
	if s.AppName != "" {
		q.Set("app name", s.AppName)
	}
	if s.TrustServerCertificate {
		q.Set("TrustServerCertificate", "true")
	}
	if s.Encrypt != "" {
		q.Set("encrypt", s.Encrypt)
	}
	if d := s.DialTimeout.Duration; d > 0 {
		secs := strconv.Itoa(int(math.Ceil(d.Seconds())))
		q.Set("dial timeout", secs)
		q.Set("connection timeout", secs)
	}

	krb5 := s.Auth == config.AuthIntegrated && IntegratedAuthenticator(goos) == "krb5"
	if krb5 {
		q.Set("authenticator", "krb5")
		for key, v := range map[string]string{
			"krb5-configfile":    s.Krb5.ConfigFile,
			"krb5-credcachefile": s.Krb5.CredCacheFile,
			"krb5-keytabfile":    s.Krb5.KeytabFile,
			"krb5-realm":         s.Krb5.Realm,
		} {
			if v != "" {
				q.Set(key, v)
			}
		}
	}

	host := s.Host
	if s.Port != 0 {
		host = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     host,
		Path:     s.Instance,
		RawQuery: q.Encode(),
	}
	switch {
	case s.Auth == config.AuthSQL:
		u.User = url.UserPassword(s.User, password)
	case krb5 && s.Krb5.KeytabFile != "":
		// A keytab login names its principal; a credential cache carries it.
		u.User = url.User(s.User)
	}
	return u.String()
}

var _ Querier = (*Client)(nil)

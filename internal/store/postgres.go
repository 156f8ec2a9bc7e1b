package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/farmaleads/leads-cli/internal/lead"
)

// pgPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgPool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"find_lead":      `SELECT id, telefono, website, email FROM leads WHERE nombre = $1 AND direccion = $2`,
	"set_lead_email": `UPDATE leads SET email = $1 WHERE id = $2`,
	"set_send_state": `UPDATE leads SET estado_envio = $1 WHERE id = $2`,
	"insert_email_log": `INSERT INTO email_logs (id, lead_id, destinatario, asunto, cuerpo, estado, detalle, created_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id            BIGSERIAL PRIMARY KEY,
	nombre        TEXT NOT NULL,
	direccion     TEXT NOT NULL DEFAULT '',
	zona          TEXT NOT NULL DEFAULT '',
	codigo_postal TEXT NOT NULL DEFAULT '',
	telefono      TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	fuente        TEXT NOT NULL,
	estado_envio  TEXT NOT NULL DEFAULT 'pendiente',
	notas         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_identity ON leads(nombre, direccion);
CREATE INDEX IF NOT EXISTS idx_leads_estado_envio ON leads(estado_envio);
CREATE INDEX IF NOT EXISTS idx_leads_fuente ON leads(fuente);

CREATE TABLE IF NOT EXISTS email_logs (
	id           TEXT PRIMARY KEY,
	lead_id      BIGINT NOT NULL REFERENCES leads(id),
	destinatario TEXT NOT NULL,
	asunto       TEXT NOT NULL,
	cuerpo       TEXT NOT NULL,
	estado       TEXT NOT NULL,
	detalle      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_email_logs_lead_id ON email_logs(lead_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const leadColumns = `id, nombre, direccion, zona, codigo_postal, telefono, website, email, fuente, estado_envio, notas, created_at`

func (s *PostgresStore) UpsertLeads(ctx context.Context, candidates []lead.Lead, fallbackZona, fallbackCP string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin upsert batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	saved := 0
	for _, cand := range candidates {
		cand.Normalize(fallbackZona, fallbackCP)
		if !cand.Viable() {
			continue
		}

		var existing lead.Lead
		err := tx.QueryRow(ctx,
			`SELECT id, telefono, website, email FROM leads WHERE nombre = $1 AND direccion = $2`,
			cand.Nombre, cand.Direccion,
		).Scan(&existing.ID, &existing.Telefono, &existing.Website, &existing.Email)

		switch {
		case errors.Is(err, pgx.ErrNoRows):
			_, err = tx.Exec(ctx,
				`INSERT INTO leads (nombre, direccion, zona, codigo_postal, telefono, website, email, fuente, estado_envio, notas)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				cand.Nombre, cand.Direccion, cand.Zona, cand.CodigoPostal,
				cand.Telefono, cand.Website, cand.Email, cand.Fuente,
				lead.SendPending, cand.Notas,
			)
			if err != nil {
				return 0, eris.Wrapf(err, "postgres: insert lead %q", cand.Nombre)
			}
			saved++
		case err != nil:
			return 0, eris.Wrapf(err, "postgres: lookup lead %q", cand.Nombre)
		default:
			if !lead.FillMissing(&existing, cand) {
				continue
			}
			_, err = tx.Exec(ctx,
				`UPDATE leads SET telefono = $1, website = $2, email = $3 WHERE id = $4`,
				existing.Telefono, existing.Website, existing.Email, existing.ID,
			)
			if err != nil {
				return 0, eris.Wrapf(err, "postgres: merge lead %d", existing.ID)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit upsert batch")
	}
	return saved, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.OnlyPending {
		query += fmt.Sprintf(` AND estado_envio = $%d`, argIdx)
		args = append(args, lead.SendPending)
		argIdx++
	}
	if filter.RequireEmail {
		query += ` AND email <> ''`
	}
	if filter.Fuente != "" {
		query += fmt.Sprintf(` AND fuente = $%d`, argIdx)
		args = append(args, filter.Fuente)
		argIdx++
	}
	query += ` ORDER BY id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLeadLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Skip > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Skip)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	return scanLeads(rows)
}

func (s *PostgresStore) LeadsMissingEmail(ctx context.Context) ([]lead.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE email = '' AND website <> '' ORDER BY id DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: leads missing email")
	}
	defer rows.Close()

	return scanLeads(rows)
}

func (s *PostgresStore) SetLeadEmail(ctx context.Context, id int64, email string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE leads SET email = $1 WHERE id = $2`, email, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set lead email %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) CampaignTargets(ctx context.Context, onlyPending bool, leadIDs []int64) ([]lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE email <> ''`
	args := []any{}
	argIdx := 1

	if onlyPending {
		query += fmt.Sprintf(` AND estado_envio = $%d`, argIdx)
		args = append(args, lead.SendPending)
		argIdx++
	}
	if len(leadIDs) > 0 {
		query += fmt.Sprintf(` AND id = ANY($%d)`, argIdx)
		args = append(args, leadIDs)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: campaign targets")
	}
	defer rows.Close()

	return scanLeads(rows)
}

func (s *PostgresStore) SetSendState(ctx context.Context, id int64, state string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE leads SET estado_envio = $1 WHERE id = $2`, state, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set send state %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) AppendEmailLog(ctx context.Context, entry *lead.EmailLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO email_logs (id, lead_id, destinatario, asunto, cuerpo, estado, detalle, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.LeadID, entry.Destinatario, entry.Asunto,
		entry.Cuerpo, entry.Estado, entry.Detalle, entry.CreatedAt,
	)
	return eris.Wrap(err, "postgres: append email log")
}

func (s *PostgresStore) ListEmailLogs(ctx context.Context, leadID int64, limit int) ([]lead.EmailLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, destinatario, asunto, cuerpo, estado, detalle, created_at
		 FROM email_logs WHERE lead_id = $1 ORDER BY created_at DESC LIMIT $2`,
		leadID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list email logs")
	}
	defer rows.Close()

	var logs []lead.EmailLog
	for rows.Next() {
		var e lead.EmailLog
		if err := rows.Scan(&e.ID, &e.LeadID, &e.Destinatario, &e.Asunto,
			&e.Cuerpo, &e.Estado, &e.Detalle, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan email log")
		}
		logs = append(logs, e)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list email logs iterate")
}

func scanLeads(rows pgx.Rows) ([]lead.Lead, error) {
	var leads []lead.Lead
	for rows.Next() {
		var l lead.Lead
		if err := rows.Scan(&l.ID, &l.Nombre, &l.Direccion, &l.Zona, &l.CodigoPostal,
			&l.Telefono, &l.Website, &l.Email, &l.Fuente, &l.EstadoEnvio,
			&l.Notas, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

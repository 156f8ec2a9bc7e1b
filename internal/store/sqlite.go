package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/farmaleads/leads-cli/internal/lead"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "farmacia_leads.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
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
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_identity ON leads(nombre, direccion);
CREATE INDEX IF NOT EXISTS idx_leads_estado_envio ON leads(estado_envio);
CREATE INDEX IF NOT EXISTS idx_leads_fuente ON leads(fuente);

CREATE TABLE IF NOT EXISTS email_logs (
	id           TEXT PRIMARY KEY,
	lead_id      INTEGER NOT NULL REFERENCES leads(id),
	destinatario TEXT NOT NULL,
	asunto       TEXT NOT NULL,
	cuerpo       TEXT NOT NULL,
	estado       TEXT NOT NULL,
	detalle      TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_email_logs_lead_id ON email_logs(lead_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertLeads(ctx context.Context, candidates []lead.Lead, fallbackZona, fallbackCP string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert batch")
	}
	defer tx.Rollback() //nolint:errcheck

	saved := 0
	for _, cand := range candidates {
		cand.Normalize(fallbackZona, fallbackCP)
		if !cand.Viable() {
			continue
		}

		var existing lead.Lead
		err := tx.QueryRowContext(ctx,
			`SELECT id, telefono, website, email FROM leads WHERE nombre = ? AND direccion = ?`,
			cand.Nombre, cand.Direccion,
		).Scan(&existing.ID, &existing.Telefono, &existing.Website, &existing.Email)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO leads (nombre, direccion, zona, codigo_postal, telefono, website, email, fuente, estado_envio, notas, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				cand.Nombre, cand.Direccion, cand.Zona, cand.CodigoPostal,
				cand.Telefono, cand.Website, cand.Email, cand.Fuente,
				lead.SendPending, cand.Notas, time.Now().UTC(),
			)
			if err != nil {
				return 0, eris.Wrapf(err, "sqlite: insert lead %q", cand.Nombre)
			}
			saved++
		case err != nil:
			return 0, eris.Wrapf(err, "sqlite: lookup lead %q", cand.Nombre)
		default:
			if !lead.FillMissing(&existing, cand) {
				continue
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE leads SET telefono = ?, website = ?, email = ? WHERE id = ?`,
				existing.Telefono, existing.Website, existing.Email, existing.ID,
			)
			if err != nil {
				return 0, eris.Wrapf(err, "sqlite: merge lead %d", existing.ID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert batch")
	}
	return saved, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.OnlyPending {
		query += ` AND estado_envio = ?`
		args = append(args, lead.SendPending)
	}
	if filter.RequireEmail {
		query += ` AND email <> ''`
	}
	if filter.Fuente != "" {
		query += ` AND fuente = ?`
		args = append(args, filter.Fuente)
	}
	query += ` ORDER BY id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLeadLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Skip > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Skip)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	return scanSQLiteLeads(rows)
}

func (s *SQLiteStore) LeadsMissingEmail(ctx context.Context) ([]lead.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE email = '' AND website <> '' ORDER BY id DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: leads missing email")
	}
	defer rows.Close()

	return scanSQLiteLeads(rows)
}

func (s *SQLiteStore) SetLeadEmail(ctx context.Context, id int64, email string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE leads SET email = ? WHERE id = ?`, email, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set lead email %d", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) CampaignTargets(ctx context.Context, onlyPending bool, leadIDs []int64) ([]lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE email <> ''`
	var args []any

	if onlyPending {
		query += ` AND estado_envio = ?`
		args = append(args, lead.SendPending)
	}
	if len(leadIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(leadIDs)), ",")
		query += ` AND id IN (` + placeholders + `)`
		for _, id := range leadIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: campaign targets")
	}
	defer rows.Close()

	return scanSQLiteLeads(rows)
}

func (s *SQLiteStore) SetSendState(ctx context.Context, id int64, state string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE leads SET estado_envio = ? WHERE id = ?`, state, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set send state %d", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) AppendEmailLog(ctx context.Context, entry *lead.EmailLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_logs (id, lead_id, destinatario, asunto, cuerpo, estado, detalle, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.LeadID, entry.Destinatario, entry.Asunto,
		entry.Cuerpo, entry.Estado, entry.Detalle, entry.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: append email log")
}

func (s *SQLiteStore) ListEmailLogs(ctx context.Context, leadID int64, limit int) ([]lead.EmailLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, destinatario, asunto, cuerpo, estado, detalle, created_at
		 FROM email_logs WHERE lead_id = ? ORDER BY created_at DESC LIMIT ?`,
		leadID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list email logs")
	}
	defer rows.Close()

	var logs []lead.EmailLog
	for rows.Next() {
		var e lead.EmailLog
		if err := rows.Scan(&e.ID, &e.LeadID, &e.Destinatario, &e.Asunto,
			&e.Cuerpo, &e.Estado, &e.Detalle, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan email log")
		}
		logs = append(logs, e)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list email logs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}

func scanSQLiteLeads(rows *sql.Rows) ([]lead.Lead, error) {
	var leads []lead.Lead
	for rows.Next() {
		var l lead.Lead
		if err := rows.Scan(&l.ID, &l.Nombre, &l.Direccion, &l.Zona, &l.CodigoPostal,
			&l.Telefono, &l.Website, &l.Email, &l.Fuente, &l.EstadoEnvio,
			&l.Notas, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

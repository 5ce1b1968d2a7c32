package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/rakunlabs/gatevm/internal/config"
	"github.com/rakunlabs/gatevm/internal/store/circuitrow"
)

var (
	ConnMaxLifetime = 15 * time.Minute
	MaxIdleConns    = 3
	MaxOpenConns    = 3

	DefaultTablePrefix = "gatevm_"
)

// Postgres is a jackc/pgx-backed circuit document store, built on a
// single "circuits" table with goqu for query building.
type Postgres struct {
	db   *sql.DB
	goqu *goqu.Database

	tableCircuits exp.IdentifierExpression
}

func New(ctx context.Context, cfg *config.StorePostgres) (*Postgres, error) {
	if cfg == nil {
		return nil, errors.New("postgres configuration is nil")
	}
	if cfg.Datasource == "" {
		return nil, errors.New("postgres datasource is required")
	}

	tablePrefix := DefaultTablePrefix
	if cfg.TablePrefix != nil {
		tablePrefix = *cfg.TablePrefix
	}

	migrate := cfg.Migrate
	if migrate.Table == "" {
		migrate.Table = "migrations"
	}
	if migrate.Datasource == "" {
		migrate.Datasource = cfg.Datasource
	}
	if migrate.Schema == "" {
		migrate.Schema = cfg.Schema
	}
	migrate.Table = tablePrefix + migrate.Table
	if migrate.Values == nil {
		migrate.Values = make(map[string]string)
	}
	migrate.Values["TABLE_PREFIX"] = tablePrefix

	if err := MigrateDB(ctx, &migrate); err != nil {
		return nil, fmt.Errorf("migrate store postgres: %w", err)
	}

	db, err := sql.Open("pgx", cfg.Datasource)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if cfg.Schema != "" {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", cfg.Schema)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set search_path: %w", err)
		}
	}

	connMaxLifetime, maxIdleConns, maxOpenConns := ConnMaxLifetime, MaxIdleConns, MaxOpenConns
	if cfg.ConnMaxLifetime != nil {
		connMaxLifetime = *cfg.ConnMaxLifetime
	}
	if cfg.MaxIdleConns != nil {
		maxIdleConns = *cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns != nil {
		maxOpenConns = *cfg.MaxOpenConns
	}

	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetMaxOpenConns(maxOpenConns)

	slog.Info("connected to circuit store postgres")

	return &Postgres{
		db:            db,
		goqu:          goqu.New("postgres", db),
		tableCircuits: goqu.T(tablePrefix + "circuits"),
	}, nil
}

func (p *Postgres) Close() {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			slog.Error("close circuit store postgres connection", "error", err)
		}
	}
}

type circuitRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Version   int    `db:"version"`
	Body      string `db:"body"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (p *Postgres) ListCircuits(ctx context.Context) ([]circuitrow.Record, error) {
	query, _, err := p.goqu.From(p.tableCircuits).
		Select("id", "name", "version", "body", "created_at", "updated_at").
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list circuits: %w", err)
	}
	defer rows.Close()

	var result []circuitrow.Record
	for rows.Next() {
		var row circuitRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Version, &row.Body, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan circuit row: %w", err)
		}
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}

	return result, rows.Err()
}

func (p *Postgres) GetCircuit(ctx context.Context, name string) (*circuitrow.Record, error) {
	query, _, err := p.goqu.From(p.tableCircuits).
		Select("id", "name", "version", "body", "created_at", "updated_at").
		Where(goqu.I("name").Eq(name)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var row circuitRow
	err = p.db.QueryRowContext(ctx, query).Scan(&row.ID, &row.Name, &row.Version, &row.Body, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get circuit %q: %w", name, err)
	}

	return rowToRecord(row)
}

func (p *Postgres) PutCircuit(ctx context.Context, name, body string) (*circuitrow.Record, error) {
	existing, err := p.GetCircuit(ctx, name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if existing == nil {
		id := ulid.Make().String()
		query, _, err := p.goqu.Insert(p.tableCircuits).Rows(
			goqu.Record{
				"id":         id,
				"name":       name,
				"version":    1,
				"body":       body,
				"created_at": now.Format(time.RFC3339),
				"updated_at": now.Format(time.RFC3339),
			},
		).ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build insert query: %w", err)
		}
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return nil, fmt.Errorf("create circuit %q: %w", name, err)
		}
		return &circuitrow.Record{ID: id, Name: name, Version: 1, Body: body, CreatedAt: now, UpdatedAt: now}, nil
	}

	version := existing.Version + 1
	query, _, err := p.goqu.Update(p.tableCircuits).Set(
		goqu.Record{
			"version":    version,
			"body":       body,
			"updated_at": now.Format(time.RFC3339),
		},
	).Where(goqu.I("name").Eq(name)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build update query: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("update circuit %q: %w", name, err)
	}

	return &circuitrow.Record{ID: existing.ID, Name: name, Version: version, Body: body, CreatedAt: existing.CreatedAt, UpdatedAt: now}, nil
}

func (p *Postgres) DeleteCircuit(ctx context.Context, name string) error {
	query, _, err := p.goqu.Delete(p.tableCircuits).
		Where(goqu.I("name").Eq(name)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	res, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("delete circuit %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("store/postgres: circuit %q not found", name)
	}
	return nil
}

func rowToRecord(row circuitRow) (*circuitrow.Record, error) {
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for %q: %w", row.Name, err)
	}
	updatedAt, err := time.Parse(time.RFC3339, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for %q: %w", row.Name, err)
	}

	return &circuitrow.Record{
		ID:        row.ID,
		Name:      row.Name,
		Version:   row.Version,
		Body:      row.Body,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Package db implements the laborator Source over a PostgreSQL pool.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labdent/labexport/internal/laborator"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Source reads export data with plain SQL. Table and column names come from
// laborator.Schema and are quoted as identifiers.
type Source struct {
	db     querier
	schema laborator.Schema
}

// New constructs a Source bound to the pool.
func New(pool *pgxpool.Pool, schema laborator.Schema) *Source {
	return &Source{db: pool, schema: schema}
}

func ident(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

// FinalizedOrders returns finalized orders completed inside the range.
func (s *Source) FinalizedOrders(ctx context.Context, r laborator.DateRange) ([]laborator.Order, error) {
	o := s.schema.Orders
	conds := []string{fmt.Sprintf("%s = $1", ident(o.Status))}
	args := []any{laborator.StatusFinalized}
	if r.Start != nil {
		args = append(args, *r.Start)
		conds = append(conds, fmt.Sprintf("%s >= $%d", ident(o.CompletedAt), len(args)))
	}
	if r.End != nil {
		args = append(args, *r.End)
		conds = append(conds, fmt.Sprintf("%s <= $%d", ident(o.CompletedAt), len(args)))
	}
	query := fmt.Sprintf(`SELECT %s::bigint, COALESCE(%s, 0)::bigint, COALESCE(%s, 0)::bigint, COALESCE(%s, ''), %s::timestamptz
FROM %s WHERE %s ORDER BY %s`,
		ident(o.ID), ident(o.DoctorID), ident(o.PatientID), ident(o.Status), ident(o.CompletedAt),
		ident(o.Table), strings.Join(conds, " AND "), ident(o.ID))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, lookupErr(o.Table, err)
	}
	defer rows.Close()

	var out []laborator.Order
	for rows.Next() {
		var (
			order     laborator.Order
			completed *time.Time
		)
		if err := rows.Scan(&order.ID, &order.DoctorID, &order.PatientID, &order.Status, &completed); err != nil {
			return nil, lookupErr(o.Table, err)
		}
		order.CompletedAt = completed
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, lookupErr(o.Table, err)
	}
	return out, nil
}

// Patients loads patients by id.
func (s *Source) Patients(ctx context.Context, ids []int64) ([]laborator.Patient, error) {
	p := s.schema.Patients
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s::bigint, COALESCE(%s, ''), COALESCE(%s, 0)::bigint FROM %s WHERE %s = ANY($1)`,
		ident(p.ID), ident(p.Name), ident(p.DoctorID), ident(p.Table), ident(p.ID))
	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, lookupErr(p.Table, err)
	}
	defer rows.Close()

	var out []laborator.Patient
	for rows.Next() {
		var patient laborator.Patient
		if err := rows.Scan(&patient.ID, &patient.Name, &patient.DoctorID); err != nil {
			return nil, lookupErr(p.Table, err)
		}
		out = append(out, patient)
	}
	if err := rows.Err(); err != nil {
		return nil, lookupErr(p.Table, err)
	}
	return out, nil
}

// Doctors loads doctors by id.
func (s *Source) Doctors(ctx context.Context, ids []int64) ([]laborator.Doctor, error) {
	d := s.schema.Doctors
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s::bigint, COALESCE(%s, '') FROM %s WHERE %s = ANY($1)`,
		ident(d.ID), ident(d.Name), ident(d.Table), ident(d.ID))
	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, lookupErr(d.Table, err)
	}
	defer rows.Close()

	var out []laborator.Doctor
	for rows.Next() {
		var doctor laborator.Doctor
		if err := rows.Scan(&doctor.ID, &doctor.Name); err != nil {
			return nil, lookupErr(d.Table, err)
		}
		out = append(out, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, lookupErr(d.Table, err)
	}
	return out, nil
}

// OrderProducts loads association rows for the given orders in insertion order.
func (s *Source) OrderProducts(ctx context.Context, orderIDs []int64) ([]laborator.OrderProduct, error) {
	op := s.schema.OrderProducts
	if len(orderIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s::bigint, %s::bigint, COALESCE(%s, 0)::bigint, COALESCE(%s, 0)::float8 FROM %s WHERE %s = ANY($1) ORDER BY %s`,
		ident(op.ID), ident(op.OrderID), ident(op.ProductID), ident(op.Quantity), ident(op.Table), ident(op.OrderID), ident(op.ID))
	rows, err := s.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, lookupErr(op.Table, err)
	}
	defer rows.Close()

	var out []laborator.OrderProduct
	for rows.Next() {
		var row laborator.OrderProduct
		if err := rows.Scan(&row.ID, &row.OrderID, &row.ProductID, &row.Quantity); err != nil {
			return nil, lookupErr(op.Table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, lookupErr(op.Table, err)
	}
	return out, nil
}

// Products loads products by id.
func (s *Source) Products(ctx context.Context, ids []int64) ([]laborator.Product, error) {
	p := s.schema.Products
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s::bigint, COALESCE(%s, ''), COALESCE(%s, 0)::float8 FROM %s WHERE %s = ANY($1)`,
		ident(p.ID), ident(p.Name), ident(p.Price), ident(p.Table), ident(p.ID))
	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, lookupErr(p.Table, err)
	}
	defer rows.Close()

	var out []laborator.Product
	for rows.Next() {
		var product laborator.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Price); err != nil {
			return nil, lookupErr(p.Table, err)
		}
		out = append(out, product)
	}
	if err := rows.Err(); err != nil {
		return nil, lookupErr(p.Table, err)
	}
	return out, nil
}

// lookupErr keeps the server-side detail of Postgres errors in the cause.
func lookupErr(collection string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		err = fmt.Errorf("%s (SQLSTATE %s): %w", pgErr.Message, pgErr.Code, err)
	}
	return &laborator.LookupError{Collection: collection, Err: err}
}

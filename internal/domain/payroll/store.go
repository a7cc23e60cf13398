package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps each payslip as a JSONB document. Status, period and the headline totals are
// duplicated into columns for the year-to-date scan and listings.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const payslipColumns = "document"

func (s *Store) FindByID(ctx context.Context, id string) (Payslip, error) {
	return s.findOne(ctx, `SELECT `+payslipColumns+` FROM payslips WHERE id = $1`, id)
}

func (s *Store) FindByUserPeriod(ctx context.Context, userID, period string) (Payslip, error) {
	return s.findOne(ctx, `
    SELECT `+payslipColumns+`
    FROM payslips
    WHERE user_id = $1 AND pay_period = $2
  `, userID, period)
}

func (s *Store) findOne(ctx context.Context, query string, args ...any) (Payslip, error) {
	var raw []byte
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payslip{}, ErrPayslipNotFound
		}
		return Payslip{}, err
	}
	return decodePayslip(raw)
}

func (s *Store) Create(ctx context.Context, p Payslip) (Payslip, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return Payslip{}, fmt.Errorf("encode payslip: %w", err)
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO payslips (id, user_id, pay_period, status, gross, paye, uif, net_pay, document, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, p.ID, p.UserID, p.PayPeriod, string(p.Status), p.Summary().Gross, p.PAYE, p.UIF, p.NetPay, doc, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Payslip{}, ErrPayslipExists
		}
		return Payslip{}, err
	}
	return p, nil
}

func (s *Store) Save(ctx context.Context, p Payslip) (Payslip, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return Payslip{}, fmt.Errorf("encode payslip: %w", err)
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE payslips
    SET status = $2, gross = $3, paye = $4, uif = $5, net_pay = $6, document = $7, updated_at = $8
    WHERE id = $1
  `, p.ID, string(p.Status), p.Summary().Gross, p.PAYE, p.UIF, p.NetPay, doc, p.UpdatedAt)
	if err != nil {
		return Payslip{}, err
	}
	if tag.RowsAffected() == 0 {
		return Payslip{}, ErrPayslipNotFound
	}
	return p, nil
}

func (s *Store) ListByUser(ctx context.Context, userID, fromPeriod, toPeriod string) ([]Payslip, error) {
	return s.list(ctx, `
    SELECT `+payslipColumns+`
    FROM payslips
    WHERE user_id = $1 AND pay_period >= $2 AND pay_period < $3
    ORDER BY pay_period
  `, userID, fromPeriod, toPeriod)
}

func (s *Store) ListFinalized(ctx context.Context, userID, fromPeriod, toPeriod string) ([]Payslip, error) {
	return s.list(ctx, `
    SELECT `+payslipColumns+`
    FROM payslips
    WHERE user_id = $1 AND pay_period >= $2 AND pay_period < $3
      AND status IN ($4, $5)
    ORDER BY pay_period
  `, userID, fromPeriod, toPeriod, string(StatusLocked), string(StatusPaid))
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Payslip, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payslip
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		p, err := decodePayslip(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func decodePayslip(raw []byte) (Payslip, error) {
	var p Payslip
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payslip{}, fmt.Errorf("decode payslip: %w", err)
	}
	return p, nil
}

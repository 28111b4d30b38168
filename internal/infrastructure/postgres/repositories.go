package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/repository"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// ApplySchema creates the tables if they do not exist yet.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UnitOfWork struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

func (u *UnitOfWork) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &UnitOfWork{pool: u.pool, tx: tx}, nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (u *UnitOfWork) Payouts() repository.PayoutRepository {
	return &PayoutRepo{q: u.querier(), inTx: u.tx != nil}
}

func (u *UnitOfWork) Profiles() repository.ProfileRepository {
	return &ProfileRepo{q: u.querier()}
}

func (u *UnitOfWork) querier() querier {
	if u.tx != nil {
		return u.tx
	}
	return u.pool
}

const payoutColumns = `id, correlation_id, idempotency_key, user_id, source_id,
	source_amount::text, source_currency, dest_currency, beneficiary,
	funds_status, funds_reference, payout_status, payout_reference,
	status, failure_reason, version, created_at, updated_at`

type PayoutRepo struct {
	q    querier
	inTx bool
}

func (r *PayoutRepo) Create(ctx context.Context, p *entity.Payout) error {
	s := p.State()
	beneficiary, err := json.Marshal(s.Beneficiary)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx,
		`INSERT INTO payouts (id, correlation_id, idempotency_key, user_id, source_id,
			source_amount, source_currency, dest_currency, beneficiary,
			funds_status, funds_reference, payout_status, payout_reference,
			status, failure_reason, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16, $17)`,
		s.ID, s.CorrelationID, s.IdempotencyKey, s.UserID, s.SourceID,
		s.SourceAmount.String(), s.SourceCurrency, s.DestCurrency, beneficiary,
		string(s.FundsStatus), s.FundsReference, string(s.PayoutStatus), s.PayoutReference,
		string(s.Status), s.FailureReason, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
		}
		return err
	}
	p.SetVersion(1)
	return nil
}

// Update writes the mutable saga columns guarded by the version read with p.
func (r *PayoutRepo) Update(ctx context.Context, p *entity.Payout) error {
	s := p.State()

	var version int64
	err := r.q.QueryRow(ctx,
		`UPDATE payouts
		 SET funds_status = $2, funds_reference = $3, payout_status = $4, payout_reference = $5,
		     status = $6, failure_reason = $7, updated_at = $8, version = version + 1
		 WHERE id = $1 AND version = $9
		 RETURNING version`,
		s.ID, string(s.FundsStatus), s.FundsReference, string(s.PayoutStatus), s.PayoutReference,
		string(s.Status), s.FailureReason, s.UpdatedAt, s.Version,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payouts WHERE id = $1)`, s.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	if err != nil {
		return err
	}
	p.SetVersion(version)
	return nil
}

func (r *PayoutRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payout, error) {
	row := r.q.QueryRow(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE id = $1`, id)
	return scanOptional(row)
}

func (r *PayoutRepo) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Payout, error) {
	row := r.q.QueryRow(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE idempotency_key = $1`, key)
	return scanOptional(row)
}

func (r *PayoutRepo) ListUnfinished(ctx context.Context, updatedBefore time.Time, limit int) ([]*entity.Payout, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+payoutColumns+` FROM payouts
		 WHERE status NOT IN ('completed', 'failed') AND updated_at < $1
		 ORDER BY updated_at
		 LIMIT $2`,
		updatedBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LockIdempotencyKey serializes creators of the same key until the
// transaction ends.
func (r *PayoutRepo) LockIdempotencyKey(ctx context.Context, key string) error {
	if !r.inTx {
		return errors.New("idempotency lock requires a transaction")
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(h.Sum64())) //nolint:gosec // hash bits, sign irrelevant
	return err
}

func scanOptional(row pgx.Row) (*entity.Payout, error) {
	p, err := scanPayout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanPayout(row pgx.Row) (*entity.Payout, error) {
	var (
		s            entity.PayoutState
		amount       string
		beneficiary  []byte
		fundsStatus  string
		payoutStatus string
		status       string
	)
	err := row.Scan(
		&s.ID, &s.CorrelationID, &s.IdempotencyKey, &s.UserID, &s.SourceID,
		&amount, &s.SourceCurrency, &s.DestCurrency, &beneficiary,
		&fundsStatus, &s.FundsReference, &payoutStatus, &s.PayoutReference,
		&status, &s.FailureReason, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if s.SourceAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("payout %s amount: %w", s.ID, err)
	}
	if err := json.Unmarshal(beneficiary, &s.Beneficiary); err != nil {
		return nil, fmt.Errorf("payout %s beneficiary: %w", s.ID, err)
	}
	s.FundsStatus = entity.FundsStatus(fundsStatus)
	s.PayoutStatus = entity.PayoutStatus(payoutStatus)
	s.Status = entity.OverallStatus(status)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()

	return entity.ReconstructPayout(s), nil
}

type ProfileRepo struct {
	q querier
}

func (r *ProfileRepo) FindByUserID(ctx context.Context, userID string) (*entity.WalletProfile, error) {
	w := entity.WalletProfile{UserID: userID}
	err := r.q.QueryRow(ctx,
		`SELECT wallet_handle, wallet_credential, source_id, first_name, last_name, email, phone,
			address, city, state, zip, country, date_of_birth, id_type, id_number
		 FROM wallet_profiles WHERE user_id = $1`,
		userID,
	).Scan(
		&w.WalletHandle, &w.WalletCredential, &w.SourceID, &w.FirstName, &w.LastName, &w.Email, &w.Phone,
		&w.Address, &w.City, &w.State, &w.Zip, &w.Country, &w.DateOfBirth, &w.IDType, &w.IDNumber,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// UpsertProfile stores or replaces the wallet profile of w.UserID.
func UpsertProfile(ctx context.Context, pool *pgxpool.Pool, w entity.WalletProfile) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO wallet_profiles (user_id, wallet_handle, wallet_credential, source_id, first_name,
			last_name, email, phone, address, city, state, zip, country, date_of_birth, id_type, id_number)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (user_id) DO UPDATE SET
			wallet_handle = EXCLUDED.wallet_handle, wallet_credential = EXCLUDED.wallet_credential,
			source_id = EXCLUDED.source_id, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			email = EXCLUDED.email, phone = EXCLUDED.phone, address = EXCLUDED.address, city = EXCLUDED.city,
			state = EXCLUDED.state, zip = EXCLUDED.zip, country = EXCLUDED.country,
			date_of_birth = EXCLUDED.date_of_birth, id_type = EXCLUDED.id_type, id_number = EXCLUDED.id_number`,
		w.UserID, w.WalletHandle, w.WalletCredential, w.SourceID, w.FirstName,
		w.LastName, w.Email, w.Phone, w.Address, w.City, w.State, w.Zip, w.Country, w.DateOfBirth, w.IDType, w.IDNumber,
	)
	return err
}

package license

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresSubscriptionStore persists subscriptions in PostgreSQL.
//
// Schema: subscriptions(uid TEXT PK, email TEXT, clinic_name TEXT,
// plan TEXT, status TEXT, start_date TIMESTAMPTZ,
// expiration_date TIMESTAMPTZ, device_ids TEXT[], max_devices INT).
type PostgresSubscriptionStore struct {
	db *sql.DB
}

func NewPostgresSubscriptionStore(db *sql.DB) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{db: db}
}

func (s *PostgresSubscriptionStore) Create(ctx context.Context, sub Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (uid, email, clinic_name, plan, status, start_date, expiration_date, device_ids, max_devices)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email,
			clinic_name = EXCLUDED.clinic_name,
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			expiration_date = EXCLUDED.expiration_date,
			device_ids = EXCLUDED.device_ids,
			max_devices = EXCLUDED.max_devices`,
		sub.UID, sub.Email, sub.ClinicName, sub.Plan, sub.Status,
		sub.StartDate, sub.ExpirationDate, pq.Array(sub.DeviceIDs), sub.MaxDevices)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (s *PostgresSubscriptionStore) Get(ctx context.Context, uid string) (Subscription, error) {
	var sub Subscription
	var devices pq.StringArray
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, email, clinic_name, plan, status, start_date, expiration_date, device_ids, max_devices
		FROM subscriptions WHERE uid = $1`, uid).Scan(
		&sub.UID, &sub.Email, &sub.ClinicName, &sub.Plan, &sub.Status,
		&sub.StartDate, &sub.ExpirationDate, &devices, &sub.MaxDevices)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrSubscriptionNotFound
	}
	if err != nil {
		return Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	sub.DeviceIDs = devices
	return sub, nil
}

// AddDevice appends the fingerprint iff it is absent and the cap allows it,
// in a single guarded UPDATE so concurrent logins serialize on the row.
func (s *PostgresSubscriptionStore) AddDevice(ctx context.Context, uid, deviceID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET device_ids = array_append(device_ids, $2)
		WHERE uid = $1
		  AND NOT device_ids @> ARRAY[$2]
		  AND cardinality(device_ids) < max_devices`,
		uid, deviceID)
	if err != nil {
		return false, fmt.Errorf("add device: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add device: %w", err)
	}
	if affected == 1 {
		return true, nil
	}

	// Nothing updated: distinguish already-bound, capped, and missing.
	sub, err := s.Get(ctx, uid)
	if err != nil {
		return false, err
	}
	if sub.HasDevice(deviceID) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %d", ErrDeviceLimit, sub.MaxDevices)
}

func (s *PostgresSubscriptionStore) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid FROM subscriptions
		WHERE status = $1 AND expiration_date < $2`, StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	defer rows.Close()
	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan expired uid: %w", err)
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

func (s *PostgresSubscriptionStore) MarkExpired(ctx context.Context, uids []string) error {
	if len(uids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = $1 WHERE uid = ANY($2)`,
		StatusExpired, pq.Array(uids))
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	return nil
}

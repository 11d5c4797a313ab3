package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hellas-direct/intake-assistant/internal/model"
)

const uniqueViolation = "23505"

// PostgresStore implements Gateway on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			full_name TEXT,
			registration_number TEXT,
			afm TEXT,
			phone_number TEXT,
			email TEXT,
			address TEXT,
			starting_date TIMESTAMPTZ,
			ending_at TIMESTAMPTZ
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_registration_number ON users(registration_number);`,
		`CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
			registration_number TEXT,
			location TEXT,
			description TEXT,
			case_type TEXT CHECK (case_type IN ('AC', 'RA', 'OTHER')),
			final_vehicle_destination TEXT,
			possible_vehicle_malfunction TEXT,
			possible_problem_resolution TEXT,
			recommended_garage TEXT,
			is_destination_out_perfecture BOOLEAN,
			delay_voucher_issued BOOLEAN,
			geolocation_link_sent TEXT,
			responsible_declaration_required TEXT,
			is_fast_case BOOLEAN,
			is_fraud_case INTEGER,
			communication_quality TEXT,
			case_summary TEXT,
			images TEXT[]
		);`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_registration_created ON incidents(registration_number, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_user ON incidents(user_id);`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const userColumns = `id, created_at, full_name, registration_number, afm, phone_number, email, address, starting_date, ending_at`

const incidentColumns = `id, created_at, user_id, registration_number, location, description, case_type,
	final_vehicle_destination, possible_vehicle_malfunction, possible_problem_resolution, recommended_garage,
	is_destination_out_perfecture, delay_voucher_issued, geolocation_link_sent, responsible_declaration_required,
	is_fast_case, is_fraud_case, communication_quality, case_summary, images`

// CreateUser inserts a user.
func (s *PostgresStore) CreateUser(ctx context.Context, fields model.UserPatch) (*model.User, error) {
	id := uuid.Must(uuid.NewV7()).String()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, created_at, full_name, registration_number, afm, phone_number, email, address, starting_date, ending_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+userColumns,
		id, time.Now().UTC(), fields.FullName, trimmed(fields.RegistrationNumber), fields.AFM, fields.PhoneNumber,
		fields.Email, fields.Address, fields.StartingDate, fields.EndingAt)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create user: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateUser applies a partial update.
func (s *PostgresStore) UpdateUser(ctx context.Context, id string, fields model.UserPatch) (*model.User, error) {
	var b setBuilder
	b.add("full_name", fields.FullName)
	b.add("registration_number", trimmed(fields.RegistrationNumber))
	b.add("afm", fields.AFM)
	b.add("phone_number", fields.PhoneNumber)
	b.add("email", fields.Email)
	b.add("address", fields.Address)
	b.add("starting_date", fields.StartingDate)
	b.add("ending_at", fields.EndingAt)

	var row pgx.Row
	if b.empty() {
		row = s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	} else {
		query, args := b.build("users", id, userColumns)
		row = s.pool.QueryRow(ctx, query, args...)
	}

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("update user %s: %w", id, ErrDuplicate)
		}
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return user, nil
}

// GetUserByRegistrationNumber returns nil, nil when no user matches.
func (s *PostgresStore) GetUserByRegistrationNumber(ctx context.Context, registrationNumber string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE registration_number=$1
	`, strings.TrimSpace(registrationNumber))

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by registration number: %w", err)
	}
	return user, nil
}

// CreateIncident inserts an incident owned by userID.
func (s *PostgresStore) CreateIncident(ctx context.Context, userID string, fields model.IncidentPatch) (*model.Incident, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("create incident: user id is required: %w", ErrInvalidInput)
	}

	id := uuid.Must(uuid.NewV7()).String()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO incidents (id, created_at, user_id, registration_number, location, description, case_type,
			final_vehicle_destination, possible_vehicle_malfunction, possible_problem_resolution, recommended_garage,
			is_destination_out_perfecture, delay_voucher_issued, geolocation_link_sent, responsible_declaration_required,
			is_fast_case, is_fraud_case, communication_quality, case_summary, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING `+incidentColumns,
		id, time.Now().UTC(), userID, trimmed(fields.RegistrationNumber), fields.Location, fields.Description,
		caseTypeArg(fields.CaseType), fields.FinalVehicleDestination, fields.PossibleVehicleMalfunction,
		fields.PossibleProblemResolution, fields.RecommendedGarage, fields.IsDestinationOutPerfecture,
		fields.DelayVoucherIssued, fields.GeolocationLinkSent, fields.ResponsibleDeclarationRequired,
		fields.IsFastCase, fields.IsFraudCase, fields.CommunicationQuality, fields.CaseSummary, fields.Images)

	inc, err := scanIncident(row)
	if err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	return inc, nil
}

// UpdateIncident applies a partial update.
func (s *PostgresStore) UpdateIncident(ctx context.Context, id string, fields model.IncidentPatch) (*model.Incident, error) {
	var b setBuilder
	b.add("registration_number", trimmed(fields.RegistrationNumber))
	b.add("location", fields.Location)
	b.add("description", fields.Description)
	b.add("case_type", caseTypeArg(fields.CaseType))
	b.add("final_vehicle_destination", fields.FinalVehicleDestination)
	b.add("possible_vehicle_malfunction", fields.PossibleVehicleMalfunction)
	b.add("possible_problem_resolution", fields.PossibleProblemResolution)
	b.add("recommended_garage", fields.RecommendedGarage)
	b.add("is_destination_out_perfecture", fields.IsDestinationOutPerfecture)
	b.add("delay_voucher_issued", fields.DelayVoucherIssued)
	b.add("geolocation_link_sent", fields.GeolocationLinkSent)
	b.add("responsible_declaration_required", fields.ResponsibleDeclarationRequired)
	b.add("is_fast_case", fields.IsFastCase)
	b.add("is_fraud_case", fields.IsFraudCase)
	b.add("communication_quality", fields.CommunicationQuality)
	b.add("case_summary", fields.CaseSummary)
	if fields.Images != nil {
		b.set("images", fields.Images)
	}

	var row pgx.Row
	if b.empty() {
		row = s.pool.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id=$1`, id)
	} else {
		query, args := b.build("incidents", id, incidentColumns)
		row = s.pool.QueryRow(ctx, query, args...)
	}

	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update incident %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update incident %s: %w", id, err)
	}
	return inc, nil
}

// ReassignIncident moves an incident to a different owner.
func (s *PostgresStore) ReassignIncident(ctx context.Context, id, userID string) (*model.Incident, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE incidents
		SET user_id=$2
		WHERE id=$1
		RETURNING `+incidentColumns, id, userID)

	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reassign incident %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reassign incident %s: %w", id, err)
	}
	return inc, nil
}

// GetIncidentByID returns nil, nil when the incident does not exist.
func (s *PostgresStore) GetIncidentByID(ctx context.Context, id string) (*model.Incident, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id=$1`, id)
	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get incident %s: %w", id, err)
	}
	return inc, nil
}

// ListIncidentsByRegistrationNumber returns matching incidents, newest first.
func (s *PostgresStore) ListIncidentsByRegistrationNumber(ctx context.Context, registrationNumber string) ([]model.Incident, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+incidentColumns+`
		FROM incidents
		WHERE registration_number=$1
		ORDER BY created_at DESC, id DESC
	`, strings.TrimSpace(registrationNumber))
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []model.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("list incidents: %w", err)
		}
		out = append(out, *inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return out, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID, &u.CreatedAt, &u.FullName, &u.RegistrationNumber, &u.AFM,
		&u.PhoneNumber, &u.Email, &u.Address, &u.StartingDate, &u.EndingAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanIncident(row pgx.Row) (*model.Incident, error) {
	var (
		inc      model.Incident
		caseType *string
	)
	if err := row.Scan(
		&inc.ID, &inc.CreatedAt, &inc.UserID, &inc.RegistrationNumber, &inc.Location, &inc.Description, &caseType,
		&inc.FinalVehicleDestination, &inc.PossibleVehicleMalfunction, &inc.PossibleProblemResolution, &inc.RecommendedGarage,
		&inc.IsDestinationOutPerfecture, &inc.DelayVoucherIssued, &inc.GeolocationLinkSent, &inc.ResponsibleDeclarationRequired,
		&inc.IsFastCase, &inc.IsFraudCase, &inc.CommunicationQuality, &inc.CaseSummary, &inc.Images,
	); err != nil {
		return nil, err
	}
	if caseType != nil {
		ct := model.CaseType(*caseType)
		inc.CaseType = &ct
	}
	return &inc, nil
}

func caseTypeArg(ct *model.CaseType) *string {
	if ct == nil {
		return nil
	}
	s := string(*ct)
	return &s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// setBuilder assembles the SET clause of a partial UPDATE from the non-nil
// fields of a patch.
type setBuilder struct {
	columns []string
	args    []any
}

func (b *setBuilder) add(column string, value any) {
	if isNilPointer(value) {
		return
	}
	b.set(column, value)
}

func (b *setBuilder) set(column string, value any) {
	b.args = append(b.args, value)
	b.columns = append(b.columns, fmt.Sprintf("%s=$%d", column, len(b.args)))
}

func (b *setBuilder) empty() bool {
	return len(b.columns) == 0
}

func (b *setBuilder) build(table, id, returning string) (string, []any) {
	args := append(b.args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id=$%d RETURNING %s",
		table, strings.Join(b.columns, ", "), len(args), returning)
	return query, args
}

func isNilPointer(v any) bool {
	switch p := v.(type) {
	case nil:
		return true
	case *string:
		return p == nil
	case *bool:
		return p == nil
	case *int:
		return p == nil
	case *time.Time:
		return p == nil
	}
	return false
}

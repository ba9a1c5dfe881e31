package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads plan and property reference data. Catalog maintenance is
// an external concern; this service only consumes it.
type Repository interface {
	GetPlan(ctx context.Context, id string) (Plan, error)
	ListPlans(ctx context.Context) ([]Plan, error)
	GetProperty(ctx context.Context, id string) (Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
}

// PostgresRepository reads the catalog from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const planColumns = `id, name, type, min_amount::text, max_amount::text, return_rate::text, duration_months`

// GetPlan fetches an investment plan by identifier.
func (r *PostgresRepository) GetPlan(ctx context.Context, id string) (Plan, error) {
	planID, err := uuid.Parse(id)
	if err != nil {
		return Plan{}, ErrPlanNotFound
	}
	plan, err := scanPlan(r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, planID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, ErrPlanNotFound
	}
	return plan, err
}

// ListPlans returns all investment plans.
func (r *PostgresRepository) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM plans ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// GetProperty fetches a property by identifier.
func (r *PostgresRepository) GetProperty(ctx context.Context, id string) (Property, error) {
	propertyID, err := uuid.Parse(id)
	if err != nil {
		return Property{}, ErrPropertyNotFound
	}
	property, err := scanProperty(r.db.QueryRow(ctx, `SELECT id, name, price::text, max_installments
        FROM properties WHERE id = $1`, propertyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, ErrPropertyNotFound
	}
	return property, err
}

// ListProperties returns all purchasable properties.
func (r *PostgresRepository) ListProperties(ctx context.Context) ([]Property, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, price::text, max_installments FROM properties ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []Property
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, property)
	}
	return properties, rows.Err()
}

func scanPlan(row pgx.Row) (Plan, error) {
	var (
		p                       Plan
		id                      uuid.UUID
		minStr, maxStr, rateStr string
	)
	if err := row.Scan(&id, &p.Name, &p.Type, &minStr, &maxStr, &rateStr, &p.DurationMonths); err != nil {
		return Plan{}, err
	}
	var err error
	if p.MinAmount, err = decimal.NewFromString(minStr); err != nil {
		return Plan{}, fmt.Errorf("parse min amount: %w", err)
	}
	if p.MaxAmount, err = decimal.NewFromString(maxStr); err != nil {
		return Plan{}, fmt.Errorf("parse max amount: %w", err)
	}
	if p.ReturnRate, err = decimal.NewFromString(rateStr); err != nil {
		return Plan{}, fmt.Errorf("parse return rate: %w", err)
	}
	p.ID = id.String()
	return p, nil
}

func scanProperty(row pgx.Row) (Property, error) {
	var (
		p        Property
		id       uuid.UUID
		priceStr string
	)
	if err := row.Scan(&id, &p.Name, &priceStr, &p.MaxInstallments); err != nil {
		return Property{}, err
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return Property{}, fmt.Errorf("parse price: %w", err)
	}
	p.ID = id.String()
	p.Price = price
	return p, nil
}

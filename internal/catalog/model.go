package catalog

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrPlanNotFound indicates the referenced investment plan does not exist.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPropertyNotFound indicates the referenced property does not exist.
	ErrPropertyNotFound = errors.New("property not found")
)

// Investment product types.
const (
	TypeRealEstateShare = "real_estate_share"
	TypeGreenEnergy     = "green_energy"
	TypeMarket          = "market"
)

// Plan is read-mostly reference data describing an investment product.
// Plan terms are copied onto each investment at creation, so later changes
// to a plan never alter existing positions.
type Plan struct {
	ID             string
	Name           string
	Type           string
	MinAmount      decimal.Decimal
	MaxAmount      decimal.Decimal
	ReturnRate     decimal.Decimal
	DurationMonths int
}

// Property describes a physical asset purchasable in full or on installment.
type Property struct {
	ID              string
	Name            string
	Price           decimal.Decimal
	MaxInstallments int
}

package billing

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unlimited is the quota sentinel for plans without a limit
const Unlimited = -1

// Plan identifies a subscription plan
type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// DefaultCurrency is used for invoices that do not name a currency
const DefaultCurrency = "USD"

func init() {
	// amounts are JSON numbers on the wire
	decimal.MarshalJSONWithoutQuotes = true
}

// PlanInfo is the catalog metadata of a plan
type PlanInfo struct {
	ID           Plan            `json:"id"`
	Name         string          `json:"name"`
	PriceMonthly decimal.Decimal `json:"price_monthly"`
	Currency     string          `json:"currency"`
	MaxProjects  int             `json:"max_projects"`
	MaxTasks     int             `json:"max_tasks"`
	Features     []string        `json:"features"`
}

// IsPaid reports whether the plan has a nonzero monthly price
func (p PlanInfo) IsPaid() bool {
	return p.PriceMonthly.IsPositive()
}

// Unlimited reports whether the plan lifts both project and task limits
func (p PlanInfo) Unlimited() bool {
	return p.MaxProjects == Unlimited && p.MaxTasks == Unlimited
}

// ParsePlan validates a caller-supplied plan identifier
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case PlanFree, PlanStarter, PlanPro, PlanEnterprise:
		return p, nil
	default:
		return "", &ValidationError{Field: "plan", Message: fmt.Sprintf("unknown plan %q", s)}
	}
}

// Info returns the catalog entry for p
func (p Plan) Info() PlanInfo {
	switch p {
	case PlanFree:
		return PlanInfo{
			ID:           PlanFree,
			Name:         "Free",
			PriceMonthly: decimal.Zero,
			Currency:     DefaultCurrency,
			MaxProjects:  3,
			MaxTasks:     100,
			Features:     []string{"Up to 3 projects", "Up to 100 tasks", "Community support"},
		}
	case PlanStarter:
		return PlanInfo{
			ID:           PlanStarter,
			Name:         "Starter",
			PriceMonthly: decimal.RequireFromString("9.99"),
			Currency:     DefaultCurrency,
			MaxProjects:  10,
			MaxTasks:     500,
			Features:     []string{"Up to 10 projects", "Up to 500 tasks", "Email support", "Task tags"},
		}
	case PlanPro:
		return PlanInfo{
			ID:           PlanPro,
			Name:         "Pro",
			PriceMonthly: decimal.RequireFromString("29.99"),
			Currency:     DefaultCurrency,
			MaxProjects:  50,
			MaxTasks:     5000,
			Features:     []string{"Up to 50 projects", "Up to 5000 tasks", "Priority support", "Data export", "API access"},
		}
	case PlanEnterprise:
		return PlanInfo{
			ID:           PlanEnterprise,
			Name:         "Enterprise",
			PriceMonthly: decimal.RequireFromString("99.99"),
			Currency:     DefaultCurrency,
			MaxProjects:  Unlimited,
			MaxTasks:     Unlimited,
			Features:     []string{"Unlimited projects", "Unlimited tasks", "Dedicated support", "Single sign-on", "99.9% uptime SLA"},
		}
	default:
		return PlanFree.Info()
	}
}

// String implements fmt.Stringer
func (p Plan) String() string {
	return string(p)
}

// Value implements driver.Valuer
func (p Plan) Value() (driver.Value, error) {
	if _, err := ParsePlan(string(p)); err != nil {
		return nil, err
	}
	return string(p), nil
}

// Scan implements sql.Scanner
func (p *Plan) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Plan", src)
	}
	parsed, err := ParsePlan(raw)
	if err != nil {
		return fmt.Errorf("invalid stored plan %q", raw)
	}
	*p = parsed
	return nil
}

// Plans returns the catalog in display order
func Plans() []PlanInfo {
	return []PlanInfo{
		PlanFree.Info(),
		PlanStarter.Info(),
		PlanPro.Info(),
		PlanEnterprise.Info(),
	}
}

// LookupPlan returns the catalog entry for id. Unknown ids resolve to the free
// plan with ok set to false.
func LookupPlan(id string) (info PlanInfo, ok bool) {
	p, err := ParsePlan(id)
	if err != nil {
		return PlanFree.Info(), false
	}
	return p.Info(), true
}

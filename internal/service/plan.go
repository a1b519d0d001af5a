package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Plan 售卖套餐定义
type Plan struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	DurationDays   int             `json:"duration_days"` // 0 表示永久授权
	MaxActivations int             `json:"max_activations"`
}

// DefaultPlans 内置套餐目录
func DefaultPlans() []Plan {
	return []Plan{
		{ID: "pro_monthly", Name: "专业版月付", Price: decimal.NewFromInt(68), DurationDays: 31, MaxActivations: 1},
		{ID: "pro_yearly", Name: "专业版年付", Price: decimal.NewFromInt(648), DurationDays: 366, MaxActivations: 2},
		{ID: "lifetime", Name: "永久授权", Price: decimal.NewFromInt(1680), DurationDays: 0, MaxActivations: 3},
	}
}

// PlanCatalog 套餐目录
type PlanCatalog struct {
	plans map[string]Plan
	order []string
}

// NewPlanCatalog 创建套餐目录，空列表时回退到内置目录
func NewPlanCatalog(plans []Plan) *PlanCatalog {
	if len(plans) == 0 {
		plans = DefaultPlans()
	}
	catalog := &PlanCatalog{plans: make(map[string]Plan, len(plans))}
	for _, plan := range plans {
		id := strings.TrimSpace(plan.ID)
		if id == "" {
			continue
		}
		if plan.MaxActivations <= 0 {
			plan.MaxActivations = 1
		}
		if _, exists := catalog.plans[id]; !exists {
			catalog.order = append(catalog.order, id)
		}
		catalog.plans[id] = plan
	}
	return catalog
}

// Get 按套餐标识查询
func (c *PlanCatalog) Get(id string) (Plan, bool) {
	plan, ok := c.plans[strings.TrimSpace(id)]
	return plan, ok
}

// List 返回全部套餐
func (c *PlanCatalog) List() []Plan {
	plans := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		plans = append(plans, c.plans[id])
	}
	return plans
}

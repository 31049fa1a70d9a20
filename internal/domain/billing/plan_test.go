package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan(t *testing.T) *Plan {
	t.Helper()
	p, err := NewPlan("Emprendedor", "Plan básico", decimal.NewFromInt(10),
		PlanFeatures{AIExtraction: true},
		PlanLimits{MaxCompanies: 1, MaxVouchersMonthly: 50})
	require.NoError(t, err)
	return p
}

func TestNewPlan(t *testing.T) {
	t.Run("creates an active plan", func(t *testing.T) {
		p := testPlan(t)
		assert.True(t, p.Active)
		assert.True(t, p.Features.AIExtraction)
		assert.False(t, p.Features.ChatAssistant)
		assert.Equal(t, 1, p.Limits.MaxCompanies)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := NewPlan("", "", decimal.NewFromInt(10), PlanFeatures{}, PlanLimits{})
		assert.Error(t, err)

		_, err = NewPlan("X", "", decimal.NewFromInt(-1), PlanFeatures{}, PlanLimits{})
		assert.Error(t, err)

		_, err = NewPlan("X", "", decimal.Zero, PlanFeatures{}, PlanLimits{MaxCompanies: -1})
		assert.Error(t, err)
	})
}

func TestPlanLimits(t *testing.T) {
	p := testPlan(t)

	assert.True(t, p.AllowsCompanies(0))
	assert.False(t, p.AllowsCompanies(1))

	assert.True(t, p.AllowsVouchers(49))
	assert.False(t, p.AllowsVouchers(50))

	t.Run("zero means unlimited", func(t *testing.T) {
		unlimited, err := NewPlan("Corporativo", "", decimal.NewFromInt(100), PlanFeatures{}, PlanLimits{})
		require.NoError(t, err)
		assert.True(t, unlimited.AllowsCompanies(10000))
		assert.True(t, unlimited.AllowsVouchers(10000))
	})
}

func TestPlanUpdateAndDeactivate(t *testing.T) {
	p := testPlan(t)

	require.NoError(t, p.Update("Nuevo texto", decimal.NewFromInt(15),
		PlanFeatures{AIExtraction: true, ChatAssistant: true},
		PlanLimits{MaxCompanies: 3, MaxVouchersMonthly: 200}))
	assert.True(t, p.MonthlyPrice.Equal(decimal.NewFromInt(15)))
	assert.True(t, p.Features.ChatAssistant)

	assert.Error(t, p.Update("", decimal.NewFromInt(-1), PlanFeatures{}, PlanLimits{}))

	p.Deactivate()
	assert.False(t, p.Active)
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountmarket/internal/domain/entity"
)

func TestTransferPlanSteps(t *testing.T) {
	plans := NewTransferPlanProvider()

	assert.Len(t, plans.Steps("instagram"), 7)
	assert.Len(t, plans.Steps(" Instagram "), 7)
	assert.Len(t, plans.Steps("ig"), 7)
	assert.Len(t, plans.Steps("youtube"), 5)
	assert.Len(t, plans.Steps("tiktok"), 5)
	assert.Len(t, plans.Steps("x"), 5)
	assert.Len(t, plans.Steps("facebook"), 5)
	assert.Len(t, plans.Steps("myspace"), 3)
	assert.Len(t, plans.Steps(""), 3)
}

func TestTransferPlanReturnsCopies(t *testing.T) {
	plans := NewTransferPlanProvider()

	first := plans.Steps("instagram")
	first[0].Title = "changed"
	first[0].Instructions[0] = "changed"

	second := plans.Steps("instagram")
	assert.Equal(t, "Verify account access", second[0].Title)
	assert.NotEqual(t, "changed", second[0].Instructions[0])
}

func TestNewTransferProgress(t *testing.T) {
	steps := NewTransferProgress(NewTransferPlanProvider().Steps("youtube"))

	require.Len(t, steps, 5)
	for i, s := range steps {
		assert.Equal(t, i+1, s.StepNumber)
		assert.Equal(t, entity.StepStatusPending, s.Status)
		assert.NotEmpty(t, s.Title)
		assert.NotEmpty(t, s.Instructions)
	}
}

package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityOrderStartsWithChildren(t *testing.T) {
	order := PriorityOrder()
	assert.Equal(t, CategoryChildren, order[0])
	assert.Equal(t, CategoryAmazon, order[1])
	assert.Equal(t, CategoryReceipts, order[2])
	// The generic catch-all is last.
	assert.Equal(t, CategoryNotifications, order[len(order)-1])
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryCrowdfunding.Valid())
	assert.False(t, CategorySkip.Valid())
	assert.False(t, Category("groceries").Valid())
}

func TestNarrativeCategories(t *testing.T) {
	assert.True(t, CategoryShipping.Narrative())
	assert.True(t, CategoryReminders.Narrative())
	assert.False(t, CategoryFinancial.Narrative())
	assert.False(t, CategoryChildren.Narrative())
}

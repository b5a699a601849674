package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionLead(t *testing.T) {
	tests := []struct {
		from, to LeadStatus
		want     bool
	}{
		{LeadNew, LeadContacted, true},
		{LeadNew, LeadQualified, true},
		{LeadNew, LeadRejected, true},
		{LeadNew, LeadConverted, false},
		{LeadContacted, LeadConverted, true},
		{LeadQualified, LeadConverted, true},
		{LeadConverted, LeadNew, false},
		{LeadRejected, LeadContacted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionLead(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestComputeChange(t *testing.T) {
	tests := []struct {
		name                 string
		prev, current, depth int
		want                 int
	}{
		{"moved up", 12, 5, 100, 7},
		{"moved down", 3, 9, 100, -6},
		{"no move", 4, 4, 100, 0},
		{"never found", 0, 0, 100, 0},
		{"entered serp", 0, 8, 100, 93},
		{"dropped out", 8, 0, 100, -93},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeChange(tt.prev, tt.current, tt.depth))
		})
	}
}

func TestTaskDueSoon(t *testing.T) {
	soon := time.Now().Add(2 * time.Hour)
	far := time.Now().Add(72 * time.Hour)

	open := &Task{Status: TaskOpen, DueDate: &soon}
	assert.True(t, open.DueSoon(24*time.Hour))

	notYet := &Task{Status: TaskOpen, DueDate: &far}
	assert.False(t, notYet.DueSoon(24*time.Hour))

	done := &Task{Status: TaskDone, DueDate: &soon}
	assert.False(t, done.DueSoon(24*time.Hour))

	noDue := &Task{Status: TaskOpen}
	assert.False(t, noDue.DueSoon(24*time.Hour))
}

func TestSEOAPIKeyRemaining(t *testing.T) {
	k := &SEOAPIKey{DailyLimit: 1000, UnitsUsed: 400}
	assert.Equal(t, int64(600), k.Remaining())

	exhausted := &SEOAPIKey{DailyLimit: 1000, UnitsUsed: 1000}
	assert.Equal(t, int64(0), exhausted.Remaining())

	over := &SEOAPIKey{DailyLimit: 1000, UnitsUsed: 1200}
	assert.Equal(t, int64(0), over.Remaining())
}

func TestStatusValidators(t *testing.T) {
	assert.True(t, ValidWebsiteStatus(WebsiteRented))
	assert.False(t, ValidWebsiteStatus("demolished"))
	assert.True(t, ValidLeadStatus(LeadQualified))
	assert.False(t, ValidLeadStatus(""))
	assert.True(t, ValidTaskStatus(TaskInProgress))
	assert.False(t, ValidTaskStatus("paused"))
	assert.True(t, ValidUserRole(RoleAdmin))
	assert.False(t, ValidUserRole("superuser"))
}

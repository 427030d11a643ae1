package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedID() string { return "user-1" }

func TestNewProfileIncomeByLifeStage(t *testing.T) {
	tests := []struct {
		lifeStage string
		want      int
	}{
		{"Student", 15000},
		{"Just Started Working", 30000},
		{"Young Professional", 50000},
		{"Independent Adult", 75000},
		{"Retired", DefaultIncome},
		{"student", DefaultIncome},
	}
	for _, tc := range tests {
		p, err := NewProfile(OnboardingInput{
			Name:           "Asha",
			KnowledgeLevel: "Beginner",
			LifeStage:      tc.lifeStage,
			PrimaryGoal:    "Save",
		}, fixedID)
		require.NoError(t, err, tc.lifeStage)
		assert.Equal(t, tc.want, p.Income, tc.lifeStage)
	}
}

func TestNewProfileXPByKnowledge(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"Beginner", 50},
		{"Some Knowledge", 75},
		{"Intermediate", 100},
		{"Expert", DefaultXP},
	}
	for _, tc := range tests {
		p, err := NewProfile(OnboardingInput{
			Name:           "Asha",
			KnowledgeLevel: tc.level,
			LifeStage:      "Student",
			PrimaryGoal:    "Save",
		}, fixedID)
		require.NoError(t, err, tc.level)
		assert.Equal(t, tc.want, p.XP, tc.level)
	}
}

func TestNewProfileStartingState(t *testing.T) {
	p, err := NewProfile(OnboardingInput{
		Name:           "Asha",
		KnowledgeLevel: "Beginner",
		LifeStage:      "Student",
		PrimaryGoal:    "Save for a trip",
	}, fixedID)
	require.NoError(t, err)

	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, 15000, p.Income)
	assert.Equal(t, 50, p.XP)
	assert.Equal(t, 100000, p.Balance)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, "Save for a trip", p.FocusGoal)
	assert.Equal(t, 1, p.Budget.Month)
	assert.False(t, p.Budget.Allocated)
	assert.Zero(t, p.Budget.Needs+p.Budget.Wants+p.Budget.Savings)
	assert.Zero(t, p.Budget.NeedsRemaining+p.Budget.WantsRemaining+p.Budget.SavingsRemaining)
	assert.Empty(t, p.Budget.ExpensesPaid)
	assert.Empty(t, p.Budget.MonthHistory)
}

func TestNewProfileMissingFields(t *testing.T) {
	full := OnboardingInput{Name: "Asha", KnowledgeLevel: "Beginner", LifeStage: "Student", PrimaryGoal: "Save"}
	tests := []struct {
		field string
		edit  func(*OnboardingInput)
	}{
		{"name", func(in *OnboardingInput) { in.Name = "" }},
		{"knowledge_level", func(in *OnboardingInput) { in.KnowledgeLevel = "  " }},
		{"life_stage", func(in *OnboardingInput) { in.LifeStage = "" }},
		{"primary_goal", func(in *OnboardingInput) { in.PrimaryGoal = "\t" }},
	}
	for _, tc := range tests {
		in := full
		tc.edit(&in)
		_, err := NewProfile(in, fixedID)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), tc.field)
		assert.Equal(t, []string{tc.field}, verr.Fields)
	}

	_, err := NewProfile(OnboardingInput{}, fixedID)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 4)
}

func TestExpenseSetJSON(t *testing.T) {
	s := ExpenseSet{}
	s.Add("rent")
	s.Add("groceries")
	s.Add("rent")

	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `["groceries","rent"]`, string(b))

	var back ExpenseSet
	require.NoError(t, back.UnmarshalJSON([]byte(`["a","b","a"]`)))
	assert.Len(t, back, 2)
	assert.True(t, back.Has("a"))
}

package game

import (
	"errors"
	"fmt"
	"strings"
)

const (
	StarterBalance = 100_000
	StarterLevel   = 1

	// Unmatched onboarding answers fall back to the lowest tier.
	DefaultIncome = 15_000
	DefaultXP     = 50
)

var IncomeByLifeStage = map[string]int{
	"Student":              15_000,
	"Just Started Working": 30_000,
	"Young Professional":   50_000,
	"Independent Adult":    75_000,
}

var XPByKnowledge = map[string]int{
	"Beginner":       50,
	"Some Knowledge": 75,
	"Intermediate":   100,
}

var ErrNotFound = errors.New("user not found")

// ValidationError reports request fields that were missing or blank.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func IncomeFor(lifeStage string) int {
	if v, ok := IncomeByLifeStage[lifeStage]; ok {
		return v
	}
	return DefaultIncome
}

func XPFor(knowledgeLevel string) int {
	if v, ok := XPByKnowledge[knowledgeLevel]; ok {
		return v
	}
	return DefaultXP
}

package game

import "strings"

// NewProfile builds the starting profile for an onboarding answer set.
// Unknown life stages and knowledge levels get the lowest tier rather than
// an error; only blank fields are rejected.
func NewProfile(in OnboardingInput, newID func() string) (Profile, error) {
	in = OnboardingInput{
		Name:           strings.TrimSpace(in.Name),
		KnowledgeLevel: strings.TrimSpace(in.KnowledgeLevel),
		LifeStage:      strings.TrimSpace(in.LifeStage),
		PrimaryGoal:    strings.TrimSpace(in.PrimaryGoal),
	}
	if err := validateOnboarding(in); err != nil {
		return Profile{}, err
	}
	return Profile{
		UserID:         newID(),
		Name:           in.Name,
		Income:         IncomeFor(in.LifeStage),
		KnowledgeLevel: in.KnowledgeLevel,
		LifeStage:      in.LifeStage,
		FocusGoal:      in.PrimaryGoal,
		Balance:        StarterBalance,
		XP:             XPFor(in.KnowledgeLevel),
		Level:          StarterLevel,
		Budget:         NewBudget(),
	}, nil
}

func validateOnboarding(in OnboardingInput) error {
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.KnowledgeLevel == "" {
		missing = append(missing, "knowledge_level")
	}
	if in.LifeStage == "" {
		missing = append(missing, "life_stage")
	}
	if in.PrimaryGoal == "" {
		missing = append(missing, "primary_goal")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

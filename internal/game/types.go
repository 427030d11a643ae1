package game

import (
	"encoding/json"
	"sort"
)

type OnboardingInput struct {
	Name           string
	KnowledgeLevel string
	LifeStage      string
	PrimaryGoal    string
}

type Profile struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Income         int    `json:"income"`
	KnowledgeLevel string `json:"knowledge_level"`
	LifeStage      string `json:"life_stage"`
	FocusGoal      string `json:"focus_goal"`
	Balance        int    `json:"balance"`
	XP             int    `json:"xp"`
	Level          int    `json:"level"`
	Budget         Budget `json:"budget"`
}

type Budget struct {
	Month            int              `json:"month"`
	Allocated        bool             `json:"allocated"`
	Needs            int              `json:"needs"`
	Wants            int              `json:"wants"`
	Savings          int              `json:"savings"`
	NeedsRemaining   int              `json:"needsRemaining"`
	WantsRemaining   int              `json:"wantsRemaining"`
	SavingsRemaining int              `json:"savingsRemaining"`
	ExpensesPaid     ExpenseSet       `json:"expensesPaid"`
	MonthHistory     []map[string]any `json:"monthHistory"`
}

func NewBudget() Budget {
	return Budget{
		Month:        1,
		ExpensesPaid: ExpenseSet{},
		MonthHistory: []map[string]any{},
	}
}

// withDefaults fills what a client may leave out. A budget with no month
// (including a missing one) starts at month 1.
func (b Budget) withDefaults() Budget {
	if b.Month < 1 {
		b.Month = 1
	}
	if b.ExpensesPaid == nil {
		b.ExpensesPaid = ExpenseSet{}
	}
	if b.MonthHistory == nil {
		b.MonthHistory = []map[string]any{}
	}
	return b
}

// ExpenseSet is the set of paid expense ids. It travels as a sorted JSON list.
type ExpenseSet map[string]struct{}

func (s ExpenseSet) Add(id string) {
	s[id] = struct{}{}
}

func (s ExpenseSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s ExpenseSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s ExpenseSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *ExpenseSet) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	set := make(ExpenseSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	*s = set
	return nil
}

type Portfolio struct {
	Cash                 float64        `json:"cash"`
	MarketScenario       string         `json:"marketScenario"`
	InvestmentStartMonth int            `json:"investmentStartMonth"`
	GameStartMonth       int            `json:"gameStartMonth"`
	Achievements         map[string]any `json:"achievements"`
	Positions            []Position     `json:"positions"`
	Transactions         []Transaction  `json:"transactions"`
}

// Position is one holding. The pointer fields only apply to fixed-income
// instruments and stay nil for everything else.
type Position struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Name          string   `json:"name"`
	Quantity      float64  `json:"quantity"`
	AvgPrice      float64  `json:"avgPrice"`
	CurrentPrice  float64  `json:"currentPrice"`
	PurchaseMonth *int     `json:"purchaseMonth,omitempty"`
	Principal     *float64 `json:"principal,omitempty"`
	InterestRate  *float64 `json:"interestRate,omitempty"`
	Tenure        *int     `json:"tenure,omitempty"`
	MaturityMonth *int     `json:"maturityMonth,omitempty"`
}

type Transaction struct {
	TxID       string  `json:"txId"`
	Date       string  `json:"date"`
	Type       string  `json:"type"`
	AssetID    string  `json:"assetId"`
	AssetType  string  `json:"assetType"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	CashChange float64 `json:"cashChange"`
}

type MarketAsset struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Sector       string   `json:"sector"`
	BasePrice    *float64 `json:"basePrice,omitempty"`
	CurrentPrice float64  `json:"currentPrice"`
	Volatility   *float64 `json:"volatility,omitempty"`
	Rate         *float64 `json:"rate,omitempty"`
	Tenure       *int     `json:"tenure,omitempty"`
	Icon         string   `json:"icon"`
	Description  string   `json:"description"`
}

// GameState is the unit of sync. A nil Portfolio or Market means the client
// sent none; an empty, non-nil Market means "clear the market".
type GameState struct {
	Profile   Profile       `json:"profile"`
	Portfolio *Portfolio    `json:"portfolio"`
	Market    []MarketAsset `json:"market"`
}

type UserResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Income         int    `json:"income"`
	XP             int    `json:"xp"`
	Level          int    `json:"level"`
	Balance        int    `json:"balance"`
	KnowledgeLevel string `json:"knowledge_level"`
	LifeStage      string `json:"life_stage"`
	FocusGoal      string `json:"focus_goal"`
}

func (p Profile) Summary() UserResponse {
	return UserResponse{
		ID:             p.UserID,
		Name:           p.Name,
		Income:         p.Income,
		XP:             p.XP,
		Level:          p.Level,
		Balance:        p.Balance,
		KnowledgeLevel: p.KnowledgeLevel,
		LifeStage:      p.LifeStage,
		FocusGoal:      p.FocusGoal,
	}
}

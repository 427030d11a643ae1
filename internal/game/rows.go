package game

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"finplay/internal/store"
)

// Row mapping between the in-memory entities and store rows. Every entity has
// one toRow/fromRow pair; optional numeric fields go through optFloat/optInt
// on the way back so null propagation happens in one place.

const rowSpacing = time.Millisecond

func profileRow(p Profile) (store.Row, error) {
	budget, err := json.Marshal(p.Budget.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("encode budget: %w", err)
	}
	return store.Row{
		"user_id":         p.UserID,
		"name":            p.Name,
		"income":          p.Income,
		"knowledge_level": p.KnowledgeLevel,
		"life_stage":      p.LifeStage,
		"focus_goal":      p.FocusGoal,
		"balance":         p.Balance,
		"xp":              p.XP,
		"level":           p.Level,
		"budget":          json.RawMessage(budget),
	}, nil
}

func profileFromRow(row store.Row) (Profile, error) {
	r := rowReader{table: store.TableProfiles, row: row}
	p := Profile{
		UserID:         r.required("user_id"),
		Name:           r.str("name"),
		Income:         r.integer("income"),
		KnowledgeLevel: r.str("knowledge_level"),
		LifeStage:      r.str("life_stage"),
		FocusGoal:      r.str("focus_goal"),
		Balance:        r.integer("balance"),
		XP:             r.integer("xp"),
		Level:          r.integer("level"),
		Budget:         NewBudget(),
	}
	r.decode("budget", &p.Budget)
	p.Budget = p.Budget.withDefaults()
	return p, r.err
}

func portfolioRow(userID string, p Portfolio) (store.Row, error) {
	achievements, err := json.Marshal(p.Achievements)
	if err != nil {
		return nil, fmt.Errorf("encode achievements: %w", err)
	}
	return store.Row{
		"user_id":                userID,
		"cash":                   p.Cash,
		"market_scenario":        p.MarketScenario,
		"investment_start_month": p.InvestmentStartMonth,
		"game_start_month":       p.GameStartMonth,
		"achievements":           json.RawMessage(achievements),
	}, nil
}

func portfolioFromRow(row store.Row) (Portfolio, error) {
	r := rowReader{table: store.TablePortfolios, row: row}
	p := Portfolio{
		Cash:                 r.num("cash"),
		MarketScenario:       r.str("market_scenario"),
		InvestmentStartMonth: r.integer("investment_start_month"),
		GameStartMonth:       r.integer("game_start_month"),
		Achievements:         map[string]any{},
		Positions:            []Position{},
		Transactions:         []Transaction{},
	}
	r.decode("achievements", &p.Achievements)
	if p.Achievements == nil {
		p.Achievements = map[string]any{}
	}
	return p, r.err
}

// positionRows stamps rows with ascending created_at so reads ordered by
// created_at return the caller's order.
func positionRows(userID string, positions []Position, base time.Time) []store.Row {
	rows := make([]store.Row, 0, len(positions))
	for i, p := range positions {
		rows = append(rows, store.Row{
			"user_id":        userID,
			"asset_id":       p.ID,
			"asset_type":     p.Type,
			"name":           p.Name,
			"quantity":       p.Quantity,
			"avg_price":      p.AvgPrice,
			"current_price":  p.CurrentPrice,
			"purchase_month": intOrNil(p.PurchaseMonth),
			"principal":      floatOrNil(p.Principal),
			"interest_rate":  floatOrNil(p.InterestRate),
			"tenure":         intOrNil(p.Tenure),
			"maturity_month": intOrNil(p.MaturityMonth),
			"created_at":     base.Add(time.Duration(i) * rowSpacing),
		})
	}
	return rows
}

func positionFromRow(row store.Row) (Position, error) {
	r := rowReader{table: store.TablePositions, row: row}
	p := Position{
		ID:            r.required("asset_id"),
		Type:          r.str("asset_type"),
		Name:          r.str("name"),
		Quantity:      r.num("quantity"),
		AvgPrice:      r.num("avg_price"),
		CurrentPrice:  r.num("current_price"),
		PurchaseMonth: r.optInt("purchase_month"),
		Principal:     r.optFloat("principal"),
		InterestRate:  r.optFloat("interest_rate"),
		Tenure:        r.optInt("tenure"),
		MaturityMonth: r.optInt("maturity_month"),
	}
	return p, r.err
}

// transactionRows stamps rows with descending created_at: history is read
// newest first, and the caller's list is already in that order.
func transactionRows(userID string, txs []Transaction, base time.Time) []store.Row {
	rows := make([]store.Row, 0, len(txs))
	for i, t := range txs {
		rows = append(rows, store.Row{
			"user_id":     userID,
			"tx_id":       t.TxID,
			"date":        t.Date,
			"type":        t.Type,
			"asset_id":    t.AssetID,
			"asset_type":  t.AssetType,
			"quantity":    t.Quantity,
			"price":       t.Price,
			"cash_change": t.CashChange,
			"created_at":  base.Add(-time.Duration(i) * rowSpacing),
		})
	}
	return rows
}

func transactionFromRow(row store.Row) (Transaction, error) {
	r := rowReader{table: store.TableTransactions, row: row}
	t := Transaction{
		TxID:       r.required("tx_id"),
		Date:       r.str("date"),
		Type:       r.str("type"),
		AssetID:    r.str("asset_id"),
		AssetType:  r.str("asset_type"),
		Quantity:   r.num("quantity"),
		Price:      r.num("price"),
		CashChange: r.num("cash_change"),
	}
	return t, r.err
}

func marketRows(userID string, assets []MarketAsset, base time.Time) []store.Row {
	rows := make([]store.Row, 0, len(assets))
	for i, a := range assets {
		rows = append(rows, store.Row{
			"user_id":       userID,
			"asset_id":      a.ID,
			"asset_type":    a.Type,
			"name":          a.Name,
			"sector":        a.Sector,
			"base_price":    floatOrNil(a.BasePrice),
			"current_price": a.CurrentPrice,
			"volatility":    floatOrNil(a.Volatility),
			"rate":          floatOrNil(a.Rate),
			"tenure":        intOrNil(a.Tenure),
			"icon":          a.Icon,
			"description":   a.Description,
			"created_at":    base.Add(time.Duration(i) * rowSpacing),
		})
	}
	return rows
}

func marketAssetFromRow(row store.Row) (MarketAsset, error) {
	r := rowReader{table: store.TableMarkets, row: row}
	a := MarketAsset{
		ID:           r.required("asset_id"),
		Type:         r.str("asset_type"),
		Name:         r.str("name"),
		Sector:       r.str("sector"),
		BasePrice:    r.optFloat("base_price"),
		CurrentPrice: r.num("current_price"),
		Volatility:   r.optFloat("volatility"),
		Rate:         r.optFloat("rate"),
		Tenure:       r.optInt("tenure"),
		Icon:         r.str("icon"),
		Description:  r.str("description"),
	}
	return a, r.err
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// rowReader pulls typed values out of a store row and keeps the first error.
type rowReader struct {
	table string
	row   store.Row
	err   error
}

func (r *rowReader) fail(col string, format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%s.%s: %s", r.table, col, fmt.Sprintf(format, args...))
	}
}

func (r *rowReader) required(col string) string {
	s := r.str(col)
	if s == "" {
		r.fail(col, "missing value")
	}
	return s
}

func (r *rowReader) str(col string) string {
	switch v := r.row[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (r *rowReader) num(col string) float64 {
	v, ok := r.row[col]
	if !ok || v == nil {
		r.fail(col, "missing value")
		return 0
	}
	f, ok := toFloat(v)
	if !ok {
		r.fail(col, "not a number: %v", v)
	}
	return f
}

func (r *rowReader) integer(col string) int {
	return int(math.Round(r.num(col)))
}

// optFloat maps absent, null and zero stored values to nil.
func (r *rowReader) optFloat(col string) *float64 {
	v := r.row[col]
	if v == nil {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		r.fail(col, "not a number: %v", v)
		return nil
	}
	if f == 0 {
		return nil
	}
	return &f
}

func (r *rowReader) optInt(col string) *int {
	f := r.optFloat(col)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

// decode unmarshals a JSON column into out. A missing or null column leaves out untouched.
func (r *rowReader) decode(col string, out any) {
	var raw []byte
	switch v := r.row[col].(type) {
	case nil:
		return
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			r.fail(col, "re-encode: %v", err)
			return
		}
		raw = b
	}
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	if err := json.Unmarshal(raw, out); err != nil {
		r.fail(col, "decode: %v", err)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

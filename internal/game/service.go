package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finplay/internal/store"

	"github.com/google/uuid"
)

type Service struct {
	store store.Gateway
	log   *slog.Logger
	newID func() string
	now   func() time.Time
}

func NewService(gw store.Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if _, ok := gw.(store.Transactor); !ok {
		logger.Warn("store has no transactions: a failed save can leave a user's portfolio and market empty")
	}
	return &Service{
		store: gw,
		log:   logger,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Onboard creates and persists the starting profile.
func (s *Service) Onboard(ctx context.Context, in OnboardingInput) (Profile, error) {
	profile, err := NewProfile(in, s.newID)
	if err != nil {
		return Profile{}, err
	}
	row, err := profileRow(profile)
	if err != nil {
		return Profile{}, err
	}
	if err := s.store.Insert(ctx, store.TableProfiles, row); err != nil {
		return Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	s.log.Info("user onboarded", "user_id", profile.UserID, "life_stage", profile.LifeStage, "income", profile.Income)
	return profile, nil
}

func (s *Service) User(ctx context.Context, userID string) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, ErrNotFound
	}
	rows, err := s.store.Select(ctx, store.TableProfiles, store.Filter{"user_id": userID})
	if err != nil {
		return Profile{}, fmt.Errorf("select profile: %w", err)
	}
	if len(rows) == 0 {
		return Profile{}, ErrNotFound
	}
	return profileFromRow(rows[0])
}

// Save replaces everything stored for the state's user. With a transactional
// store the replace is atomic; otherwise each step is its own remote call and
// a failure part way leaves the deleted rows gone.
func (s *Service) Save(ctx context.Context, state GameState) (string, error) {
	userID := strings.TrimSpace(state.Profile.UserID)
	if userID == "" {
		return "", &ValidationError{Fields: []string{"profile.user_id"}}
	}
	state.Profile.UserID = userID

	var err error
	if tx, ok := s.store.(store.Transactor); ok {
		err = tx.InTx(ctx, func(gw store.Gateway) error {
			return s.replaceState(ctx, gw, state)
		})
	} else {
		err = s.replaceState(ctx, s.store, state)
	}
	if err != nil {
		return "", err
	}
	s.log.Info("state saved", "user_id", userID, "portfolio", state.Portfolio != nil, "market", state.Market != nil)
	return userID, nil
}

func (s *Service) replaceState(ctx context.Context, gw store.Gateway, state GameState) error {
	userID := state.Profile.UserID
	byUser := store.Filter{"user_id": userID}
	now := s.now().UTC()

	profile, err := profileRow(state.Profile)
	if err != nil {
		return err
	}
	if err := gw.DeleteWhere(ctx, store.TableProfiles, byUser); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	if err := gw.Insert(ctx, store.TableProfiles, profile); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	if p := state.Portfolio; p != nil {
		portfolio, err := portfolioRow(userID, *p)
		if err != nil {
			return err
		}
		for _, table := range []string{store.TablePortfolios, store.TablePositions, store.TableTransactions} {
			if err := gw.DeleteWhere(ctx, table, byUser); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if err := gw.Insert(ctx, store.TablePortfolios, portfolio); err != nil {
			return fmt.Errorf("insert portfolio: %w", err)
		}
		if len(p.Positions) > 0 {
			if err := gw.Insert(ctx, store.TablePositions, positionRows(userID, p.Positions, now)...); err != nil {
				return fmt.Errorf("insert positions: %w", err)
			}
		}
		if len(p.Transactions) > 0 {
			if err := gw.Insert(ctx, store.TableTransactions, transactionRows(userID, p.Transactions, now)...); err != nil {
				return fmt.Errorf("insert transactions: %w", err)
			}
		}
	}

	if state.Market != nil {
		if err := gw.DeleteWhere(ctx, store.TableMarkets, byUser); err != nil {
			return fmt.Errorf("clear market: %w", err)
		}
		if len(state.Market) > 0 {
			if err := gw.Insert(ctx, store.TableMarkets, marketRows(userID, state.Market, now)...); err != nil {
				return fmt.Errorf("insert market: %w", err)
			}
		}
	}
	return nil
}

// Load reassembles the full state for a user. Portfolio and Market stay nil
// when nothing is stored for them.
func (s *Service) Load(ctx context.Context, userID string) (GameState, error) {
	var out GameState
	profile, err := s.User(ctx, userID)
	if err != nil {
		return out, err
	}
	out.Profile = profile
	byUser := store.Filter{"user_id": profile.UserID}

	portfolios, err := s.store.Select(ctx, store.TablePortfolios, byUser)
	if err != nil {
		return out, fmt.Errorf("select portfolio: %w", err)
	}
	positions, err := s.store.Select(ctx, store.TablePositions, byUser, store.Order{Column: "created_at"})
	if err != nil {
		return out, fmt.Errorf("select positions: %w", err)
	}
	txs, err := s.store.Select(ctx, store.TableTransactions, byUser, store.Order{Column: "created_at", Desc: true})
	if err != nil {
		return out, fmt.Errorf("select transactions: %w", err)
	}
	market, err := s.store.Select(ctx, store.TableMarkets, byUser, store.Order{Column: "created_at"})
	if err != nil {
		return out, fmt.Errorf("select market: %w", err)
	}

	if len(portfolios) > 0 {
		p, err := portfolioFromRow(portfolios[0])
		if err != nil {
			return out, err
		}
		for _, row := range positions {
			pos, err := positionFromRow(row)
			if err != nil {
				return out, err
			}
			p.Positions = append(p.Positions, pos)
		}
		for _, row := range txs {
			t, err := transactionFromRow(row)
			if err != nil {
				return out, err
			}
			p.Transactions = append(p.Transactions, t)
		}
		out.Portfolio = &p
	}

	if len(market) > 0 {
		out.Market = make([]MarketAsset, 0, len(market))
		for _, row := range market {
			a, err := marketAssetFromRow(row)
			if err != nil {
				return out, err
			}
			out.Market = append(out.Market, a)
		}
	}
	return out, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	cl "finplay/internal/cli"
	"finplay/internal/config"
	"finplay/internal/game"
	"finplay/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "finplay",
		Short:        "FinPlay game client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "FinPlay API base URL")

	root.AddCommand(
		newOnboardCmd(&apiBase),
		newWhoamiCmd(&apiBase),
		newLoadCmd(&apiBase),
		newSaveCmd(&apiBase),
		newSyncCmd(&apiBase),
		newLogoutCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newOnboardCmd(apiBase *string) *cobra.Command {
	var in game.OnboardingInput
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Create a FinPlay player",
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := completeOnboarding(in)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			res, err := newClient(apiBase).Onboard(ctx, answers)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{UserID: res.ID, Name: res.Name}); err != nil {
				return err
			}
			fmt.Println(renderProfileCard(res.Profile.Summary()))
			printSuccess("Onboarding complete. Session saved.")
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.KnowledgeLevel, "knowledge", "", "knowledge level ("+strings.Join(knowledgeLevels, ", ")+")")
	cmd.Flags().StringVar(&in.LifeStage, "life-stage", "", "life stage ("+strings.Join(lifeStages, ", ")+")")
	cmd.Flags().StringVar(&in.PrimaryGoal, "goal", "", "primary goal")
	return cmd
}

func newWhoamiCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami [user-id]",
		Aliases: []string{"user"},
		Short:   "Show a player's profile",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userIDFromArgsOrSession(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			u, err := newClient(apiBase).User(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Println(renderProfileCard(u))
			return nil
		},
	}
}

func newLoadCmd(apiBase *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "load [user-id]",
		Short: "Fetch the saved game state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userIDFromArgsOrSession(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			state, err := newClient(apiBase).Load(ctx, userID)
			if err != nil {
				return err
			}
			if out == "" {
				renderState(state)
				return nil
			}
			raw, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, raw, 0o600); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("State written to %s", out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the state JSON to this file")
	return cmd
}

func newSaveCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "save <state.json>",
		Short: "Upload a game state; queued for `finplay sync` when the API is unreachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var state game.GameState
			if err := json.Unmarshal(raw, &state); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if strings.TrimSpace(state.Profile.UserID) == "" {
				sess, err := cl.LoadSession()
				if err != nil {
					return errors.New("profile.user_id is empty and no session found; run `finplay onboard`")
				}
				state.Profile.UserID = sess.UserID
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			res, err := newClient(apiBase).Save(ctx, state)
			if err == nil {
				printSuccess(fmt.Sprintf("Saved state for %s.", res.UserID))
				return nil
			}
			return queueOnNetworkError(err, state)
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued saves",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := openQueue()
			if err != nil {
				return err
			}
			queue, err := q.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining, errs := syncq.Replay(ctx, queue, func(ctx context.Context, c syncq.Command) error {
				_, err := client.Do(ctx, c.Method, c.Path, c.Body)
				return err
			})
			for i, err := range errs {
				printError(fmt.Sprintf("Sync failed for %s %s (queued %s): %v",
					remaining[i].Method, remaining[i].Path, remaining[i].QueuedAt.Format(time.RFC3339), err))
			}
			if err := q.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", len(queue)-len(remaining), len(remaining)))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func queueOnNetworkError(err error, state game.GameState) error {
	if !cl.IsNetworkError(err) {
		return err
	}
	body, mErr := json.Marshal(state)
	if mErr != nil {
		return mErr
	}
	q, qErr := openQueue()
	if qErr != nil {
		return fmt.Errorf("request failed (%v) and queueing failed: %w", err, qErr)
	}
	if qErr := q.Push(syncq.Command{
		ID:       uuid.NewString(),
		Method:   "POST",
		Path:     "/sync/save",
		Body:     body,
		QueuedAt: time.Now().UTC(),
	}); qErr != nil {
		return fmt.Errorf("request failed (%v) and queueing failed: %w", err, qErr)
	}
	printWarn(fmt.Sprintf("API unreachable (%v). Save queued; run `finplay sync` later.", err))
	return nil
}

func userIDFromArgsOrSession(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	sess, err := cl.LoadSession()
	if err != nil {
		return "", err
	}
	return sess.UserID, nil
}

func openQueue() (*syncq.Queue, error) {
	dir, err := cl.BaseDir()
	if err != nil {
		return nil, err
	}
	return syncq.Open(dir), nil
}

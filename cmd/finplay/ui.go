package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"finplay/internal/game"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("36")).
			Padding(0, 2)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

var (
	knowledgeLevels = []string{"Beginner", "Some Knowledge", "Intermediate"}
	lifeStages      = []string{"Student", "Just Started Working", "Young Professional", "Independent Adult"}
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

// completeOnboarding fills blank answers, with the form on a terminal and
// line prompts otherwise.
func completeOnboarding(in game.OnboardingInput) (game.OnboardingInput, error) {
	if in.Name != "" && in.KnowledgeLevel != "" && in.LifeStage != "" && in.PrimaryGoal != "" {
		return in, nil
	}
	if interactive() {
		return runOnboardingForm(in)
	}
	var err error
	fields := []struct {
		label string
		dst   *string
	}{
		{"Name", &in.Name},
		{"Knowledge level (" + strings.Join(knowledgeLevels, "/") + ")", &in.KnowledgeLevel},
		{"Life stage (" + strings.Join(lifeStages, "/") + ")", &in.LifeStage},
		{"Primary goal", &in.PrimaryGoal},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.dst) != "" {
			continue
		}
		if *f.dst, err = promptRequired(f.label); err != nil {
			return in, err
		}
	}
	return in, nil
}

type onboardingForm struct {
	inputs    []textinput.Model
	focus     int
	done      bool
	cancelled bool
	warning   string
}

func newOnboardingForm(in game.OnboardingInput) onboardingForm {
	specs := []struct {
		prompt, placeholder, value string
		suggestions                []string
	}{
		{"Name         ", "Asha", in.Name, nil},
		{"Knowledge    ", "Beginner", in.KnowledgeLevel, knowledgeLevels},
		{"Life stage   ", "Student", in.LifeStage, lifeStages},
		{"Primary goal ", "Save for a trip", in.PrimaryGoal, nil},
	}
	f := onboardingForm{inputs: make([]textinput.Model, len(specs))}
	for i, s := range specs {
		ti := textinput.New()
		ti.Prompt = s.prompt
		ti.Placeholder = s.placeholder
		ti.CharLimit = 80
		ti.SetValue(s.value)
		if len(s.suggestions) > 0 {
			ti.ShowSuggestions = true
			ti.SetSuggestions(s.suggestions)
		}
		f.inputs[i] = ti
	}
	f.inputs[0].Focus()
	return f
}

func (f onboardingForm) Init() tea.Cmd {
	return textinput.Blink
}

func (f onboardingForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			f.cancelled = true
			return f, tea.Quit
		case "up", "shift+tab":
			return f.move(-1), nil
		case "down", "enter":
			if strings.TrimSpace(f.inputs[f.focus].Value()) == "" {
				f.warning = "this field is required"
				return f, nil
			}
			f.warning = ""
			if key.String() == "enter" && f.focus == len(f.inputs)-1 {
				f.done = true
				return f, tea.Quit
			}
			return f.move(1), nil
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f onboardingForm) move(delta int) onboardingForm {
	next := f.focus + delta
	if next < 0 || next >= len(f.inputs) {
		return f
	}
	f.inputs[f.focus].Blur()
	f.focus = next
	f.inputs[f.focus].Focus()
	return f
}

func (f onboardingForm) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome to FinPlay") + "\n\n")
	for _, in := range f.inputs {
		b.WriteString(in.View() + "\n")
	}
	if f.warning != "" {
		b.WriteString("\n" + warn.Sprint(f.warning) + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("enter: next/submit  up: back  tab: accept suggestion  esc: cancel") + "\n")
	return b.String()
}

func (f onboardingForm) input() game.OnboardingInput {
	return game.OnboardingInput{
		Name:           strings.TrimSpace(f.inputs[0].Value()),
		KnowledgeLevel: strings.TrimSpace(f.inputs[1].Value()),
		LifeStage:      strings.TrimSpace(f.inputs[2].Value()),
		PrimaryGoal:    strings.TrimSpace(f.inputs[3].Value()),
	}
}

func runOnboardingForm(in game.OnboardingInput) (game.OnboardingInput, error) {
	final, err := tea.NewProgram(newOnboardingForm(in)).Run()
	if err != nil {
		return in, err
	}
	f := final.(onboardingForm)
	if f.cancelled || !f.done {
		return in, fmt.Errorf("onboarding cancelled")
	}
	return f.input(), nil
}

func renderProfileCard(u game.UserResponse) string {
	rows := []struct{ label, value string }{
		{"Player", u.Name},
		{"Id", u.ID},
		{"Life stage", u.LifeStage},
		{"Knowledge", u.KnowledgeLevel},
		{"Focus goal", u.FocusGoal},
		{"Monthly income", formatRupees(float64(u.Income))},
		{"Balance", formatRupees(float64(u.Balance))},
		{"Level / XP", fmt.Sprintf("%d / %d", u.Level, u.XP)},
	}
	lines := []string{titleStyle.Render("FinPlay profile")}
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r.label)+r.value)
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func renderState(state game.GameState) {
	fmt.Println(renderProfileCard(state.Profile.Summary()))

	b := state.Profile.Budget
	fmt.Println()
	accent.Printf("Budget (month %d)\n", b.Month)
	if !b.Allocated {
		printInfo("Not allocated yet.")
	} else {
		fmt.Printf("Needs:    %s left of %s\n", formatRupees(float64(b.NeedsRemaining)), formatRupees(float64(b.Needs)))
		fmt.Printf("Wants:    %s left of %s\n", formatRupees(float64(b.WantsRemaining)), formatRupees(float64(b.Wants)))
		fmt.Printf("Savings:  %s left of %s\n", formatRupees(float64(b.SavingsRemaining)), formatRupees(float64(b.Savings)))
		if paid := b.ExpensesPaid.Sorted(); len(paid) > 0 {
			fmt.Printf("Paid:     %s\n", strings.Join(paid, ", "))
		}
	}

	fmt.Println()
	accent.Println("Portfolio")
	p := state.Portfolio
	if p == nil {
		printInfo("No portfolio saved yet.")
		return
	}
	fmt.Printf("Cash: %s\n", formatRupees(p.Cash))
	if len(p.Positions) == 0 {
		printInfo("No open positions yet.")
	} else {
		fmt.Printf("%-10s %-8s %-22s %10s %12s %12s %14s\n", "ID", "TYPE", "NAME", "QTY", "AVG", "NOW", "P/L")
		for _, pos := range p.Positions {
			pl := (pos.CurrentPrice - pos.AvgPrice) * pos.Quantity
			fmt.Printf("%-10s %-8s %-22s %10s %12s %12s %14s\n",
				truncate(pos.ID, 10),
				truncate(pos.Type, 8),
				truncate(pos.Name, 22),
				strconv.FormatFloat(pos.Quantity, 'f', -1, 64),
				formatRupees(pos.AvgPrice),
				formatRupees(pos.CurrentPrice),
				colorizeRupees(pl),
			)
		}
	}
	if n := len(p.Transactions); n > 0 {
		fmt.Printf("%d transactions, latest %s %s\n", n, p.Transactions[0].Type, p.Transactions[0].AssetID)
	}
	if state.Market != nil {
		fmt.Printf("Market: %d assets\n", len(state.Market))
	}
}

func colorizeRupees(v float64) string {
	text := formatRupees(v)
	switch {
	case v > 0:
		return success.Sprint("+" + text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

// formatRupees rounds to whole rupees and groups digits the Indian way (1,00,000).
func formatRupees(v float64) string {
	n := int64(math.Round(v))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return sign + "₹" + indianGroup(n)
}

func indianGroup(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	head, tail := s[:len(s)-3], s[len(s)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if n <= 0 || len(r) <= n {
		return string(r)
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

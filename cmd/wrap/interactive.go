package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/wrap-client/config"
	"github.com/wippyai/wrap-client/resolver"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	uriStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newInteractiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Browse configured URIs and invoke them from a TUI",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("interactive mode needs a terminal")
			}
			if err := a.load(cmd); err != nil {
				return err
			}
			m := newInteractiveModel(cmd.Context(), a, a.v.GetString("config"))
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

type target struct {
	uri  string
	kind string
}

type modelState int

const (
	stateSelectTarget modelState = iota
	stateInputCall
	stateShowResult
)

const (
	fieldMethod = iota
	fieldArgs
	fieldEnv
)

type interactiveModel struct {
	err      error
	app      *app
	ctx      context.Context
	source   string
	result   string
	targets  []target
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(ctx context.Context, a *app, source string) *interactiveModel {
	if ctx == nil {
		ctx = context.Background()
	}
	if source == "" {
		source = "(empty config)"
	}
	return &interactiveModel{
		app:     a,
		ctx:     ctx,
		source:  source,
		targets: targets(a.cfg),
		state:   stateSelectTarget,
	}
}

// targets lists every URI the config binds directly, sorted.
func targets(cfg *config.Config) []target {
	seen := make(map[string]bool)
	var out []target
	for _, e := range cfg.Chain().Entries() {
		u, ok := resolver.Key(e.Like)
		if !ok || seen[u.String()] {
			continue
		}
		seen[u.String()] = true
		kind, _, _ := strings.Cut(resolver.Describe(e.Like), " "+u.String())
		out = append(out, target{uri: u.String(), kind: kind})
	}
	for _, u := range cfg.EnvURIs() {
		if !seen[u.String()] {
			seen[u.String()] = true
			out = append(out, target{uri: u.String(), kind: "env"})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].uri < out[j].uri })
	return out
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputCall {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectTarget && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectTarget && m.selected < len(m.targets)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectTarget:
				if len(m.targets) == 0 {
					return m, nil
				}
				m.prepareInputs()
				m.state = stateInputCall
				return m, nil

			case stateInputCall:
				return m, m.call

			case stateShowResult:
				m.state = stateInputCall
				m.result = ""
				m.err = nil
				return m, nil
			}

		case "tab":
			if m.state == stateInputCall {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateInputCall:
				m.state = stateSelectTarget
				m.inputs = nil
			case stateShowResult:
				m.state = stateInputCall
				m.result = ""
				m.err = nil
			}
			return m, nil
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputCall {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	prompts := []struct{ prompt, placeholder string }{
		fieldMethod: {"method: ", "name"},
		fieldArgs:   {"args:   ", `{"key": "value"}`},
		fieldEnv:    {"env:    ", "optional JSON object"},
	}
	m.inputs = make([]textinput.Model, len(prompts))
	for i, p := range prompts {
		ti := textinput.New()
		ti.Prompt = p.prompt
		ti.Placeholder = p.placeholder
		ti.Width = 50
		if i == fieldMethod {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = fieldMethod
}

func (m *interactiveModel) call() tea.Msg {
	method := strings.TrimSpace(m.inputs[fieldMethod].Value())
	if method == "" {
		return callResultMsg{err: fmt.Errorf("method is required")}
	}

	out, err := invoke(m.ctx, m.app.client,
		m.targets[m.selected].uri,
		method,
		strings.TrimSpace(m.inputs[fieldArgs].Value()),
		strings.TrimSpace(m.inputs[fieldEnv].Value()))
	if err != nil {
		return callResultMsg{err: err}
	}

	var b strings.Builder
	if err := printResult(&b, out, false); err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: strings.TrimSpace(b.String())}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wrap client"))
	b.WriteString(" ")
	b.WriteString(m.source)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectTarget:
		if len(m.targets) == 0 {
			b.WriteString("No URIs are bound in this config.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a URI:\n\n")
		for i, t := range m.targets {
			line := uriStyle.Render(t.uri) + " " + kindStyle.Render(t.kind)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + t.uri + " " + t.kind))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputCall:
		b.WriteString(fmt.Sprintf("Calling %s\n\n", uriStyle.Render(m.targets[m.selected].uri)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Result of %s#%s:\n\n",
			uriStyle.Render(m.targets[m.selected].uri),
			m.inputs[fieldMethod].Value()))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter edit call • esc back • q quit"))
	}

	return b.String()
}

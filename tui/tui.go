// Package tui is a terminal form for the disease classifier.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"hospitalpredict/dataset"
	"hospitalpredict/diagnosis"
)

type keyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Submit  key.Binding
	Predict key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Next:    key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next")),
	Prev:    key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev")),
	Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "next/predict")),
	Predict: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "predict")),
	Quit:    key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

// Model is the bubbletea model for the triage form.
type Model struct {
	model   *diagnosis.Model
	source  string
	bounds  []dataset.Bound
	inputs  []textinput.Model
	focus   int
	outcome *diagnosis.Outcome
	err     error
	width   int
}

// New builds a form over a fitted model. source is shown in the header.
func New(model *diagnosis.Model, source string) Model {
	bounds := dataset.Bounds()
	inputs := make([]textinput.Model, len(bounds))
	for i, b := range bounds {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.CharLimit = 8
		ti.Placeholder = formatValue(b.Default)
		ti.SetValue(formatValue(b.Default))
		inputs[i] = ti
	}
	inputs[0].Focus()

	return Model{
		model:  model,
		source: source,
		bounds: bounds,
		inputs: inputs,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Predict):
			m.predict()
			return m, nil
		case key.Matches(msg, keys.Submit):
			if m.focus == len(m.inputs)-1 {
				m.predict()
				return m, nil
			}
			return m, m.setFocus(m.focus + 1)
		case key.Matches(msg, keys.Next):
			return m, m.setFocus((m.focus + 1) % len(m.inputs))
		case key.Matches(msg, keys.Prev):
			return m, m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[m.focus].Focus()
}

// Vitals reads the inputs. An empty or unparsable field takes its default.
func (m Model) Vitals() dataset.Vitals {
	values := make([]float64, len(m.inputs))
	for i, ti := range m.inputs {
		v, err := strconv.ParseFloat(strings.TrimSpace(ti.Value()), 64)
		if err != nil {
			v = m.bounds[i].Default
		}
		values[i] = v
	}
	vitals, _ := dataset.VitalsFromValues(values)
	return vitals
}

// predict clamps the fields, writes the clamped values back and classifies.
func (m *Model) predict() {
	outcome, err := m.model.Predict(m.Vitals())
	if err != nil {
		m.err = err
		m.outcome = nil
		return
	}
	for i, v := range outcome.Vitals.Vector() {
		m.inputs[i].SetValue(formatValue(v))
	}
	m.err = nil
	m.outcome = &outcome
}

// Outcome returns the last prediction, or nil.
func (m Model) Outcome() *diagnosis.Outcome {
	return m.outcome
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🏥 Hospital Disease Prediction System 🩺"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s · %d rows", m.source, m.model.Rows)))
	b.WriteString("\n\n")
	b.WriteString(successStyle.Render("📈 " + m.model.AccuracyText()))
	b.WriteString("\n\n")

	for i, bound := range m.bounds {
		label := labelStyle.Render(bound.Label)
		if i == m.focus {
			label = focusedStyle.Render(bound.Label)
		}
		fmt.Fprintf(&b, "%s %s\n%s\n",
			label,
			mutedStyle.Render(fmt.Sprintf("(%s–%s)", formatValue(bound.Min), formatValue(bound.Max))),
			m.inputs[i].View())
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	case m.outcome != nil && m.outcome.Detected:
		b.WriteString("\n" + errorStyle.Render(m.outcome.Message) + "\n")
	case m.outcome != nil:
		b.WriteString("\n" + successStyle.Render(m.outcome.Message) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("tab next · enter predict on last field · ctrl+p predict · esc quit"))

	panel := panelStyle
	if m.width > 2 {
		panel = panel.MaxWidth(m.width)
	}
	return panel.Render(b.String())
}

// Run starts the program on the alternate screen.
func Run(model *diagnosis.Model, source string) error {
	_, err := tea.NewProgram(New(model, source), tea.WithAltScreen()).Run()
	return err
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

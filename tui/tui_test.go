package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitalpredict/dataset"
	"hospitalpredict/diagnosis"
)

func fitted(t *testing.T) *diagnosis.Model {
	t.Helper()
	rows := make([]dataset.Patient, 0, 80)
	for i := 0; i < 80; i++ {
		p := dataset.Patient{
			Age:     float64(20 + (i*7)%60),
			Fever:   97 + float64(i%8),
			BP:      100 + float64((i*13)%90),
			Sugar:   80 + float64((i*37)%200),
			Disease: "No",
		}
		if p.Fever > 100 && p.Sugar > 180 {
			p.Disease = "Yes"
		}
		rows = append(rows, p)
	}
	model, err := diagnosis.Fit(dataset.NewTable(rows), diagnosis.DefaultOptions())
	require.NoError(t, err)
	return model
}

func press(m Model, k tea.KeyType) Model {
	next, _ := m.Update(tea.KeyMsg{Type: k})
	return next.(Model)
}

func TestNewStartsWithDefaults(t *testing.T) {
	m := New(fitted(t), "memory")
	assert.Equal(t, dataset.DefaultVitals(), m.Vitals())
	assert.Equal(t, 0, m.focus)
	assert.Nil(t, m.Outcome())
	assert.Contains(t, m.View(), "Accuracy: ")
	assert.Contains(t, m.View(), "Fever (°F)")
}

func TestFocusMovement(t *testing.T) {
	m := New(fitted(t), "memory")
	m = press(m, tea.KeyTab)
	assert.Equal(t, 1, m.focus)
	m = press(m, tea.KeyEnter)
	assert.Equal(t, 2, m.focus)
	m = press(m, tea.KeyShiftTab)
	assert.Equal(t, 1, m.focus)
	m = press(m, tea.KeyShiftTab)
	m = press(m, tea.KeyShiftTab)
	assert.Equal(t, 3, m.focus)
	assert.Nil(t, m.Outcome())
}

func TestEnterOnLastFieldPredicts(t *testing.T) {
	m := New(fitted(t), "memory")
	m.inputs[0].SetValue("50")
	m.inputs[1].SetValue("104")
	m.inputs[2].SetValue("150")
	m.inputs[3].SetValue("270")
	m.focus = 3

	m = press(m, tea.KeyEnter)
	require.NotNil(t, m.Outcome())
	assert.True(t, m.Outcome().Detected)
	assert.Contains(t, m.View(), diagnosis.MessageDetected)
}

func TestPredictClampsAndFallsBack(t *testing.T) {
	m := New(fitted(t), "memory")
	m.inputs[0].SetValue("900")
	m.inputs[1].SetValue("warm")
	m.inputs[3].SetValue("NaN")

	m = press(m, tea.KeyCtrlP)
	require.NotNil(t, m.Outcome())
	assert.Equal(t, 120.0, m.Outcome().Vitals.Age)
	assert.Equal(t, 98.0, m.Outcome().Vitals.Fever)
	assert.Equal(t, "120", m.inputs[0].Value())
	assert.Equal(t, "98", m.inputs[1].Value())
	assert.Equal(t, 110.0, m.Outcome().Vitals.Sugar)
	assert.Equal(t, "110", m.inputs[3].Value())
}

func TestDefaultsPredictHealthy(t *testing.T) {
	m := press(New(fitted(t), "memory"), tea.KeyCtrlP)
	require.NotNil(t, m.Outcome())
	assert.Equal(t, diagnosis.MessageHealthy, m.Outcome().Message)
}

func TestQuit(t *testing.T) {
	_, cmd := New(fitted(t), "memory").Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

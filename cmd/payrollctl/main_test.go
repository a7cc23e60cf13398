package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutordesk/internal/domain/payroll"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTaxAnnual(t *testing.T) {
	out, err := run(t, "tax", "annual", "300000")
	require.NoError(t, err)
	assert.Contains(t, out, "annual tax: 41797.00")
	assert.Contains(t, out, "monthly:    3483.08")

	_, err = run(t, "tax", "annual", "-5")
	assert.Error(t, err)
}

func TestTaxBrackets(t *testing.T) {
	out, err := run(t, "tax", "brackets")
	require.NoError(t, err)
	assert.Contains(t, out, "237100.00")
	assert.Contains(t, out, "and above")
	assert.Contains(t, out, "17235.00")
}

const scenarioYAML = `
userId: tutor-1
steps:
  - lesson: {date: "2025-03-05", student: Ada, hours: "20", rate: "500"}
  - lesson: {date: "2025-03-05", student: Ada, hours: "20", rate: "500"}
  - bonus: {period: "2025-03", description: Referral, amount: "250"}
  - status: {period: "2025-03", to: LOCKED}
  - status: {period: "2025-03", to: PAID}
  - lesson: {date: "2025-03-05", student: Ada, hours: "20", rate: "500"}
  - lesson: {date: "2025-04-02", student: Bo, hours: "10", rate: "300"}
`

func TestSimulateReplaysScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "year.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0o600))

	out, err := run(t, "simulate", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "2025-03")
	assert.Contains(t, lines[1], "PAID")
	assert.Contains(t, lines[1], "10000.00")
	assert.Contains(t, lines[2], "2025-04")
	assert.Contains(t, lines[2], "DRAFT")
	assert.Contains(t, lines[2], "3000.00")
}

func TestSimulateRejectsLinesOnPaidPeriod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paid.yaml")
	body := `
userId: tutor-1
steps:
  - lesson: {date: "2025-03-05", student: Ada, hours: "2", rate: "500"}
  - status: {period: "2025-03", to: PAID}
  - bonus: {period: "2025-03", description: Late, amount: "100"}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	_, err := run(t, "simulate", path)
	assert.ErrorContains(t, err, "step 3")
	assert.ErrorIs(t, err, payroll.ErrInvalidState)
}

func TestSimulateRejectsBadSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("userId: tutor-1\nsteps:\n  - {}\n"), 0o600))
	_, err := run(t, "simulate", path)
	assert.ErrorContains(t, err, "step 1")
}

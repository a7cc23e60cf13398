package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tutordesk/internal/domain/payroll"
)

// scenario is a tax year of activity for one tutor, replayed in order.
type scenario struct {
	UserID string `yaml:"userId"`
	Steps  []step `yaml:"steps"`
}

type step struct {
	Lesson    *lessonStep `yaml:"lesson"`
	Bonus     *lineStep   `yaml:"bonus"`
	Deduction *lineStep   `yaml:"deduction"`
	Status    *statusStep `yaml:"status"`
}

type lessonStep struct {
	Date     string `yaml:"date"`
	Student  string `yaml:"student"`
	Hours    string `yaml:"hours"`
	Rate     string `yaml:"rate"`
	BaseRate string `yaml:"baseRate"`
}

type lineStep struct {
	Period      string `yaml:"period"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
}

type statusStep struct {
	Period string `yaml:"period"`
	To     string `yaml:"to"`
}

// inlineScheduler runs follow-up jobs immediately so the printed result is final.
type inlineScheduler struct{}

func (inlineScheduler) Enqueue(jobType, key string, run func(context.Context) (any, error)) {
	_, _ = run(context.Background())
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <file.yaml>",
		Short: "Replay lessons, lines and status changes in memory and print each payslip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var sc scenario
			if err := yaml.Unmarshal(data, &sc); err != nil {
				return fmt.Errorf("parse scenario: %w", err)
			}
			payslips, err := runScenario(cmd.Context(), table, sc)
			if err != nil {
				return err
			}
			return printPayslips(cmd, payslips)
		},
	}
}

func runScenario(ctx context.Context, table payroll.TaxTable, sc scenario) ([]payroll.Payslip, error) {
	if strings.TrimSpace(sc.UserID) == "" {
		return nil, fmt.Errorf("scenario userId is required")
	}
	store := payroll.NewMemoryStore()
	svc := payroll.NewService(store, payroll.NewReconciler(table, store), payroll.WithScheduler(inlineScheduler{}))
	touched := map[string]bool{}

	for i, st := range sc.Steps {
		period, err := applyStep(ctx, svc, store, sc.UserID, st)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		touched[period] = true
	}

	periods := make([]string, 0, len(touched))
	for p := range touched {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	out := make([]payroll.Payslip, 0, len(periods))
	for _, period := range periods {
		p, err := store.FindByUserPeriod(ctx, sc.UserID, period)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func applyStep(ctx context.Context, svc *payroll.Service, store payroll.StoreAPI, userID string, st step) (string, error) {
	switch {
	case st.Lesson != nil:
		ev, err := st.Lesson.event(userID)
		if err != nil {
			return "", err
		}
		p, _, err := svc.AddCompletedEvent(ctx, ev)
		return p.PayPeriod, err
	case st.Bonus != nil, st.Deduction != nil:
		line := st.Bonus
		add := svc.AddBonus
		if line == nil {
			line = st.Deduction
			add = svc.AddDeduction
		}
		amount, err := decimal.NewFromString(line.Amount)
		if err != nil {
			return "", fmt.Errorf("amount %q: %w", line.Amount, payroll.ErrInvalidInput)
		}
		p, err := payslipFor(ctx, svc, store, userID, line.Period)
		if err != nil {
			return "", err
		}
		_, err = add(ctx, p.ID, payroll.LineItem{Description: line.Description, Amount: amount})
		return p.PayPeriod, err
	case st.Status != nil:
		p, err := payslipFor(ctx, svc, store, userID, st.Status.Period)
		if err != nil {
			return "", err
		}
		_, err = svc.UpdateStatus(ctx, p.ID, st.Status.To, "payrollctl")
		return p.PayPeriod, err
	default:
		return "", fmt.Errorf("%w: empty step", payroll.ErrInvalidInput)
	}
}

// payslipFor returns the period's payslip in whatever status it is, creating a draft only
// when the period has none yet.
func payslipFor(ctx context.Context, svc *payroll.Service, store payroll.StoreAPI, userID, period string) (payroll.Payslip, error) {
	p, err := store.FindByUserPeriod(ctx, userID, period)
	if errors.Is(err, payroll.ErrPayslipNotFound) {
		return svc.GetOrCreateDraft(ctx, userID, period, "")
	}
	return p, err
}

func (l lessonStep) event(userID string) (payroll.CompletedEvent, error) {
	date, err := payroll.ParseDate(l.Date)
	if err != nil {
		return payroll.CompletedEvent{}, err
	}
	amounts := map[string]decimal.Decimal{}
	for name, raw := range map[string]string{"hours": l.Hours, "rate": l.Rate, "baseRate": l.BaseRate} {
		if raw == "" {
			amounts[name] = decimal.Zero
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return payroll.CompletedEvent{}, fmt.Errorf("%s %q: %w", name, raw, payroll.ErrInvalidInput)
		}
		amounts[name] = v
	}
	student := l.Student
	if student == "" {
		student = "student"
	}
	return payroll.CompletedEvent{
		UserID:      userID,
		EventDate:   date,
		Description: "Lesson with " + student,
		Quantity:    amounts["hours"],
		Rate:        amounts["rate"],
		BaseRate:    amounts["baseRate"],
	}, nil
}

func printPayslips(cmd *cobra.Command, payslips []payroll.Payslip) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PERIOD\tSTATUS\tGROSS\tBONUS\tDEDUCT\tPAYE\tUIF\tNET\t")
	for _, p := range payslips {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.PayPeriod, p.Status,
			p.GrossEarnings.StringFixed(2), p.TotalBonuses.StringFixed(2), p.TotalDeductions.StringFixed(2),
			p.PAYE.StringFixed(2), p.UIF.StringFixed(2), p.NetPay.StringFixed(2))
	}
	return w.Flush()
}

// Package seed loads the demo dataset used in development and demos.
// Seeding is idempotent: if any users already exist it does nothing.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AdityaK05/AMLGuard/internal/alert"
	"github.com/AdityaK05/AMLGuard/internal/auth"
	"github.com/AdityaK05/AMLGuard/internal/cases"
	"github.com/AdityaK05/AMLGuard/internal/customer"
	"github.com/AdityaK05/AMLGuard/internal/idgen"
	"github.com/AdityaK05/AMLGuard/internal/logging"
	"github.com/AdityaK05/AMLGuard/internal/registry"
	"github.com/AdityaK05/AMLGuard/internal/transaction"
)

// Stores collects everything Run writes into.
type Stores struct {
	Users        auth.Store
	Customers    customer.Store
	Transactions transaction.Store
	Alerts       alert.Store
	Cases        cases.Store
	Models       registry.Store
}

// Run loads the demo dataset. Already-seeded stores are left untouched.
func Run(ctx context.Context, s Stores) error {
	n, err := s.Users.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed: count users: %w", err)
	}
	if n > 0 {
		logging.L(ctx).Debug("seed skipped, users already present", "count", n)
		return nil
	}

	if err := seedUsers(ctx, s.Users); err != nil {
		return err
	}
	custs, accts, err := seedCustomers(ctx, s.Customers)
	if err != nil {
		return err
	}
	if err := seedActivity(ctx, s, custs, accts); err != nil {
		return err
	}
	if err := seedModels(ctx, s.Models); err != nil {
		return err
	}

	logging.L(ctx).Info("demo dataset seeded")
	return nil
}

func seedUsers(ctx context.Context, store auth.Store) error {
	users := []struct {
		username, password, fullName, email, role string
		permissions                               []string
	}{
		{"admin", "admin123", "Sarah Chen", "admin@amlguard.com", auth.RoleAdmin,
			[]string{"read", "write", "admin"}},
		{"analyst1", "analyst123", "Michael Rodriguez", "analyst1@amlguard.com", auth.RoleAnalyst,
			[]string{"read", "write"}},
		{"reviewer", "reviewer123", "Lisa Wang", "reviewer@amlguard.com", auth.RoleReviewer,
			[]string{"read"}},
	}
	for _, u := range users {
		hash, err := auth.HashPassword(u.password)
		if err != nil {
			return fmt.Errorf("seed: hash password for %s: %w", u.username, err)
		}
		if err := store.Create(ctx, &auth.User{
			Username:     u.username,
			PasswordHash: hash,
			FullName:     u.fullName,
			Email:        u.email,
			Role:         u.role,
			Permissions:  u.permissions,
		}); err != nil {
			return fmt.Errorf("seed: create user %s: %w", u.username, err)
		}
	}
	return nil
}

func seedCustomers(ctx context.Context, store customer.Store) (map[string]*customer.Customer, map[string]*customer.Account, error) {
	defs := []struct {
		key, name, email, country, risk, kyc string
	}{
		{"johnson", "Marcus Johnson", "marcus.johnson@email.com", "US", customer.RiskHigh, customer.KYCApproved},
		{"wang", "Lisa Wang", "lisa.wang@email.com", "US", customer.RiskMedium, customer.KYCApproved},
		{"chen", "Robert Chen", "robert.chen@email.com", "US", customer.RiskLow, customer.KYCApproved},
		{"rodriguez", "Emma Rodriguez", "emma.rodriguez@email.com", "US", customer.RiskLow, customer.KYCApproved},
	}

	custs := make(map[string]*customer.Customer, len(defs))
	accts := make(map[string]*customer.Account, len(defs))
	for i, d := range defs {
		c := &customer.Customer{
			FullName:    d.name,
			Email:       d.email,
			Country:     d.country,
			RiskRating:  d.risk,
			KYCStatus:   d.kyc,
			OnboardedAt: time.Now().UTC().AddDate(0, -(i + 3), 0),
		}
		if err := store.CreateCustomer(ctx, c); err != nil {
			return nil, nil, fmt.Errorf("seed: create customer %s: %w", d.name, err)
		}
		custs[d.key] = c

		a := &customer.Account{
			CustomerID: c.ID,
			Number:     "****" + idgen.Hex(2),
			Type:       "checking",
			Currency:   "USD",
			Balance:    decimal.NewFromInt(int64(25000 + 15000*i)),
		}
		if err := store.CreateAccount(ctx, a); err != nil {
			return nil, nil, fmt.Errorf("seed: create account for %s: %w", d.name, err)
		}
		accts[d.key] = a
	}
	return custs, accts, nil
}

// seedActivity loads a recognizable set of transactions: one flagged
// structuring wire, one geographic review case, and routine cleared
// purchases, with matching alerts and an open investigation.
func seedActivity(ctx context.Context, s Stores, custs map[string]*customer.Customer, accts map[string]*customer.Account) error {
	now := time.Now().UTC()

	structuringWire := &transaction.Transaction{
		CustomerID:   custs["johnson"].ID,
		CustomerName: custs["johnson"].FullName,
		AccountID:    accts["johnson"].ID,
		Amount:       decimal.RequireFromString("9850.00"),
		Currency:     "USD",
		Type:         "Wire Transfer",
		Description:  "Outbound wire to beneficiary account",
		Country:      "US",
		RiskScore:    8.7,
		RulesHit:     []string{"structuring-under-ctr"},
		Status:       transaction.StatusFlagged,
		CreatedAt:    now.Add(-2 * time.Hour),
	}
	foreignATM := &transaction.Transaction{
		CustomerID:   custs["wang"].ID,
		CustomerName: custs["wang"].FullName,
		AccountID:    accts["wang"].ID,
		Amount:       decimal.RequireFromString("2450.00"),
		Currency:     "GBP",
		Type:         "ATM Withdrawal",
		Description:  "Cash withdrawal outside home country",
		Country:      "GB",
		RiskScore:    6.2,
		RulesHit:     []string{"geo-high-risk-customer-abroad"},
		Status:       transaction.StatusReview,
		CreatedAt:    now.Add(-5 * time.Hour),
	}
	routine := []*transaction.Transaction{
		{
			CustomerID:   custs["chen"].ID,
			CustomerName: custs["chen"].FullName,
			AccountID:    accts["chen"].ID,
			Amount:       decimal.RequireFromString("86.40"),
			Currency:     "USD",
			Type:         "Card Purchase",
			Description:  "Grocery purchase",
			Country:      "US",
			RiskScore:    0.8,
			Status:       transaction.StatusClear,
			CreatedAt:    now.Add(-3 * time.Hour),
		},
		{
			CustomerID:   custs["rodriguez"].ID,
			CustomerName: custs["rodriguez"].FullName,
			AccountID:    accts["rodriguez"].ID,
			Amount:       decimal.RequireFromString("312.99"),
			Currency:     "EUR",
			Type:         "Card Purchase",
			Description:  "Online retail order",
			Country:      "FR",
			RiskScore:    1.4,
			Status:       transaction.StatusClear,
			CreatedAt:    now.Add(-8 * time.Hour),
		},
		{
			CustomerID:   custs["chen"].ID,
			CustomerName: custs["chen"].FullName,
			AccountID:    accts["chen"].ID,
			Amount:       decimal.RequireFromString("1200.00"),
			Currency:     "USD",
			Type:         "Direct Deposit",
			Description:  "Payroll deposit",
			Country:      "US",
			RiskScore:    0.3,
			Status:       transaction.StatusClear,
			CreatedAt:    now.Add(-26 * time.Hour),
		},
	}

	all := append([]*transaction.Transaction{structuringWire, foreignATM}, routine...)
	for _, t := range all {
		assessed := t.CreatedAt.Add(2 * time.Second)
		t.AssessedAt = &assessed
		if err := s.Transactions.Create(ctx, t); err != nil {
			return fmt.Errorf("seed: create transaction: %w", err)
		}
	}

	structuringAlert := &alert.Alert{
		TransactionID: structuringWire.ID,
		CustomerID:    structuringWire.CustomerID,
		CustomerName:  structuringWire.CustomerName,
		Type:          alert.TypeStructuring,
		Severity:      alert.SeverityCritical,
		Title:         "Potential Structuring Pattern Detected",
		Description:   "Wire Transfer of 9850.00 USD matched: Amount Near CTR Threshold.",
		RiskScore:     8.7,
		CreatedAt:     structuringWire.CreatedAt.Add(2 * time.Second),
	}
	geoAlert := &alert.Alert{
		TransactionID: foreignATM.ID,
		CustomerID:    foreignATM.CustomerID,
		CustomerName:  foreignATM.CustomerName,
		Type:          alert.TypeGeographic,
		Severity:      alert.SeverityHigh,
		Title:         "High-Risk Geographic Activity",
		Description:   "ATM Withdrawal of 2450.00 GBP matched: High-Risk Customer Transacting Abroad.",
		RiskScore:     6.2,
		CreatedAt:     foreignATM.CreatedAt.Add(2 * time.Second),
	}
	for _, a := range []*alert.Alert{structuringAlert, geoAlert} {
		if err := s.Alerts.Create(ctx, a); err != nil {
			return fmt.Errorf("seed: create alert: %w", err)
		}
	}

	investigation := &cases.Case{
		Title:       "Structuring investigation: Marcus Johnson",
		Description: "Repeated wires just under the CTR threshold. Review 90-day wire history and file SAR if pattern confirmed.",
		Priority:    cases.PriorityUrgent,
		AlertID:     structuringAlert.ID,
		CustomerID:  structuringWire.CustomerID,
		AssignedTo:  "Michael Rodriguez",
	}
	if err := s.Cases.Create(ctx, investigation); err != nil {
		return fmt.Errorf("seed: create case: %w", err)
	}
	return nil
}

func seedModels(ctx context.Context, store registry.Store) error {
	models := []*registry.Model{
		{
			Name:      "XGBoost Risk Classifier",
			Version:   "1.0.0",
			Type:      registry.TypeGradientBoosting,
			Status:    registry.StatusDeployed,
			Accuracy:  0.942,
			Precision: 0.897,
			Recall:    0.863,
			F1Score:   0.880,
		},
		{
			Name:      "Isolation Forest Anomaly Detector",
			Version:   "1.0.0",
			Type:      registry.TypeIsolationForest,
			Status:    registry.StatusDeployed,
			Accuracy:  0.889,
			Precision: 0.823,
			Recall:    0.791,
			F1Score:   0.807,
		},
	}
	for _, m := range models {
		if err := store.Create(ctx, m); err != nil {
			return fmt.Errorf("seed: create model %s: %w", m.Name, err)
		}
	}
	return nil
}

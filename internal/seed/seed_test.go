package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdityaK05/AMLGuard/internal/alert"
	"github.com/AdityaK05/AMLGuard/internal/auth"
	"github.com/AdityaK05/AMLGuard/internal/cases"
	"github.com/AdityaK05/AMLGuard/internal/customer"
	"github.com/AdityaK05/AMLGuard/internal/registry"
	"github.com/AdityaK05/AMLGuard/internal/transaction"
)

func memoryStores() Stores {
	return Stores{
		Users:        auth.NewMemoryStore(),
		Customers:    customer.NewMemoryStore(),
		Transactions: transaction.NewMemoryStore(),
		Alerts:       alert.NewMemoryStore(),
		Cases:        cases.NewMemoryStore(),
		Models:       registry.NewMemoryStore(),
	}
}

func TestRunSeedsEverything(t *testing.T) {
	s := memoryStores()
	ctx := context.Background()
	require.NoError(t, Run(ctx, s))

	users, err := s.Users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, users)

	customers, err := s.Customers.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, customers)

	txns, err := s.Transactions.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, txns)

	alerts, err := s.Alerts.Recent(ctx, alert.RecentOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	urgent, err := s.Cases.CountOpenUrgent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, urgent)

	models, err := s.Models.Deployed(ctx)
	require.NoError(t, err)
	assert.Len(t, models, 2)
}

func TestRunIsIdempotent(t *testing.T) {
	s := memoryStores()
	ctx := context.Background()
	require.NoError(t, Run(ctx, s))
	require.NoError(t, Run(ctx, s))

	users, err := s.Users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, users, "second run must not duplicate data")

	txns, err := s.Transactions.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, txns)
}

func TestSeededAdminCanLogIn(t *testing.T) {
	s := memoryStores()
	ctx := context.Background()
	require.NoError(t, Run(ctx, s))

	svc := auth.NewService(s.Users, "test-secret", 24*time.Hour)
	token, user, err := svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "Sarah Chen", user.FullName)
	assert.Equal(t, auth.RoleAdmin, user.Role)
}

func TestSeededDatasetValues(t *testing.T) {
	s := memoryStores()
	ctx := context.Background()
	require.NoError(t, Run(ctx, s))

	svc := auth.NewService(s.Users, "test-secret", 24*time.Hour)
	_, analyst, err := svc.Login(ctx, "analyst1", "analyst123")
	require.NoError(t, err)
	assert.Equal(t, "Michael Rodriguez", analyst.FullName)
	_, reviewer, err := svc.Login(ctx, "reviewer", "reviewer123")
	require.NoError(t, err)
	assert.Equal(t, "Lisa Wang", reviewer.FullName)

	custs, err := s.Customers.ListCustomers(ctx, 10, 0)
	require.NoError(t, err)
	names := make([]string, 0, len(custs))
	for _, c := range custs {
		names = append(names, c.FullName)
	}
	assert.ElementsMatch(t, []string{"Marcus Johnson", "Lisa Wang", "Robert Chen", "Emma Rodriguez"}, names)

	models, err := s.Models.Deployed(ctx)
	require.NoError(t, err)
	byName := make(map[string]string, len(models))
	for _, m := range models {
		byName[m.Name] = m.Version
	}
	assert.Equal(t, "1.0.0", byName["XGBoost Risk Classifier"])
	assert.Equal(t, "1.0.0", byName["Isolation Forest Anomaly Detector"])
}

func TestSeededFlaggedWirePresent(t *testing.T) {
	s := memoryStores()
	ctx := context.Background()
	require.NoError(t, Run(ctx, s))

	recent, err := s.Transactions.Recent(ctx, transaction.RecentOptions{Limit: 10, RiskLevel: transaction.LevelHigh})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "9850.00", recent[0].Amount.StringFixed(2))
	assert.Equal(t, transaction.StatusFlagged, recent[0].Status)
	assert.Contains(t, recent[0].RulesHit, "structuring-under-ctr")
}

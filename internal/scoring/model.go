package scoring

import (
	"math"
	"sync"
	"time"
)

// windowEntry records a single transaction for sliding-window analysis.
type windowEntry struct {
	Amount    float64
	Country   string
	Currency  string
	Timestamp time.Time
}

const (
	maxWindowSize  = 1000
	windowDuration = 24 * time.Hour

	weightAmount      = 0.30
	weightVelocity    = 0.20
	weightGeographic  = 0.20
	weightStructuring = 0.20
	weightTimeOfDay   = 0.10

	// minHistory is how many observations a customer profile needs
	// before deviation-based factors are trusted.
	minHistory = 5
)

// structuringThresholds are the reporting and internal-review amounts
// launderers shave under. Proximity just below any of them is a signal.
var structuringThresholds = []float64{3000, 5000, 9000, 10000, 15000}

// countryRisk maps ISO country codes to a base geographic risk weight.
// Sanctioned jurisdictions score 1.0, FATF-monitored 0.7, everything
// else gets a small residual.
var countryRisk = map[string]float64{
	"IR": 1.0, "KP": 1.0, "SY": 1.0, "CU": 1.0,
	"AF": 0.7, "MM": 0.7, "YE": 0.7, "VE": 0.7, "PA": 0.7,
	"AE": 0.4, "TR": 0.4, "NG": 0.4,
}

// currencyRisk weights currencies by typical laundering exposure.
var currencyRisk = map[string]float64{
	"USD": 0.0, "EUR": 0.0, "GBP": 0.0, "CAD": 0.0, "JPY": 0.0,
	"CHF": 0.1, "HKD": 0.2, "AED": 0.3, "RUB": 0.5,
}

// Model scores transactions using in-memory sliding windows per customer.
type Model struct {
	windows sync.Map // map[string]*customerWindow
}

// customerWindow holds one customer's recent activity plus a running
// amount profile (Welford's algorithm) built over their full history.
type customerWindow struct {
	mu      sync.Mutex
	entries []windowEntry

	count int
	mean  float64
	m2    float64
}

func NewModel() *Model {
	return &Model{}
}

// Score evaluates a transaction against the customer's behavioural
// profile. It does not record the transaction; call Observe after the
// transaction is accepted so rejected input cannot poison the profile.
func (m *Model) Score(tx *TransactionContext) *Assessment {
	w := m.getWindow(tx.CustomerID)
	w.mu.Lock()
	entries := snapshotEntries(w.entries, tx.Timestamp)
	count, mean, std := w.profile()
	w.mu.Unlock()

	factors := map[string]float64{
		"amount_deviation": amountDeviationFactor(tx.Amount, count, mean, std),
		"velocity":         velocityFactor(entries, tx.Timestamp),
		"geographic":       geographicFactor(tx.Country, tx.Currency),
		"structuring":      structuringFactor(tx.Amount),
		"time_of_day":      timeOfDayFactor(entries, tx.Timestamp),
	}

	raw := factors["amount_deviation"]*weightAmount +
		factors["velocity"]*weightVelocity +
		factors["geographic"]*weightGeographic +
		factors["structuring"]*weightStructuring +
		factors["time_of_day"]*weightTimeOfDay

	if raw > 1.0 {
		raw = 1.0
	}
	if raw < 0.0 {
		raw = 0.0
	}

	// Confidence grows with history; a cold-start profile is a guess.
	confidence := 0.3 + float64(count)/50.0
	if confidence > 1.0 {
		confidence = 1.0
	}

	return &Assessment{
		Score:      math.Round(raw*10*1000) / 1000,
		Factors:    factors,
		Confidence: math.Round(confidence*1000) / 1000,
	}
}

// Observe appends an accepted transaction to the customer's window and
// updates the running amount profile.
func (m *Model) Observe(tx *TransactionContext) {
	w := m.getWindow(tx.CustomerID)
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, windowEntry{
		Amount:    tx.Amount,
		Country:   tx.Country,
		Currency:  tx.Currency,
		Timestamp: tx.Timestamp,
	})
	pruneWindow(w, tx.Timestamp)

	// Welford update
	w.count++
	delta := tx.Amount - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (tx.Amount - w.mean)
}

// VelocityFor reports the customer's window counts at the given time.
func (m *Model) VelocityFor(customerID string, now time.Time) Velocity {
	w := m.getWindow(customerID)
	w.mu.Lock()
	defer w.mu.Unlock()

	oneHourAgo := now.Add(-time.Hour)
	v := Velocity{}
	for _, e := range w.entries {
		if e.Timestamp.After(now.Add(-windowDuration)) {
			v.Count24h++
			if e.Timestamp.After(oneHourAgo) {
				v.Count1h++
			}
		}
	}
	return v
}

func (m *Model) getWindow(customerID string) *customerWindow {
	v, _ := m.windows.LoadOrStore(customerID, &customerWindow{})
	return v.(*customerWindow)
}

// profile returns the running count, mean, and standard deviation of
// observed amounts. Caller holds the lock.
func (w *customerWindow) profile() (int, float64, float64) {
	if w.count < 2 {
		return w.count, w.mean, 0
	}
	return w.count, w.mean, math.Sqrt(w.m2 / float64(w.count-1))
}

func snapshotEntries(entries []windowEntry, now time.Time) []windowEntry {
	cutoff := now.Add(-windowDuration)
	out := make([]windowEntry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

func pruneWindow(w *customerWindow, now time.Time) {
	cutoff := now.Add(-windowDuration)
	start := 0
	for start < len(w.entries) && w.entries[start].Timestamp.Before(cutoff) {
		start++
	}
	if start > 0 {
		w.entries = w.entries[start:]
	}
	if len(w.entries) > maxWindowSize {
		w.entries = w.entries[len(w.entries)-maxWindowSize:]
	}
}

// amountDeviationFactor: z-score of the amount against the customer's
// running profile. 2 sigma = 0.5, 4+ sigma = 1.0. With a cold-start
// profile large absolute amounts carry a modest baseline signal.
func amountDeviationFactor(amount float64, count int, mean, std float64) float64 {
	if count < minHistory {
		switch {
		case amount >= 10000:
			return 0.4
		case amount >= 5000:
			return 0.2
		default:
			return 0.0
		}
	}
	if std <= 0 {
		if amount == mean {
			return 0.0
		}
		return 0.8
	}
	z := math.Abs(amount-mean) / std
	if z <= 1.0 {
		return 0.0
	}
	score := (z - 1.0) / 3.0 // 4 sigma → 1.0
	if score > 1.0 {
		score = 1.0
	}
	return math.Round(score*1000) / 1000
}

// velocityFactor: transaction counts in the last hour vs the 24h
// baseline. 6+ in an hour saturates.
func velocityFactor(entries []windowEntry, now time.Time) float64 {
	oneHourAgo := now.Add(-time.Hour)
	lastHour := 0
	for _, e := range entries {
		if e.Timestamp.After(oneHourAgo) {
			lastHour++
		}
	}
	// +1 for the transaction being scored
	score := float64(lastHour+1) / 6.0
	if score <= 1.0/3.0 {
		return 0.0 // a couple per hour is normal
	}
	if score > 1.0 {
		score = 1.0
	}
	return math.Round(score*1000) / 1000
}

// geographicFactor combines jurisdiction and currency risk.
func geographicFactor(country, currency string) float64 {
	score := countryRisk[country]
	if c, ok := currencyRisk[currency]; ok {
		if c > score {
			score = c
		}
	} else if currency != "" {
		// unlisted currency: small residual
		if score < 0.3 {
			score = 0.3
		}
	}
	return score
}

// structuringFactor: proximity just under a reporting threshold. Within
// 15% below a threshold scores proportionally, peaking right under it.
func structuringFactor(amount float64) float64 {
	best := 0.0
	for _, threshold := range structuringThresholds {
		if amount >= threshold || amount < threshold*0.85 {
			continue
		}
		closeness := 1.0 - (threshold-amount)/(threshold*0.15)
		if closeness > best {
			best = closeness
		}
	}
	return math.Round(best*1000) / 1000
}

// timeOfDayFactor: how unusual the current hour is for this customer.
// Needs at least 10 observations; an hour covering <2% of history
// scores 0.8.
func timeOfDayFactor(entries []windowEntry, now time.Time) float64 {
	if len(entries) < 10 {
		// fall back to a crude overnight heuristic
		h := now.Hour()
		if h >= 1 && h < 5 {
			return 0.4
		}
		return 0.0
	}

	var histogram [24]int
	for _, e := range entries {
		histogram[e.Timestamp.Hour()]++
	}
	fraction := float64(histogram[now.Hour()]) / float64(len(entries))
	if fraction < 0.02 {
		return 0.8
	}
	return 0.0
}

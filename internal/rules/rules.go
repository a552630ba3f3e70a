// Package rules evaluates operator-authored detection rules against
// transactions. Rules live in YAML files on disk and are hot-reloaded
// when the directory changes.
package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Errors
var (
	ErrNoRules      = errors.New("rules: no rule files loaded")
	ErrUnknownField = errors.New("rules: unknown input field")
)

// Severities a rule may carry. Severity feeds alert typing, score feeds
// the blended risk score.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Logic modes for combining a rule's conditions.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Rule is a single detection rule as authored in YAML.
type Rule struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description,omitempty"`
	Severity    string      `yaml:"severity" json:"severity"`
	Score       float64     `yaml:"score" json:"score"`
	Enabled     bool        `yaml:"enabled" json:"enabled"`
	Logic       string      `yaml:"logic" json:"logic"`
	Conditions  []Condition `yaml:"conditions" json:"conditions"`
}

// Condition compares one input field against a value.
type Condition struct {
	Field    string `yaml:"field" json:"field"`
	Operator string `yaml:"operator" json:"operator"`
	Value    any    `yaml:"value" json:"value"`
}

// Hit records that a rule matched a transaction.
type Hit struct {
	RuleID   string  `json:"ruleId"`
	RuleName string  `json:"ruleName"`
	Severity string  `json:"severity"`
	Score    float64 `json:"score"`
}

// Input is the flattened view of a transaction that conditions evaluate
// against. Fields are addressed by dot path, e.g. "transaction.amount".
type Input struct {
	Amount       float64
	Currency     string
	Country      string
	Type         string
	Hour         int
	CustomerRisk string
	KYCStatus    string
	TxnCount24h  int
	TxnCount1h   int
}

// resolve maps a dot path to a concrete value from the input.
func (in *Input) resolve(field string) (any, error) {
	switch field {
	case "transaction.amount":
		return in.Amount, nil
	case "transaction.currency":
		return in.Currency, nil
	case "transaction.country":
		return in.Country, nil
	case "transaction.type":
		return in.Type, nil
	case "transaction.hour":
		return in.Hour, nil
	case "customer.risk_rating":
		return in.CustomerRisk, nil
	case "customer.kyc_status":
		return in.KYCStatus, nil
	case "velocity.count_24h":
		return in.TxnCount24h, nil
	case "velocity.count_1h":
		return in.TxnCount1h, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
}

// Validate checks a rule definition is complete enough to evaluate.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return errors.New("rules: rule id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("rules: rule %s: name is required", r.ID)
	}
	switch r.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	default:
		return fmt.Errorf("rules: rule %s: unknown severity %q", r.ID, r.Severity)
	}
	if r.Score < 0 || r.Score > 1 {
		return fmt.Errorf("rules: rule %s: score %v outside [0,1]", r.ID, r.Score)
	}
	switch strings.ToUpper(r.Logic) {
	case LogicAnd, LogicOr, "":
	default:
		return fmt.Errorf("rules: rule %s: unknown logic %q", r.ID, r.Logic)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("rules: rule %s: at least one condition required", r.ID)
	}
	for i, c := range r.Conditions {
		if c.Field == "" {
			return fmt.Errorf("rules: rule %s: condition[%d] missing field", r.ID, i)
		}
		if !knownField(c.Field) {
			return fmt.Errorf("rules: rule %s: condition[%d] unknown field %q", r.ID, i, c.Field)
		}
		if !validOperator(c.Operator) {
			return fmt.Errorf("rules: rule %s: condition[%d] unknown operator %q", r.ID, i, c.Operator)
		}
	}
	return nil
}

func knownField(field string) bool {
	var in Input
	_, err := in.resolve(field)
	return err == nil
}

func validOperator(op string) bool {
	switch op {
	case "eq", "neq", "gt", "gte", "lt", "lte", "in", "not_in", "contains", "near_threshold":
		return true
	}
	return false
}

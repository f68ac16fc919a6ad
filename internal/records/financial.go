package records

import (
	"context"
	"fmt"

	"sonoreport/internal/docstore"
	"sonoreport/internal/schema"
)

// TransactionFilter narrows financial listings.
type TransactionFilter struct {
	Type      string
	Category  string
	PatientID string
}

// Balance totals the financial collection.
type Balance struct {
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	Balance      float64 `json:"balance"`
}

// AddTransaction persists an income or expense entry.
func (s *Service) AddTransaction(ctx context.Context, transaction Document) (Document, error) {
	doc := docstore.Clone(transaction)
	doc["id"] = s.genID()
	if _, ok := doc["category"]; !ok {
		doc["category"] = "Geral"
	}
	if _, ok := doc["date"]; !ok {
		doc["date"] = s.now().UTC().Format(timeLayout)
	}
	if err := s.store.Insert(ctx, schema.Financial, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListTransactions returns transactions newest first.
func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Document, error) {
	sel := docstore.Selector{}
	if filter.Type != "" {
		sel["type"] = docstore.Condition{Op: docstore.MatchEq, Value: filter.Type}
	}
	if filter.Category != "" {
		sel["category"] = docstore.Condition{Op: docstore.MatchEq, Value: filter.Category}
	}
	if filter.PatientID != "" {
		sel["patient_id"] = docstore.Condition{Op: docstore.MatchEq, Value: filter.PatientID}
	}
	return s.store.Find(ctx, schema.Financial, sel, docstore.FindOptions{SortField: "date", Descending: true})
}

// UpdateTransaction patches a transaction.
func (s *Service) UpdateTransaction(ctx context.Context, id string, fields Document) (Document, error) {
	return s.store.Patch(ctx, schema.Financial, id, fields)
}

// DeleteTransaction removes a transaction.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	return s.store.Remove(ctx, schema.Financial, id)
}

// GetBalance totals income and expense over the whole collection.
func (s *Service) GetBalance(ctx context.Context) (Balance, error) {
	transactions, err := s.store.Find(ctx, schema.Financial, nil, docstore.FindOptions{})
	if err != nil {
		return Balance{}, err
	}
	var balance Balance
	for _, tr := range transactions {
		amount, err := numberField(tr, "amount")
		if err != nil {
			return Balance{}, fmt.Errorf("transaction %s: %w", docstore.ID(tr), err)
		}
		switch tr["type"] {
		case "income":
			balance.TotalIncome += amount
		case "expense":
			balance.TotalExpense += amount
		}
	}
	balance.Balance = balance.TotalIncome - balance.TotalExpense
	return balance, nil
}

func numberField(doc Document, key string) (float64, error) {
	switch v := doc[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("field %q is not a number (%T)", key, v)
	}
}

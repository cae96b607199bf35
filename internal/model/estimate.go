package model

import "github.com/shopspring/decimal"

// EstimateLineItem is a budgeted line of a project's cost estimate.
type EstimateLineItem struct {
	Quantity     decimal.Decimal `json:"quantity" yaml:"quantity"`
	MaterialCost decimal.Decimal `json:"material_cost" yaml:"material_cost"`
	LaborCost    decimal.Decimal `json:"labor_cost" yaml:"labor_cost"`
	TotalCost    decimal.Decimal `json:"total_cost" yaml:"total_cost"`
	ID           string          `json:"id" yaml:"id"`
	Description  string          `json:"description" yaml:"description"`
	TradeName    string          `json:"trade_name,omitempty" yaml:"trade_name,omitempty"`
	Unit         string          `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// EstimateIndex provides id lookups over an estimate set while keeping its order.
type EstimateIndex struct {
	byID  map[string]int
	items []EstimateLineItem
}

// NewEstimateIndex indexes the given estimate items by id.
func NewEstimateIndex(items []EstimateLineItem) *EstimateIndex {
	idx := &EstimateIndex{
		items: items,
		byID:  make(map[string]int, len(items)),
	}
	for i, item := range items {
		if _, exists := idx.byID[item.ID]; !exists {
			idx.byID[item.ID] = i
		}
	}
	return idx
}

// Has reports whether an estimate item with the id exists.
func (x *EstimateIndex) Has(id string) bool {
	_, ok := x.byID[id]
	return ok
}

// Get returns the estimate item with the given id.
func (x *EstimateIndex) Get(id string) (EstimateLineItem, bool) {
	i, ok := x.byID[id]
	if !ok {
		return EstimateLineItem{}, false
	}
	return x.items[i], true
}

// Items returns the indexed items in their original order.
func (x *EstimateIndex) Items() []EstimateLineItem {
	return x.items
}

package cart

import (
	cartdto "github.com/angelmondragon/velocity-backend/api/controllers/cart/dto"
	cartsvc "github.com/angelmondragon/velocity-backend/internal/cart"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func newLineItem(line cartsvc.LineItem) cartdto.LineItem {
	return cartdto.LineItem{
		ID:          line.ID,
		ProductID:   line.ProductID,
		Quantity:    line.Quantity,
		PriceAtTime: money(line.PriceAtTime),
		LineTotal:   money(line.LineTotal()),
		AddedAt:     line.AddedAt,
		UpdatedAt:   line.UpdatedAt,
	}
}

func newSummaryItems(items []cartsvc.SummaryItem) []cartdto.SummaryItem {
	out := make([]cartdto.SummaryItem, 0, len(items))
	for _, item := range items {
		view := cartdto.SummaryItem{
			LineItem:  newLineItem(item.LineItem),
			Available: item.Available,
		}
		view.LineTotal = money(item.LineTotal)
		if p := item.Product; p != nil {
			view.Product = &cartdto.Product{
				ID:            p.ID,
				Name:          p.Name,
				Slug:          p.Slug,
				Price:         money(p.Price),
				StockQuantity: p.StockQuantity,
				IsActive:      p.IsActive,
			}
		}
		out = append(out, view)
	}
	return out
}

func newSummary(summary *cartsvc.Summary) cartdto.Summary {
	if summary == nil {
		return cartdto.Summary{Items: []cartdto.SummaryItem{}}
	}
	return cartdto.Summary{
		OwnerType: summary.Owner.Kind().String(),
		Items:     newSummaryItems(summary.Items),
		ItemCount: summary.ItemCount,
		Subtotal:  money(summary.Subtotal),
		Tax:       money(summary.Tax),
		Shipping:  money(summary.Shipping),
		Total:     money(summary.Total),
	}
}

func newIssues(issues []cartsvc.Issue) []cartdto.Issue {
	out := make([]cartdto.Issue, 0, len(issues))
	for _, issue := range issues {
		view := cartdto.Issue{
			ProductID: issue.ProductID,
			Type:      issue.Type.String(),
			Message:   issue.Message,
			Requested: issue.Requested,
			Available: issue.Available,
		}
		if !issue.PriceAtTime.IsZero() {
			view.PriceAtTime = money(issue.PriceAtTime)
		}
		if !issue.CurrentPrice.IsZero() {
			view.CurrentPrice = money(issue.CurrentPrice)
		}
		out = append(out, view)
	}
	return out
}

func newValidation(v *cartsvc.Validation) cartdto.Validation {
	if v == nil {
		return cartdto.Validation{IsValid: true, Errors: []cartdto.Issue{}, Warnings: []cartdto.Issue{}, Items: []cartdto.SummaryItem{}}
	}
	return cartdto.Validation{
		IsValid:  v.IsValid,
		Errors:   newIssues(v.Errors),
		Warnings: newIssues(v.Warnings),
		Items:    newSummaryItems(v.Items),
	}
}

func newMerge(result *cartsvc.MergeResult) cartdto.Merge {
	return cartdto.Merge{
		Moved:      result.Moved,
		Combined:   result.Combined,
		Warnings:   newIssues(result.Warnings),
		Validation: newValidation(result.Validation),
		Summary:    newSummary(result.Summary),
	}
}

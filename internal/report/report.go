// Package report aggregates placed orders into sales summaries.
package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/example/bakery-pos/internal/money"
	"github.com/example/bakery-pos/internal/readmodel"
	"github.com/shopspring/decimal"
)

// TopProductsLimit is how many best sellers a daily report lists.
const TopProductsLimit = 5

const DateLayout = "2006-01-02"

type ProductSales struct {
	Name          string          `json:"name"`
	TotalQuantity int             `json:"total_quantity"`
	TotalSales    decimal.Decimal `json:"total_sales"`
}

type MethodSales struct {
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type Daily struct {
	Date            string                 `json:"date"`
	TotalOrders     int                    `json:"total_orders"`
	TotalRevenue    decimal.Decimal        `json:"total_revenue"`
	AveragePerOrder decimal.Decimal        `json:"average_per_order"`
	MostSold        []ProductSales         `json:"most_sold_products"`
	PaymentMethods  map[string]MethodSales `json:"payment_methods"`
}

// BuildDaily summarizes the orders created on day, in day's location.
// Orders from other days are skipped.
func BuildDaily(day time.Time, orders []*readmodel.OrderReadModel) Daily {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	r := Daily{
		Date:           start.Format(DateLayout),
		TotalRevenue:   decimal.Zero,
		PaymentMethods: make(map[string]MethodSales),
	}
	products := make(map[string]*ProductSales)

	for _, o := range orders {
		created := o.CreatedAt.In(start.Location())
		if created.Before(start) || !created.Before(end) {
			continue
		}

		r.TotalOrders++
		r.TotalRevenue = r.TotalRevenue.Add(o.Total)

		m := r.PaymentMethods[o.PaymentMethod]
		m.Count++
		m.TotalAmount = m.TotalAmount.Add(o.Total)
		r.PaymentMethods[o.PaymentMethod] = m

		for _, item := range o.Items {
			name := item.Name
			if name == "" {
				name = item.ProductID
			}
			p, ok := products[name]
			if !ok {
				p = &ProductSales{Name: name}
				products[name] = p
			}
			p.TotalQuantity += item.Quantity
			p.TotalSales = p.TotalSales.Add(item.Subtotal)
		}
	}

	r.AveragePerOrder = decimal.Zero
	if r.TotalOrders > 0 {
		r.AveragePerOrder = money.Round(r.TotalRevenue.Div(decimal.NewFromInt(int64(r.TotalOrders))))
	}

	r.MostSold = make([]ProductSales, 0, len(products))
	for _, p := range products {
		r.MostSold = append(r.MostSold, *p)
	}
	slices.SortFunc(r.MostSold, func(a, b ProductSales) int {
		if c := cmp.Compare(b.TotalQuantity, a.TotalQuantity); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(r.MostSold) > TopProductsLimit {
		r.MostSold = r.MostSold[:TopProductsLimit]
	}
	return r
}

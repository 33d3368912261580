package domain

type DiscountToken string

const (
	DiscountFreeShipping DiscountToken = "freeShipping"
	DiscountTenPercent   DiscountToken = "10PercentOff"
)

// DiscountSet is order-irrelevant; application order is fixed by pricing policy.
type DiscountSet []DiscountToken

func (s DiscountSet) Has(t DiscountToken) bool {
	for _, v := range s {
		if v == t {
			return true
		}
	}
	return false
}

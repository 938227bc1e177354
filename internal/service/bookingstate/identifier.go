package bookingstate

// DiscountIdentifier names exactly one verified discount: either a
// percentual discount id or a code. The zero value is invalid.
type DiscountIdentifier struct {
	percentualID *int64
	code         string
}

func PercentualDiscountID(id int64) DiscountIdentifier {
	return DiscountIdentifier{percentualID: &id}
}

func CodeDiscountID(code string) DiscountIdentifier {
	return DiscountIdentifier{code: code}
}

func (d DiscountIdentifier) Percentual() (int64, bool) {
	if d.percentualID == nil {
		return 0, false
	}
	return *d.percentualID, true
}

func (d DiscountIdentifier) Code() string {
	return d.code
}

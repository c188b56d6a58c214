package domain

type PaymentStatus string

const (
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

// CheckoutSession is the provider-owned payment record as seen by this service.
type CheckoutSession struct {
	ID            string        `json:"id"`
	URL           string        `json:"url"`
	PaymentStatus PaymentStatus `json:"payment_status,omitempty"`
}

func (s CheckoutSession) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// PriceSelection describes the single line item of a checkout session.
// PriceID wins over the inline Amount/Currency pair.
type PriceSelection struct {
	PriceID      string
	Amount       int64
	Currency     string
	ProductLabel string
}

func (p PriceSelection) UsesPriceID() bool {
	return p.PriceID != ""
}

type CheckoutRequest struct {
	Price      PriceSelection
	SuccessURL string
	CancelURL  string
}

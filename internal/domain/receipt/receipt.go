package receipt

// Data is what a payout receipt QR code encodes.
type Data struct {
	PayoutID      string `json:"payout_id"`
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	DestCurrency  string `json:"dest_currency"`

	// PayoutReference is the disbursement id once one exists.
	PayoutReference string `json:"payout_reference,omitempty"`
	Final           bool   `json:"final"`
}

type Generator interface {
	Generate(data Data) ([]byte, error)
}

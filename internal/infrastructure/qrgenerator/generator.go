package qrgenerator

import (
	"encoding/json"
	"errors"

	qr "github.com/skip2/go-qrcode"

	"github.com/Xausdorf/payout-hub/internal/domain/receipt"
)

var ErrEmptyReceipt = errors.New("receipt has no payout id")

// Generator renders payout receipts as PNG QR codes.
type Generator struct {
	size  int
	level qr.RecoveryLevel
}

func NewGenerator(size int) *Generator {
	return &Generator{size: size, level: qr.Medium}
}

// Generate encodes data as JSON. Final receipts use the High recovery level.
func (g *Generator) Generate(data receipt.Data) ([]byte, error) {
	if data.PayoutID == "" {
		return nil, ErrEmptyReceipt
	}
	content, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	level := g.level
	if data.Final {
		level = qr.High
	}
	code, err := qr.New(string(content), level)
	if err != nil {
		return nil, err
	}
	return code.PNG(g.size)
}

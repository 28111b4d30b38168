package entity

import "strings"

// WalletProfile links a user to their wallet provider account and carries the
// sender KYC details required by the disbursement provider.
type WalletProfile struct {
	UserID           string
	WalletHandle     string
	WalletCredential string
	SourceID         string

	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Address     string
	City        string
	State       string
	Zip         string
	Country     string
	DateOfBirth string
	IDType      string
	IDNumber    string
}

func (w *WalletProfile) FullName() string {
	return strings.TrimSpace(w.FirstName + " " + w.LastName)
}

func (w *WalletProfile) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{w.Address, w.City, w.State, w.Zip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

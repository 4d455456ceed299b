package model

import "time"

// Transaction is a borrow or return record kept per item.
type Transaction struct {
	ID               string     `json:"id"`
	Timestamp        time.Time  `json:"timestamp"`
	Type             string     `json:"type"`
	Quantity         int        `json:"quantity"`
	BorrowerName     string     `json:"borrowerName,omitempty"`
	BorrowerRegdNum  string     `json:"borrowerRegdNum,omitempty"`
	BorrowerPhone    string     `json:"borrowerPhone,omitempty"`
	ReturnDate       *time.Time `json:"returnDate,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	Reminder         bool       `json:"reminder"`
	AdminName        string     `json:"adminName"`
	Returned         bool       `json:"returned"`
	IsSettled        bool       `json:"isSettled"`
	QuantityReturned int        `json:"quantityReturned"`
	RelatedBorrowID  string     `json:"relatedBorrowId,omitempty"`
	ItemName         string     `json:"itemName,omitempty"`
}

// Transaction types.
const (
	TransactionBorrow = "borrow"
	TransactionReturn = "return"
)

// Borrow states.
const (
	BorrowOpen              = "open"
	BorrowPartiallyReturned = "partially returned"
	BorrowSettled           = "settled"
)

// Settled reports whether a borrow has been fully returned.
// Older records only carry the returned flag.
func (t *Transaction) Settled() bool {
	return t.IsSettled || t.Returned
}

// Outstanding returns the quantity of a borrow that has not come back yet.
func (t *Transaction) Outstanding() int {
	if t.Type != TransactionBorrow || t.Settled() {
		return 0
	}
	if due := t.Quantity - t.QuantityReturned; due > 0 {
		return due
	}
	return 0
}

// State returns the borrow lifecycle state. Return records have no state.
func (t *Transaction) State() string {
	if t.Type != TransactionBorrow {
		return ""
	}
	switch {
	case t.Settled():
		return BorrowSettled
	case t.QuantityReturned > 0:
		return BorrowPartiallyReturned
	default:
		return BorrowOpen
	}
}

// DueItem joins an open borrow with its item for due/overdue reporting.
// It is derived on every read and never stored.
type DueItem struct {
	TransactionID    string    `json:"transactionId"`
	ItemID           string    `json:"itemId"`
	ItemName         string    `json:"itemName"`
	ItemImageURL     string    `json:"itemImageUrl"`
	BorrowerName     string    `json:"borrowerName"`
	BorrowerRegdNum  string    `json:"borrowerRegdNum,omitempty"`
	BorrowerPhone    string    `json:"borrowerPhone,omitempty"`
	ReturnDate       time.Time `json:"returnDate"`
	DaysRemaining    int       `json:"daysRemaining"`
	QuantityBorrowed int       `json:"quantityBorrowed"`
	QuantityReturned int       `json:"quantityReturned"`
	QuantityDue      int       `json:"quantityDue"`
}

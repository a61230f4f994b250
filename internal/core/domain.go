package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income                 TransactionType = "Thu Nhập"
	Expense                TransactionType = "Chi Tiêu"
	TransferToInvestment   TransactionType = "Chuyển Tiền Vào Tài Khoản"
	WithdrawFromInvestment TransactionType = "Rút Tiền Ra Tài Khoản"
)

const (
	Buy  InvestmentType = "Buy"
	Sell InvestmentType = "Sell"
)

// DefaultCategory is used when a plain transaction is queued without one.
const DefaultCategory = "Khác"

type (
	TransactionType string
	InvestmentType  string

	// Date is a calendar day. The time-of-day and offset carried by the
	// embedded time.Time are not significant.
	Date struct {
		time.Time
	}

	// Transaction is one row of the main ledger. Amount is whole VND.
	Transaction struct {
		ID       int64
		Date     Date
		Type     TransactionType
		Category string
		Name     string
		Amount   int64
		Note     string
	}

	// InvestmentTransaction is one row of the investment sheet.
	// TotalAmount is derived from Quantity and PricePerUnit and must be
	// recomputed whenever either changes.
	InvestmentTransaction struct {
		ID           int64
		Date         Date
		AccountID    string
		AccountName  string
		Type         InvestmentType
		AssetName    string
		Quantity     decimal.Decimal
		PricePerUnit decimal.Decimal
		TotalAmount  decimal.Decimal
		Fees         decimal.Decimal
		RealizedPL   decimal.Decimal
		Notes        string
	}

	// InvestmentAccount is sourced from the remote sheet and cached locally.
	InvestmentAccount struct {
		ID   string
		Name string
		Type string
	}

	// Categories maps a transaction type label to its category labels.
	Categories map[TransactionType][]string
)

// NewDate builds a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate restores a Date from its RFC 3339 storage form. The calendar
// day is read in the serialized offset, so a round trip preserves the day
// regardless of the zone it was written in.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// String renders the storage form.
func (d Date) String() string {
	return d.Format(time.RFC3339)
}

// SameDay reports whether two dates fall on the same calendar day.
func (d Date) SameDay(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month() && d.Day() == o.Day()
}

// AfterDay reports whether d falls on a later calendar day than o.
func (d Date) AfterDay(o Date) bool {
	return d.Time.After(o.Time) && !d.SameDay(o)
}

// WithID returns a copy carrying the given queue identifier.
func (t Transaction) WithID(id int64) Transaction {
	t.ID = id
	return t
}

// QueueID implements queue.Item.
func (t Transaction) QueueID() int64 { return t.ID }

// WithID returns a copy carrying the given queue identifier.
func (t InvestmentTransaction) WithID(id int64) InvestmentTransaction {
	t.ID = id
	return t
}

// QueueID implements queue.Item.
func (t InvestmentTransaction) QueueID() int64 { return t.ID }

// Recalculate derives TotalAmount from Quantity and PricePerUnit.
func (t *InvestmentTransaction) Recalculate() {
	t.TotalAmount = t.Quantity.Mul(t.PricePerUnit)
}

// LedgerType maps Buy/Sell to the linked main-ledger transaction type.
func (t InvestmentTransaction) LedgerType() TransactionType {
	if t.Type == Sell {
		return WithdrawFromInvestment
	}
	return TransferToInvestment
}

// LedgerName is the display name of the linked main-ledger entry.
func (t InvestmentTransaction) LedgerName() string {
	if t.Type == Sell {
		return "Bán " + t.AssetName
	}
	return "Mua " + t.AssetName
}

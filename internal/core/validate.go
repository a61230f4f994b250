package core

import (
	"strings"
	"time"
)

// ValidationError carries the user-facing message shown inline in the form.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrMissingType      = &ValidationError{"Vui lòng chọn loại giao dịch"}
	ErrInvalidAmount    = &ValidationError{"Vui lòng nhập số tiền hợp lệ"}
	ErrFutureDate       = &ValidationError{"Ngày không thể trong tương lai"}
	ErrMissingAssetName = &ValidationError{"Vui lòng nhập tên tài sản"}
	ErrInvalidQuantity  = &ValidationError{"Vui lòng nhập số lượng hợp lệ"}
	ErrInvalidPrice     = &ValidationError{"Vui lòng nhập giá hợp lệ"}
	ErrMissingAccount   = &ValidationError{"Vui lòng chọn tài khoản đầu tư"}
	ErrInvalidFees      = &ValidationError{"Vui lòng nhập phí hợp lệ"}
)

// Validate applies the business rules checked before a plain transaction
// may be queued or submitted. Future dates are rejected here; the linked
// entries produced from investment transactions bypass this check.
func (t Transaction) Validate() error {
	if t.Type == "" {
		return ErrMissingType
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if t.Date.AfterDay(DateOf(time.Now())) {
		return ErrFutureDate
	}
	return nil
}

// Validate checks an investment transaction. Order matters: the first
// failing rule is the one reported, matching the form's inline display.
func (t InvestmentTransaction) Validate() error {
	if strings.TrimSpace(t.AssetName) == "" {
		return ErrMissingAssetName
	}
	if !t.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if !t.PricePerUnit.IsPositive() {
		return ErrInvalidPrice
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrMissingAccount
	}
	if t.Fees.IsNegative() {
		return ErrInvalidFees
	}
	return nil
}

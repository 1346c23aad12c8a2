package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/validator"
)

// CoinsPerUSD is the fixed exchange rate: 100 coins = $1.00.
const CoinsPerUSD = 100

const (
	CurrencyUSD  = "USD"
	CurrencyCoin = "COIN"
)

type Wallet struct {
	ID                    string          `db:"id"`
	UserID                string          `db:"user_id"`
	CoinBalance           int64           `db:"coin_balance"`
	UsdBalance            decimal.Decimal `db:"usd_balance"`
	PaymentDetails        PaymentDetails  `db:"payment_details"`
	PayoutSecurityEnabled bool            `db:"payout_security_enabled"`
	CreatedAt             time.Time       `db:"created_at"`
	UpdatedAt             sql.NullTime    `db:"updated_at"`
}

// CoinsToUSD converts a coin amount to its USD value at the fixed rate.
func CoinsToUSD(coins int64) decimal.Decimal {
	return decimal.NewFromInt(coins).Div(decimal.NewFromInt(CoinsPerUSD))
}

// Supported payout destination methods.
const (
	PaymentMethodBankUS            = "bank_us"
	PaymentMethodBankInternational = "bank_international"
	PaymentMethodPayPal            = "paypal"
)

// PaymentDetails is a tagged variant: Method selects which of the embedded
// destination structs is populated. The zero value means "not set".
// Stored as a jsonb column and snapshotted onto payouts at request time.
type PaymentDetails struct {
	Method            string                 `json:"method"`
	BankUS            *BankUSDetails         `json:"bank_us,omitempty"`
	BankInternational *BankInternationalInfo `json:"bank_international,omitempty"`
	PayPal            *PayPalDetails         `json:"paypal,omitempty"`
}

type BankUSDetails struct {
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	BankName      string `json:"bank_name"`
}

type BankInternationalInfo struct {
	AccountHolder string `json:"account_holder"`
	IBAN          string `json:"iban"`
	SwiftCode     string `json:"swift_code"`
	BankName      string `json:"bank_name"`
	Country       string `json:"country"`
}

type PayPalDetails struct {
	Email string `json:"email"`
}

func (d PaymentDetails) IsSet() bool {
	return d.Method != ""
}

// Validate checks that exactly the variant named by Method is present and
// that its required fields are filled.
func (d PaymentDetails) Validate() validator.Validator {
	var v validator.Validator

	switch d.Method {
	case PaymentMethodBankUS:
		if d.BankUS == nil {
			v.AddFieldError("bank_us", "details are required")
			break
		}
		v.CheckField(validator.NotBlank(d.BankUS.AccountHolder), "account_holder", "is required")
		v.CheckField(validator.NotBlank(d.BankUS.AccountNumber), "account_number", "is required")
		v.CheckField(validator.NotBlank(d.BankUS.RoutingNumber), "routing_number", "is required")
		v.CheckField(validator.NotBlank(d.BankUS.BankName), "bank_name", "is required")
	case PaymentMethodBankInternational:
		if d.BankInternational == nil {
			v.AddFieldError("bank_international", "details are required")
			break
		}
		v.CheckField(validator.NotBlank(d.BankInternational.AccountHolder), "account_holder", "is required")
		v.CheckField(validator.NotBlank(d.BankInternational.IBAN), "iban", "is required")
		v.CheckField(validator.NotBlank(d.BankInternational.SwiftCode), "swift_code", "is required")
		v.CheckField(validator.NotBlank(d.BankInternational.BankName), "bank_name", "is required")
		v.CheckField(validator.NotBlank(d.BankInternational.Country), "country", "is required")
	case PaymentMethodPayPal:
		if d.PayPal == nil {
			v.AddFieldError("paypal", "details are required")
			break
		}
		v.CheckField(validator.NotBlank(d.PayPal.Email), "email", "is required")
	default:
		v.AddFieldError("method", "must be one of bank_us, bank_international, paypal")
	}

	return v
}

func (d PaymentDetails) Value() (driver.Value, error) {
	if !d.IsSet() {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *PaymentDetails) Scan(src any) error {
	if src == nil {
		*d = PaymentDetails{}
		return nil
	}

	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, d)
	case string:
		return json.Unmarshal([]byte(data), d)
	default:
		return fmt.Errorf("unsupported scan type %T for PaymentDetails", src)
	}
}

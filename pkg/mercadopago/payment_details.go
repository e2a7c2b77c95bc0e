package mercadopago

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// PaymentDetails is the normalized view of a gateway payment. The raw
// payload varies by payment method (card, cash voucher, bank transfer
// each populate different sub-objects); all of that variance is resolved
// here so business logic never digs through nested maps.
type PaymentDetails struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	TransactionAmount float64
	CurrencyID        string

	PaymentMethodID    string
	PaymentTypeID      string
	CardLastFourDigits string
	CardHolderName     string

	RefundedAmount float64
	RefundedCount  int
	HasChargeback  bool

	DateCreated     *time.Time
	DateApproved    *time.Time
	DateLastUpdated *time.Time

	PayerEmail          string
	PayerFirstName      string
	PayerLastName       string
	PayerIdentification string

	Items []LineItem

	// Raw is the verbatim gateway response, retained for forensic recovery.
	Raw []byte
}

// PayerName joins the payer first/last name, falling back to the
// cardholder name when additional_info carries no payer block.
func (d *PaymentDetails) PayerName() string {
	name := strings.TrimSpace(strings.TrimSpace(d.PayerFirstName) + " " + strings.TrimSpace(d.PayerLastName))
	if name != "" {
		return name
	}
	return strings.TrimSpace(d.CardHolderName)
}

// LineItem is a checkout line item echoed back in additional_info.
type LineItem struct {
	ID          string
	Title       string
	Description string
	Quantity    int
	UnitPrice   float64
}

// Size extracts the garment size from the item description, which checkout
// encodes as "Calidad: X - Talle: Y".
func (it LineItem) Size() string {
	_, after, found := strings.Cut(it.Description, "Talle:")
	if !found {
		return ""
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// flexFloat tolerates both JSON numbers and numeric strings; the gateway
// uses either depending on the endpoint and payment method.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil // tolerate junk, leave zero
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type flexInt int

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var f flexFloat
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*i = flexInt(f)
	return nil
}

// paymentPayload mirrors only the slices of the gateway response we read.
// Every sub-object is optional.
type paymentPayload struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount flexFloat   `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	PaymentMethodID   string      `json:"payment_method_id"`
	PaymentTypeID     string      `json:"payment_type_id"`
	DateCreated       string      `json:"date_created"`
	DateApproved      string      `json:"date_approved"`
	DateLastUpdated   string      `json:"date_last_updated"`

	Card struct {
		PaymentMethodID string `json:"payment_method_id"`
		LastFourDigits  string `json:"last_four_digits"`
		Cardholder      struct {
			Name           string `json:"name"`
			Identification struct {
				Number string `json:"number"`
			} `json:"identification"`
		} `json:"cardholder"`
	} `json:"card"`

	Payer struct {
		Email          string `json:"email"`
		Identification struct {
			Number string `json:"number"`
		} `json:"identification"`
	} `json:"payer"`

	AdditionalInfo struct {
		Payer struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"payer"`
		Items []struct {
			ID          string    `json:"id"`
			Title       string    `json:"title"`
			Description string    `json:"description"`
			Quantity    flexInt   `json:"quantity"`
			UnitPrice   flexFloat `json:"unit_price"`
		} `json:"items"`
	} `json:"additional_info"`

	Refunds []struct {
		Amount flexFloat `json:"amount"`
	} `json:"refunds"`

	Chargeback  json.RawMessage `json:"chargeback"`
	Chargebacks json.RawMessage `json:"chargebacks"`
}

// ParsePayment normalizes a raw gateway payment payload. It never fails on
// missing sub-objects, only on malformed JSON.
func ParsePayment(raw []byte) (*PaymentDetails, error) {
	var p paymentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	d := &PaymentDetails{
		ID:                p.ID.String(),
		Status:            p.Status,
		StatusDetail:      p.StatusDetail,
		ExternalReference: p.ExternalReference,
		TransactionAmount: float64(p.TransactionAmount),
		CurrencyID:        p.CurrencyID,
		PaymentTypeID:     p.PaymentTypeID,
		DateCreated:       parseTime(p.DateCreated),
		DateApproved:      parseTime(p.DateApproved),
		DateLastUpdated:   parseTime(p.DateLastUpdated),
		PayerEmail:        p.Payer.Email,
		PayerFirstName:    p.AdditionalInfo.Payer.FirstName,
		PayerLastName:     p.AdditionalInfo.Payer.LastName,
		Raw:               raw,
	}
	if d.ID == "" || d.ID == "<nil>" {
		d.ID = ""
	}

	// payment_method_id lives at the top level for most methods but under
	// card for some tokenized payments.
	d.PaymentMethodID = p.PaymentMethodID
	if d.PaymentMethodID == "" {
		d.PaymentMethodID = p.Card.PaymentMethodID
	}
	d.CardLastFourDigits = p.Card.LastFourDigits
	d.CardHolderName = p.Card.Cardholder.Name

	// DNI preference: cardholder identification first, then payer.
	d.PayerIdentification = p.Card.Cardholder.Identification.Number
	if d.PayerIdentification == "" {
		d.PayerIdentification = p.Payer.Identification.Number
	}

	for _, r := range p.Refunds {
		d.RefundedAmount += float64(r.Amount)
	}
	d.RefundedCount = len(p.Refunds)

	d.HasChargeback = hasValue(p.Chargeback) || hasValue(p.Chargebacks)

	for _, it := range p.AdditionalInfo.Items {
		qty := int(it.Quantity)
		if qty <= 0 {
			qty = 1
		}
		d.Items = append(d.Items, LineItem{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			Quantity:    qty,
			UnitPrice:   float64(it.UnitPrice),
		})
	}

	return d, nil
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func hasValue(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", "[]", "{}", "0", `""`:
		return false
	}
	return true
}

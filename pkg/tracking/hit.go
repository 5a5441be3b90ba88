package tracking

import (
	"encoding/json"
	"fmt"
	"time"
)

// HitType discriminates the hit union on the wire.
type HitType string

const (
	HitTypePage        HitType = "PAGEVIEW"
	HitTypeScreen      HitType = "SCREENVIEW"
	HitTypeEvent       HitType = "EVENT"
	HitTypeTransaction HitType = "TRANSACTION"
	HitTypeItem        HitType = "ITEM"
	HitTypeConsent     HitType = "CONSENT"
	HitTypeActivation  HitType = "ACTIVATION"
	HitTypeSegment     HitType = "SEGMENT"
	HitTypeBatch       HitType = "BATCH"
)

// maxHitByteSize is the ceiling for a single serialized hit and for one
// batch payload, matching the collection endpoint's limit.
const maxHitByteSize = 2_500_000

// DefaultHitExpiration is how long a cached hit stays eligible for resend.
// Older hits are discarded at cache drain time, never resent.
const DefaultHitExpiration = 4 * time.Hour

// Hit is one analytics or exposure event. Implementations are plain data
// carriers; validation failures surface at enqueue time and the offending
// hit is dropped without blocking others.
type Hit interface {
	Type() HitType
	Validate() error
	// Body returns the wire fields of the hit except the client id, which
	// the manager injects.
	Body() map[string]any
}

// Base carries the identity fields shared by every hit.
type Base struct {
	VisitorID   string
	AnonymousID string
}

func (b Base) validate() error {
	if b.VisitorID == "" {
		return ErrMissingVisitorID
	}
	return nil
}

func (b Base) body(t HitType) map[string]any {
	m := map[string]any{
		"t":   string(t),
		"ds":  "APP",
		"vid": b.VisitorID,
	}
	if b.AnonymousID != "" {
		m["aid"] = b.AnonymousID
	}
	return m
}

// Page records a web page view.
type Page struct {
	Base
	Location string
}

func (h *Page) Type() HitType { return HitTypePage }

func (h *Page) Validate() error {
	if err := h.Base.validate(); err != nil {
		return err
	}
	if h.Location == "" {
		return fmt.Errorf("%w: page location", ErrMissingRequiredField)
	}
	return nil
}

func (h *Page) Body() map[string]any {
	m := h.Base.body(HitTypePage)
	m["dl"] = h.Location
	return m
}

// Screen records a native screen view.
type Screen struct {
	Base
	Location string
}

func (h *Screen) Type() HitType { return HitTypeScreen }

func (h *Screen) Validate() error {
	if err := h.Base.validate(); err != nil {
		return err
	}
	if h.Location == "" {
		return fmt.Errorf("%w: screen location", ErrMissingRequiredField)
	}
	return nil
}

func (h *Screen) Body() map[string]any {
	m := h.Base.body(HitTypeScreen)
	m["dl"] = h.Location
	return m
}

// Event records a custom user action.
type Event struct {
	Base
	Category string
	Action   string
	Label    string
	Value    *int
}

func (h *Event) Type() HitType { return HitTypeEvent }

func (h *Event) Validate() error {
	if err := h.Base.validate(); err != nil {
		return err
	}
	if h.Action == "" {
		return fmt.Errorf("%w: event action", ErrMissingRequiredField)
	}
	if h.Value != nil && *h.Value < 0 {
		return fmt.Errorf("%w: event value must not be negative", ErrMissingRequiredField)
	}
	return nil
}

func (h *Event) Body() map[string]any {
	m := h.Base.body(HitTypeEvent)
	m["ea"] = h.Action
	if h.Category != "" {
		m["ec"] = h.Category
	}
	if h.Label != "" {
		m["el"] = h.Label
	}
	if h.Value != nil {
		m["ev"] = *h.Value
	}
	return m
}

// Transaction records a completed purchase.
type Transaction struct {
	Base
	TransactionID  string
	Affiliation    string
	Revenue        float64
	Shipping       float64
	Taxes          float64
	Currency       string
	PaymentMethod  string
	ShippingMethod string
	ItemCount      int
}

func (h *Transaction) Type() HitType { return HitTypeTransaction }

func (h *Transaction) Validate() error {
	if err := h.Base.validate(); err != nil {
		return err
	}
	if h.TransactionID == "" {
		return fmt.Errorf("%w: transaction id", ErrMissingRequiredField)
	}
	if h.Affiliation == "" {
		return fmt.Errorf("%w: transaction affiliation", ErrMissingRequiredField)
	}
	return nil
}

func (h *Transaction) Body() map[string]any {
	m := h.Base.body(HitTypeTransaction)
	m["tid"] = h.TransactionID
	m["ta"] = h.Affiliation
	if h.Revenue != 0 {
		m["tr"] = h.Revenue
	}
	if h.Shipping != 0 {
		m["ts"] = h.Shipping
	}
	if h.Taxes != 0 {
		m["tt"] = h.Taxes
	}
	if h.Currency != "" {
		m["tc"] = h.Currency
	}
	if h.PaymentMethod != "" {
		m["pm"] = h.PaymentMethod
	}
	if h.ShippingMethod != "" {
		m["sm"] = h.ShippingMethod
	}
	if h.ItemCount != 0 {
		m["icn"] = h.ItemCount
	}
	return m
}

// Item records one line item of a transaction.
type Item struct {
	Base
	TransactionID string
	Name          string
	Code          string
	Category      string
	Price         float64
	Quantity      int
}

func (h *Item) Type() HitType { return HitTypeItem }

func (h *Item) Validate() error {
	if err := h.Base.validate(); err != nil {
		return err
	}
	if h.TransactionID == "" {
		return fmt.Errorf("%w: item transaction id", ErrMissingRequiredField)
	}
	if h.Name == "" {
		return fmt.Errorf("%w: item name", ErrMissingRequiredField)
	}
	if h.Code == "" {
		return fmt.Errorf("%w: item code", ErrMissingRequiredField)
	}
	return nil
}

func (h *Item) Body() map[string]any {
	m := h.Base.body(HitTypeItem)
	m["tid"] = h.TransactionID
	m["in"] = h.Name
	m["ic"] = h.Code
	if h.Category != "" {
		m["iv"] = h.Category
	}
	if h.Price != 0 {
		m["ip"] = h.Price
	}
	if h.Quantity != 0 {
		m["iq"] = h.Quantity
	}
	return m
}

// Consent records the visitor's consent decision. It is the one hit kind
// that bypasses the no-consent suppression, otherwise tracking could never
// be re-enabled.
type Consent struct {
	Base
	Consent bool
}

func (h *Consent) Type() HitType { return HitTypeConsent }

func (h *Consent) Validate() error { return h.Base.validate() }

func (h *Consent) Body() map[string]any {
	m := h.Base.body(HitTypeConsent)
	m["co"] = h.Consent
	return m
}

// Activation records that a visitor was exposed to a variation. It is
// delivered to the dedicated exposure endpoint instead of the general
// collection endpoint and is flushed immediately rather than batched.
type Activation struct {
	Base
	VariationGroupID string
	VariationID      string
}

func (h *Activation) Type() HitType { return HitTypeActivation }

func (h *Activation) Validate() error {
	if err := h.Base.validate(); err != nil {
		return err
	}
	if h.VariationGroupID == "" {
		return fmt.Errorf("%w: activation variation group id", ErrMissingRequiredField)
	}
	if h.VariationID == "" {
		return fmt.Errorf("%w: activation variation id", ErrMissingRequiredField)
	}
	return nil
}

func (h *Activation) Body() map[string]any {
	m := map[string]any{
		"vid":  h.VisitorID,
		"caid": h.VariationGroupID,
		"vaid": h.VariationID,
	}
	if h.AnonymousID != "" {
		m["aid"] = h.AnonymousID
	}
	return m
}

// Segment synchronizes the visitor's context with the platform after a
// flag resolution.
type Segment struct {
	Base
	Context map[string]any
}

func (h *Segment) Type() HitType { return HitTypeSegment }

func (h *Segment) Validate() error {
	if err := h.Base.validate(); err != nil {
		return err
	}
	if h.Context == nil {
		return fmt.Errorf("%w: segment context", ErrMissingRequiredField)
	}
	return nil
}

func (h *Segment) Body() map[string]any {
	m := h.Base.body(HitTypeSegment)
	m["s"] = h.Context
	return m
}

// cachedHit is a hit rebuilt from the persistence envelope. The original
// typed struct is gone; the recorded wire body is replayed as-is.
type cachedHit struct {
	hitType HitType
	content map[string]any
}

func (h *cachedHit) Type() HitType       { return h.hitType }
func (h *cachedHit) Validate() error     { return nil }
func (h *cachedHit) Body() map[string]any { return h.content }

// oversized reports whether the serialized body breaches the ceiling.
func oversized(h Hit) bool {
	raw, err := json.Marshal(h.Body())
	if err != nil {
		return true
	}
	return len(raw) > maxHitByteSize
}

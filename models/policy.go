package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StackingMode controls how length-of-stay and non-refundable discounts combine
type StackingMode string

const (
	StackCompound StackingMode = "compound"
	StackAdditive StackingMode = "additive"
	StackBestOnly StackingMode = "best_only"
)

// PolicyVersion is the current DiscountPolicy schema version
const PolicyVersion = 1

// DiscountPolicy is supplied per job. Zero percentages disable a discount.
//
// Defaults: refundable=true, stackingMode=compound, maxTotalDiscountPct=40,
// no floor and no ceiling.
type DiscountPolicy struct {
	Version                  int          `json:"version,omitempty"`
	WeeklyDiscountPct        float64      `json:"weeklyDiscountPct"`
	MonthlyDiscountPct       float64      `json:"monthlyDiscountPct"`
	Refundable               bool         `json:"refundable"`
	NonRefundableDiscountPct float64      `json:"nonRefundableDiscountPct"`
	StackingMode             StackingMode `json:"stackingMode"`
	MaxTotalDiscountPct      float64      `json:"maxTotalDiscountPct"`
	MinPriceFloor            *float64     `json:"minPriceFloor,omitempty"`
	MaxPriceCeiling          *float64     `json:"maxPriceCeiling,omitempty"`
}

// DefaultDiscountPolicy returns the policy used when a job supplies none.
func DefaultDiscountPolicy() DiscountPolicy {
	return DiscountPolicy{
		Version:             PolicyVersion,
		Refundable:          true,
		StackingMode:        StackCompound,
		MaxTotalDiscountPct: 40,
	}
}

// DecodeDiscountPolicy overlays raw JSON on the defaults. Unknown keys and
// unknown stacking modes are rejected.
func DecodeDiscountPolicy(raw []byte) (DiscountPolicy, error) {
	p := DefaultDiscountPolicy()
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return DiscountPolicy{}, fmt.Errorf("invalid discount policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return DiscountPolicy{}, err
	}
	return p, nil
}

// Validate normalizes the stacking mode and checks ranges.
func (p *DiscountPolicy) Validate() error {
	switch p.StackingMode {
	case "":
		p.StackingMode = StackCompound
	case StackCompound, StackAdditive, StackBestOnly:
	default:
		return fmt.Errorf("invalid discount policy: unknown stackingMode %q", p.StackingMode)
	}
	if p.Version == 0 {
		p.Version = PolicyVersion
	}
	if p.Version > PolicyVersion {
		return fmt.Errorf("invalid discount policy: unsupported version %d", p.Version)
	}
	for name, v := range map[string]float64{
		"weeklyDiscountPct":        p.WeeklyDiscountPct,
		"monthlyDiscountPct":       p.MonthlyDiscountPct,
		"nonRefundableDiscountPct": p.NonRefundableDiscountPct,
		"maxTotalDiscountPct":      p.MaxTotalDiscountPct,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("invalid discount policy: %s=%v outside [0,100]", name, v)
		}
	}
	if p.MinPriceFloor != nil && p.MaxPriceCeiling != nil && *p.MinPriceFloor > *p.MaxPriceCeiling {
		return fmt.Errorf("invalid discount policy: minPriceFloor above maxPriceCeiling")
	}
	return nil
}

// Input modes
const (
	InputModeURL      = "url"
	InputModeCriteria = "criteria"
)

// InputAttributes are the caller-supplied property attributes of a job.
type InputAttributes struct {
	InputMode    string   `json:"inputMode,omitempty"`
	ListingURL   string   `json:"listingUrl,omitempty"`
	PropertyType string   `json:"propertyType,omitempty"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *float64 `json:"bathrooms,omitempty"`
	MaxGuests    *int     `json:"maxGuests,omitempty"`
	Beds         *int     `json:"beds,omitempty"`
}

// DecodeInputAttributes parses attributes, rejecting unknown keys.
func DecodeInputAttributes(raw []byte) (InputAttributes, error) {
	var a InputAttributes
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		a.InputMode = InputModeCriteria
		return a, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return InputAttributes{}, fmt.Errorf("invalid input attributes: %w", err)
	}
	if a.InputMode == "" {
		a.InputMode = InputModeCriteria
	}
	if a.InputMode != InputModeURL && a.InputMode != InputModeCriteria {
		return InputAttributes{}, fmt.Errorf("invalid input attributes: unknown inputMode %q", a.InputMode)
	}
	return a, nil
}

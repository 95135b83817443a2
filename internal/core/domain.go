package core

import (
	"errors"
	"strings"
)

// Well-known customer segments. The dataset may carry others; derivation
// only requires that every segment present has a CAC entry.
const (
	SegmentPremium    = "Premium"
	SegmentRegular    = "Regular"
	SegmentBudget     = "Budget"
	SegmentOccasional = "Occasional"
)

// SatisfactionMax is the upper bound of the satisfaction scale.
const SatisfactionMax = 5.0

type (
	Money struct {
		Cents int64
	}

	// CustomerRecord is one row of the input dataset. Extra carries any
	// descriptive columns beyond the known ones, preserved verbatim so
	// exports round-trip the full input.
	CustomerRecord struct {
		ID                string
		City              string
		Zone              string
		Segment           string
		AvgOrderValue     Money
		OrderFrequency    int
		ReturnedOrders    int
		SatisfactionScore float64
		Extra             map[string]string
	}
)

var (
	ErrEmptyCustomerID     = errors.New("empty customer id")
	ErrEmptyCity           = errors.New("empty city")
	ErrEmptyZone           = errors.New("empty zone")
	ErrEmptySegment        = errors.New("empty customer segment")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNegativeFrequency   = errors.New("negative order frequency")
	ErrNegativeReturns     = errors.New("negative returned orders")
	ErrInvalidSatisfaction = errors.New("satisfaction score out of range")
)

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r CustomerRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyCustomerID
	}
	if strings.TrimSpace(r.City) == "" {
		return ErrEmptyCity
	}
	if strings.TrimSpace(r.Zone) == "" {
		return ErrEmptyZone
	}
	if strings.TrimSpace(r.Segment) == "" {
		return ErrEmptySegment
	}
	if err := r.AvgOrderValue.Validate(); err != nil {
		return err
	}
	if r.OrderFrequency < 0 {
		return ErrNegativeFrequency
	}
	if r.ReturnedOrders < 0 {
		return ErrNegativeReturns
	}
	if r.SatisfactionScore < 0 || r.SatisfactionScore > SatisfactionMax {
		return ErrInvalidSatisfaction
	}
	return nil
}

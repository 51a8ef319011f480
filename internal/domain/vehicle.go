package domain

import "time"

// ============================================================
// Vehicle facts
// ============================================================

// Vehicle is the identity of a tracked car. Odometer is in miles and is
// updated externally over time.
type Vehicle struct {
	ID       string  `json:"id"`
	Year     int     `json:"year"`
	Make     string  `json:"make"`
	Model    string  `json:"model"`
	Trim     string  `json:"trim,omitempty"`
	Odometer float64 `json:"odometer"`
	OwnerID  string  `json:"ownerId"`
}

// ServiceRecord is one entry of the append-only service log.
type ServiceRecord struct {
	ID            string    `json:"id,omitempty"`
	VehicleID     string    `json:"vehicleId"`
	ServiceTypeID string    `json:"serviceTypeId"`
	PerformedAt   time.Time `json:"performedAt"`
	Odometer      float64   `json:"odometer"`
}

// OdometerReading is what an external odometer source reports.
type OdometerReading struct {
	VehicleID string    `json:"vehicleId"`
	Miles     float64   `json:"miles"`
	ReadAt    time.Time `json:"readAt"`
}

// ============================================================
// Onboarding questionnaire
// ============================================================

type BiggestWorry string

const (
	WorrySafety    BiggestWorry = "safety"
	WorryCost      BiggestWorry = "cost"
	WorryRippedOff BiggestWorry = "ripped-off"
)

type LastServiceBucket string

const (
	LastService0To3       LastServiceBucket = "0-3"
	LastService3To6       LastServiceBucket = "3-6"
	LastService6To12      LastServiceBucket = "6-12"
	LastServiceOverYear   LastServiceBucket = "over-year"
	LastServiceCantRecall LastServiceBucket = "cant-remember"
)

type FairPriceKnowledge string

const (
	FairPriceYes      FairPriceKnowledge = "yes"
	FairPriceNo       FairPriceKnowledge = "no"
	FairPriceSomewhat FairPriceKnowledge = "somewhat"
)

type PressureExperience string

const (
	PressureYes     PressureExperience = "yes"
	PressureNo      PressureExperience = "no"
	PressureNotSure PressureExperience = "not-sure"
)

// OnboardingProfile holds the signup questionnaire. Latest write wins.
type OnboardingProfile struct {
	VehicleID          string             `json:"vehicleId"`
	BiggestWorry       BiggestWorry       `json:"biggestWorry,omitempty"`
	LastServiceBucket  LastServiceBucket  `json:"lastServiceBucket,omitempty"`
	FairPriceKnowledge FairPriceKnowledge `json:"fairPriceKnowledge,omitempty"`
	PressureExperience PressureExperience `json:"pressureExperience,omitempty"`
	UpdatedAt          time.Time          `json:"updatedAt,omitempty"`
}

// Validate checks every answered enum. Unanswered fields are allowed.
func (p *OnboardingProfile) Validate() error {
	switch p.BiggestWorry {
	case "", WorrySafety, WorryCost, WorryRippedOff:
	default:
		return &ErrInvalidInput{Field: "biggestWorry", Message: "unknown value " + string(p.BiggestWorry)}
	}
	switch p.LastServiceBucket {
	case "", LastService0To3, LastService3To6, LastService6To12, LastServiceOverYear, LastServiceCantRecall:
	default:
		return &ErrInvalidInput{Field: "lastServiceBucket", Message: "unknown value " + string(p.LastServiceBucket)}
	}
	switch p.FairPriceKnowledge {
	case "", FairPriceYes, FairPriceNo, FairPriceSomewhat:
	default:
		return &ErrInvalidInput{Field: "fairPriceKnowledge", Message: "unknown value " + string(p.FairPriceKnowledge)}
	}
	switch p.PressureExperience {
	case "", PressureYes, PressureNo, PressureNotSure:
	default:
		return &ErrInvalidInput{Field: "pressureExperience", Message: "unknown value " + string(p.PressureExperience)}
	}
	return nil
}

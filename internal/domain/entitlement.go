package domain

import (
	"encoding/json"
	"strings"
)

// ============================================================
// Entitlement tiers
// ============================================================

type TierKind string

const (
	TierFree          TierKind = "free"
	TierBasic         TierKind = "basic"
	TierPro           TierKind = "pro"
	TierPayPerService TierKind = "pay-per-service"
)

const payPerServicePrefix = string(TierPayPerService) + ":"

// Tier is a subscription level. ServiceTypeID is set only for
// pay-per-service tiers. On the wire it is a single string:
// "free", "basic", "pro" or "pay-per-service:<serviceTypeId>".
type Tier struct {
	Kind          TierKind
	ServiceTypeID string
}

// PayPerService builds the tier unlocked by buying a single service.
func PayPerService(serviceTypeID string) Tier {
	return Tier{Kind: TierPayPerService, ServiceTypeID: serviceTypeID}
}

// ParseTier never fails: unrecognised values are kept verbatim so that the
// gate can treat them conservatively.
func ParseTier(s string) Tier {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(s, payPerServicePrefix) {
		return PayPerService(strings.TrimPrefix(s, payPerServicePrefix))
	}
	return Tier{Kind: TierKind(s)}
}

func (t Tier) String() string {
	if t.Kind == TierPayPerService {
		return payPerServicePrefix + t.ServiceTypeID
	}
	return string(t.Kind)
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseTier(s)
	return nil
}

// ============================================================
// Content visibility
// ============================================================

type Visibility string

const (
	Visible        Visibility = "visible"
	BlurredPreview Visibility = "blurred-preview"
	Hidden         Visibility = "hidden"
)

// SafetyAlertCategory marks content that is never gated.
const SafetyAlertCategory = "safety-alert"

// ContentItem is anything a screen wants to render behind the gate.
type ContentItem struct {
	ID           string `json:"id"`
	Section      string `json:"section,omitempty"`
	RequiredTier Tier   `json:"requiredTier"`
	Category     string `json:"category,omitempty"`
}

// ItemVisibility pairs an item id with its gate decision.
type ItemVisibility struct {
	ID         string     `json:"id"`
	Section    string     `json:"section,omitempty"`
	Visibility Visibility `json:"visibility"`
}

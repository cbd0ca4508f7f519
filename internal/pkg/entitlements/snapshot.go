package entitlements

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuelReschke/RulesService/internal/pkg/utils"
)

// Snapshot is the merged configuration of one tenant at one version.
type Snapshot struct {
	TenantID      string           `json:"tenant_id"`
	Plan          string           `json:"plan"`
	Limits        map[string]int64 `json:"limits"`
	Features      map[string]bool  `json:"features"`
	OveragePolicy map[string]bool  `json:"overage_policy"`
	// Extras carries overrides that are neither a limit nor a feature.
	Extras      map[string]any `json:"extras"`
	PricingRefs PricingRefs    `json:"pricing_refs"`
	Version     int            `json:"version"`
	UpdatedAt   time.Time      `json:"updated_at"`
	TTLHintSec  int            `json:"ttl_hint_sec"`
}

type PricingRefs struct {
	Plan    string            `json:"plan"`
	Addons  map[string]string `json:"addons"`
	Overage OverageRefs       `json:"overage"`
}

type OverageRefs struct {
	PerStylist  string `json:"per_stylist"`
	PerLocation string `json:"per_location"`
}

// Canonical returns the stable serialization of s: object keys sorted at
// every depth, no insignificant whitespace, timestamps in UTC.
func (s *Snapshot) Canonical() ([]byte, error) {
	c := *s
	c.UpdatedAt = s.UpdatedAt.UTC()
	return utils.MarshalCanonical(&c)
}

// ETag returns the hex sha256 of the canonical serialization.
func (s *Snapshot) ETag() (string, error) {
	data, err := s.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// DecodeSnapshot parses a canonical snapshot. Numbers in Extras are kept as
// json.Number so a decoded snapshot compares equal to a freshly merged one.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

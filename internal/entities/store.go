package entities

// CompressionType selects how aggressively a store's images are re-encoded.
type CompressionType string

const (
	CompressionBalanced     CompressionType = "BALANCED"
	CompressionConservative CompressionType = "CONSERVATIVE"
	CompressionStandard     CompressionType = "STANDARD"
)

// Plan is a subscription tier name. Ceilings live in the subscription_plans table.
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanMicro      Plan = "MICRO"
	PlanPro        Plan = "PRO"
	PlanAdvanced   Plan = "ADVANCED"
	PlanPremium    Plan = "PREMIUM"
	PlanPlus       Plan = "PLUS"
	PlanEnterprise Plan = "ENTERPRISE"
)

type Store struct {
	Name            string          `json:"name"`
	CompressionType CompressionType `json:"compression_type"`

	// Per-format quality overrides, used only when CompressionType is STANDARD.
	PNGQuality    int `json:"png"`
	JPEGQuality   int `json:"jpeg"`
	OthersQuality int `json:"others"`

	AutoCompression bool `json:"auto_compression"`
	BatchCompress   bool `json:"batch_compress"`
	BatchRestore    bool `json:"batch_restore"`
	AutoFileRename  bool `json:"auto_file_rename"`
	AutoAltRename   bool `json:"auto_alt_rename"`

	Plan Plan `json:"plan"`
	// DataUsed accumulates compressed megabytes. It only ever grows; a plan
	// downgrade resets entitlement, not usage.
	DataUsed float64 `json:"data_used"`
	ChargeID string  `json:"charge_id"`
}

type SubscriptionPlan struct {
	Name Plan `json:"name"`
	// CeilingMB is the bandwidth allowance in megabytes.
	CeilingMB float64 `json:"ceiling_mb"`
}

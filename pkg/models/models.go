// Package models defines the shared domain types for the estimation portal:
// the task catalog schema, estimation results, the market price index, quota
// state, client profiles, saved estimates, chat transcripts, and lead events.
package models

import (
	"time"
)

// ── Task Catalog ─────────────────────────────────────────────

// FieldKind is the input widget type for a task field.
type FieldKind string

const (
	FieldText   FieldKind = "text"
	FieldNumber FieldKind = "number"
	FieldSelect FieldKind = "select"
)

// TaskField describes one form field of a task. A field may depend on the
// value of another field: when DependsOn is set, the field is shown only
// while the referenced field holds one of the ShowWhen values.
type TaskField struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"kind"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []string  `json:"options,omitempty"`
	DependsOn   string    `json:"depends_on,omitempty"`
	ShowWhen    []string  `json:"show_when,omitempty"`
}

// TaskConfig is one selectable project type with its form schema.
// Task configs are defined at startup and never mutated.
type TaskConfig struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Icon        string      `json:"icon"`
	Description string      `json:"description"`
	Fields      []TaskField `json:"fields"`
}

// FormInputs maps field name to the entered value for one submission.
type FormInputs map[string]string

// ── Estimation Result ────────────────────────────────────────

// MaterialItem is one line of the bill of materials.
type MaterialItem struct {
	Name            string  `json:"name"`
	Quantity        string  `json:"quantity"`
	UnitPrice       float64 `json:"unitPrice"`
	TotalPrice      float64 `json:"totalPrice"`
	BrandSuggestion string  `json:"brandSuggestion,omitempty"`
}

// TimelineEvent is one milestone of the generated project plan.
type TimelineEvent struct {
	Week     int    `json:"week"`
	Activity string `json:"activity"`
	Status   string `json:"status"`
}

// EstimationResult is the structured answer produced by the estimation
// collaborator. The portal treats it as opaque apart from
// TotalEstimatedCost and the per-material totals.
type EstimationResult struct {
	Category             string          `json:"category,omitempty"`
	Materials            []MaterialItem  `json:"materials"`
	LaborCost            float64         `json:"laborCost"`
	EstimatedDays        int             `json:"estimatedDays"`
	Precautions          []string        `json:"precautions"`
	TotalEstimatedCost   float64         `json:"totalEstimatedCost"`
	ExpertTips           string          `json:"expertTips,omitempty"`
	VisualPrompt         string          `json:"visualPrompt,omitempty"`
	Timeline             []TimelineEvent `json:"timeline,omitempty"`
	PaintCodeSuggestions []string        `json:"paintCodeSuggestions,omitempty"`
}

// ── Market Price Index ───────────────────────────────────────

// PriceTrend marks the movement direction of a material price.
type PriceTrend string

const (
	TrendUp     PriceTrend = "up"
	TrendDown   PriceTrend = "down"
	TrendStable PriceTrend = "stable"
)

// MarketMaterial is one priced line of the market index.
type MarketMaterial struct {
	Category     string     `json:"category,omitempty"`
	BrandName    string     `json:"brandName"`
	SpecificType string     `json:"specificType"`
	PriceWithGST float64    `json:"priceWithGst"`
	Unit         string     `json:"unit"`
	Trend        PriceTrend `json:"trend"`
}

// PriceCategory groups market materials under a display title.
type PriceCategory struct {
	Title string           `json:"title"`
	Items []MarketMaterial `json:"items"`
}

// MarketPriceList is the full market index returned by the price
// collaborator, or the built-in fallback when the collaborator fails.
type MarketPriceList struct {
	LastUpdated string          `json:"lastUpdated"`
	Categories  []PriceCategory `json:"categories"`
}

// ── Quota & Cooldown ─────────────────────────────────────────

// QuotaState tracks free-estimate consumption and the payment-confirmation
// cooldown for one client. It is persisted across sessions; all transitions
// are pure functions in the quota package.
type QuotaState struct {
	ConsumedCount    int        `json:"consumed_count"`
	Upgraded         bool       `json:"upgraded"`
	CooldownDeadline *time.Time `json:"cooldown_deadline,omitempty"`
}

// ── Client Profile ───────────────────────────────────────────

// Profile is a registered portal client, guest or premium.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Location  string    `json:"location,omitempty"`
	Premium   bool      `json:"premium"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ── Saved Estimates ──────────────────────────────────────────

// EstimateRecord is a persisted quote: the inputs that produced it and the
// full collaborator result, kept for the client's project ledger.
type EstimateRecord struct {
	ID         string           `json:"id"`
	ClientID   string           `json:"client_id"`
	ClientName string           `json:"client_name"`
	Phone      string           `json:"phone"`
	TaskID     string           `json:"task_id"`
	TaskTitle  string           `json:"task_title"`
	Area       string           `json:"area,omitempty"`
	Inputs     FormInputs       `json:"inputs"`
	Result     EstimationResult `json:"result"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ── Chat ─────────────────────────────────────────────────────

// ChatRole identifies the author of a transcript entry.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of a conversation transcript. The last assistant
// entry's Text grows incrementally while a response stream is in flight.
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// ── Lead Events ──────────────────────────────────────────────

// LeadEventKind classifies what happened for the business owner's feed.
type LeadEventKind string

const (
	EventAccess            LeadEventKind = "access"
	EventQuoteRequested    LeadEventKind = "quote_requested"
	EventUpgradeRequested  LeadEventKind = "upgrade_requested"
	EventCallbackRequested LeadEventKind = "callback_requested"
	EventInvoiceGenerated  LeadEventKind = "invoice_generated"
)

// LeadEvent is the single flattened record forwarded to the lead webhook.
// One schema serves every event kind; unused fields stay empty.
type LeadEvent struct {
	Kind       LeadEventKind `json:"event"`
	ClientName string        `json:"client_name"`
	Phone      string        `json:"phone"`
	Location   string        `json:"location,omitempty"`
	Task       string        `json:"task,omitempty"`
	Total      float64       `json:"total,omitempty"`
	Inputs     FormInputs    `json:"inputs,omitempty"`
	Details    any           `json:"details,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

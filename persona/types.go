// Package persona owns the persona/keyword configuration that drives automated replies.
//
// A Configuration is the aggregate root: a set of personas, the id of the active one,
// the ordered keyword rules, and a few global switches. The Store holds the live
// Configuration behind an atomic pointer so every reader gets an immutable snapshot,
// and persists it through a pluggable Backend (file, Postgres kv table, or Redis).
package persona

// ResponseMode selects how a persona decides whether to answer a chat line.
type ResponseMode string

const (
	// ModeKeyword answers only when a configured trigger substring appears in the message.
	ModeKeyword ResponseMode = "keyword"
	// ModeFreeQA answers any message that is not filtered out as meaningless.
	ModeFreeQA ResponseMode = "free_qa"
)

// Valid reports whether m is a known response mode.
func (m ResponseMode) Valid() bool {
	return m == ModeKeyword || m == ModeFreeQA
}

// RuleKind distinguishes plain keyword rules from product-info rules.
type RuleKind string

const (
	KindGeneric     RuleKind = "generic"
	KindProductInfo RuleKind = "product_info"
)

// Defaults applied to product-info rules that leave fields blank.
const (
	DefaultPrice         = "请咨询主播"
	DefaultSellingMethod = "点击购物车下单"
)

// Persona is a named behavior profile.
type Persona struct {
	ID                  string       `json:"-"`
	DisplayName         string       `json:"name"`
	ResponseMode        ResponseMode `json:"response_mode"`
	SystemPrompt        string       `json:"system_prompt"`
	FilteringEnabled    bool         `json:"filtering_enabled"`
	MinMessageLength    int          `json:"min_message_length"`
	MeaninglessPatterns []string     `json:"meaningless_patterns"`
}

// KeywordRule maps a trigger substring to response-shaping data.
type KeywordRule struct {
	Trigger          string   `json:"-"`
	AIContext        string   `json:"ai_context,omitempty"`
	ResponseTemplate string   `json:"response_template,omitempty"`
	Kind             RuleKind `json:"type"`
	ProductName      string   `json:"product_name,omitempty"`
	Price            string   `json:"price,omitempty"`
	SellingMethod    string   `json:"selling_method,omitempty"`
}

// ProductNameOrDefault returns the product name, falling back to the trigger.
func (r KeywordRule) ProductNameOrDefault() string {
	if r.ProductName != "" {
		return r.ProductName
	}
	return r.Trigger
}

// PriceOrDefault returns the configured price or DefaultPrice.
func (r KeywordRule) PriceOrDefault() string {
	if r.Price != "" {
		return r.Price
	}
	return DefaultPrice
}

// SellingMethodOrDefault returns the configured purchase method or DefaultSellingMethod.
func (r KeywordRule) SellingMethodOrDefault() string {
	if r.SellingMethod != "" {
		return r.SellingMethod
	}
	return DefaultSellingMethod
}

// Configuration is the full persona/keyword document.
//
// Rules keeps document order; that order is the tie-break when several triggers
// match the same message. Triggers are unique.
type Configuration struct {
	Personas        map[string]Persona
	ActivePersonaID string
	Rules           []KeywordRule
	TTSEnabled      bool
}

// DefaultPersonaID is the id of the built-in persona.
const DefaultPersonaID = "default"

// DefaultPersona returns the built-in persona substituted whenever the active id is unknown.
func DefaultPersona() Persona {
	return Persona{
		ID:           DefaultPersonaID,
		DisplayName:  "直播间助理",
		ResponseMode: ModeKeyword,
		SystemPrompt: "你是一名热情、亲切的直播间助理，负责回答观众在弹幕中提出的问题。" +
			"回复要简短口语化，控制在50字以内，不要使用任何表情符号或Markdown格式。",
		FilteringEnabled:    true,
		MinMessageLength:    2,
		MeaninglessPatterns: []string{"666", "哈哈", "来了", "打卡", "扣1", "？"},
	}
}

// Default returns the built-in configuration: one persona in keyword mode and no rules.
func Default() *Configuration {
	p := DefaultPersona()
	return &Configuration{
		Personas:        map[string]Persona{p.ID: p},
		ActivePersonaID: p.ID,
		TTSEnabled:      true,
	}
}

// Clone returns a deep copy so the original can be shared read-only.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	out := &Configuration{
		Personas:        make(map[string]Persona, len(c.Personas)),
		ActivePersonaID: c.ActivePersonaID,
		Rules:           make([]KeywordRule, len(c.Rules)),
		TTSEnabled:      c.TTSEnabled,
	}
	for id, p := range c.Personas {
		p.MeaninglessPatterns = append([]string(nil), p.MeaninglessPatterns...)
		out.Personas[id] = p
	}
	copy(out.Rules, c.Rules)
	return out
}

// ActivePersona resolves ActivePersonaID, substituting DefaultPersona when it is unknown.
func (c *Configuration) ActivePersona() Persona {
	if p, ok := c.Personas[c.ActivePersonaID]; ok {
		p.ID = c.ActivePersonaID
		return p
	}
	return DefaultPersona()
}

// Rule looks up a keyword rule by trigger.
func (c *Configuration) Rule(trigger string) (KeywordRule, bool) {
	for _, r := range c.Rules {
		if r.Trigger == trigger {
			return r, true
		}
	}
	return KeywordRule{}, false
}

// Snapshot is the read-only view one event is processed against.
// Its slices are shared with the stored Configuration and must not be modified.
type Snapshot struct {
	Persona    Persona
	Rules      []KeywordRule
	TTSEnabled bool
}

// Snapshot resolves the active persona and pairs it with the keyword rules.
func (c *Configuration) Snapshot() Snapshot {
	return Snapshot{
		Persona:    c.ActivePersona(),
		Rules:      c.Rules,
		TTSEnabled: c.TTSEnabled,
	}
}

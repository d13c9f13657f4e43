package persona

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// SettingsKey is the reserved top-level key holding personas and global settings.
// Every other top-level key of the document is a keyword trigger.
const SettingsKey = "__settings__"

type settingsDoc struct {
	Personas      map[string]personaDoc `json:"personas"`
	ActivePersona string                `json:"active_persona"`
	TTSEnabled    *bool                 `json:"tts_enabled,omitempty"`
}

type personaDoc struct {
	DisplayName         string   `json:"name"`
	ResponseMode        string   `json:"response_mode"`
	SystemPrompt        string   `json:"system_prompt"`
	FilteringEnabled    *bool    `json:"filtering_enabled,omitempty"`
	MinMessageLength    int      `json:"min_message_length"`
	MeaninglessPatterns []string `json:"meaningless_patterns"`
}

// MarshalJSON encodes the configuration as the persisted document: the settings
// object first, then one entry per keyword rule in rule order.
func (c Configuration) MarshalJSON() ([]byte, error) {
	settings := settingsDoc{
		Personas:      make(map[string]personaDoc, len(c.Personas)),
		ActivePersona: c.ActivePersonaID,
		TTSEnabled:    &c.TTSEnabled,
	}
	for id, p := range c.Personas {
		enabled := p.FilteringEnabled
		patterns := p.MeaninglessPatterns
		if patterns == nil {
			patterns = []string{}
		}
		settings.Personas[id] = personaDoc{
			DisplayName:         p.DisplayName,
			ResponseMode:        string(p.ResponseMode),
			SystemPrompt:        p.SystemPrompt,
			FilteringEnabled:    &enabled,
			MinMessageLength:    p.MinMessageLength,
			MeaninglessPatterns: patterns,
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, SettingsKey, settings); err != nil {
		return nil, err
	}
	for _, r := range c.Rules {
		buf.WriteByte(',')
		if err := writeMember(&buf, r.Trigger, r); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, v any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

// UnmarshalJSON decodes a persisted document, preserving trigger order.
//
// Structural problems (not an object, broken syntax) are errors. Individual bad
// entries are repaired or skipped: unknown modes fall back to keyword, negative
// lengths to zero, unknown rule types to generic, and a document without personas
// gets the built-in one.
func (c *Configuration) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("persona document: expected object, got %v", tok)
	}

	out := Configuration{TTSEnabled: true}
	var settings *settingsDoc
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("persona document: value of %q: %w", key, err)
		}
		if key == SettingsKey {
			var s settingsDoc
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("persona document: settings: %w", err)
			}
			settings = &s
			continue
		}
		if strings.TrimSpace(key) == "" {
			slog.Warn("persona document: skipping rule with empty trigger", slog.String("component", "persona"))
			continue
		}
		var r KeywordRule
		if err := json.Unmarshal(raw, &r); err != nil {
			slog.Warn("persona document: skipping malformed rule", slog.String("trigger", key), slog.Any("err", err), slog.String("component", "persona"))
			continue
		}
		r.Trigger = key
		if r.Kind != KindProductInfo {
			r.Kind = KindGeneric
		}
		if i, dup := index[key]; dup {
			out.Rules[i] = r
			continue
		}
		index[key] = len(out.Rules)
		out.Rules = append(out.Rules, r)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	out.Personas = map[string]Persona{}
	if settings != nil {
		out.ActivePersonaID = settings.ActivePersona
		if settings.TTSEnabled != nil {
			out.TTSEnabled = *settings.TTSEnabled
		}
		for id, pd := range settings.Personas {
			out.Personas[id] = pd.persona(id)
		}
	}
	if len(out.Personas) == 0 {
		p := DefaultPersona()
		out.Personas[p.ID] = p
		if out.ActivePersonaID == "" {
			out.ActivePersonaID = p.ID
		}
	}
	*c = out
	return nil
}

func (pd personaDoc) persona(id string) Persona {
	p := Persona{
		ID:                  id,
		DisplayName:         pd.DisplayName,
		ResponseMode:        ResponseMode(pd.ResponseMode),
		SystemPrompt:        pd.SystemPrompt,
		FilteringEnabled:    true,
		MinMessageLength:    pd.MinMessageLength,
		MeaninglessPatterns: pd.MeaninglessPatterns,
	}
	if !p.ResponseMode.Valid() {
		p.ResponseMode = ModeKeyword
	}
	if pd.FilteringEnabled != nil {
		p.FilteringEnabled = *pd.FilteringEnabled
	}
	if p.MinMessageLength < 0 {
		p.MinMessageLength = 0
	}
	if p.MeaninglessPatterns == nil {
		p.MeaninglessPatterns = []string{}
	}
	return p
}

// Decode parses a persisted document.
func Decode(data []byte) (*Configuration, error) {
	var c Configuration
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Encode renders the configuration as an indented document suitable for storage.
func Encode(c *Configuration) ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

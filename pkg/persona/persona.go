package persona

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/harun/procurer/pkg/elevenlabs"
)

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// ReservationToolName is the webhook tool the agent calls once the shop has
// confirmed availability, price and pickup time.
const ReservationToolName = "save_reservation_details"

// Persona describes the hosted agent and the copy shown on the call page.
type Persona struct {
	Name         string `yaml:"name" json:"name,omitempty"`
	Title        string `yaml:"title" json:"title,omitempty"`
	Description  string `yaml:"description" json:"description,omitempty"`
	Prompt       string `yaml:"prompt" json:"prompt,omitempty"`
	FirstMessage string `yaml:"first_message" json:"first_message,omitempty"`
	Language     string `yaml:"language" json:"language,omitempty"`
	VoiceID      string `yaml:"voice_id" json:"voice_id,omitempty"`

	// WebhookBaseURL, when set, is where the agent posts reservation outcomes.
	WebhookBaseURL string `yaml:"webhook_base_url" json:"webhook_base_url,omitempty"`

	Context CallContext `yaml:"context" json:"context"`
}

// CallContext fills the placeholders of a persona prompt.
type CallContext struct {
	ShopName   string `yaml:"shop_name" json:"shop_name,omitempty"`
	ItemName   string `yaml:"item_name" json:"item_name,omitempty"`
	PickupTime string `yaml:"pickup_time" json:"pickup_time,omitempty"`
}

const defaultPrompt = `You are a professional plumber's assistant calling {{shop_name}} on behalf of a plumber. ` +
	`Your goal is to find out if they have {{item_name}} in stock. ` +
	`If they have it, ask for the price and try to reserve it for pickup around {{pickup_time}}. ` +
	`Be polite but direct. ` +
	`If the price is provided, record it. ` +
	`Once you have the information (availability, price, confirmed time) and have made a reservation (if possible), ` +
	`call the save_reservation_details tool to save the information, and then politely say goodbye and end the conversation.`

// Default returns the built-in plumber procurement persona.
func Default() *Persona {
	return &Persona{
		Name:  "Plumber Procurement Agent",
		Title: "Plumber Voice Agent",
		Description: "This agent represents a plumber calling a hardware store. " +
			"Act as the store clerk and provide availability, price, and pickup time.",
		Prompt:       defaultPrompt,
		FirstMessage: "Hello, I'm calling to check stock for a plumbing item. Do you have a moment?",
		Language:     "en",
	}
}

// Render substitutes the call context into template. Missing values fall
// back to neutral phrases.
func (c CallContext) Render(template string) string {
	r := strings.NewReplacer(
		"{{shop_name}}", fallback(c.ShopName, "a shop"),
		"{{item_name}}", fallback(c.ItemName, "the item"),
		"{{pickup_time}}", fallback(c.PickupTime, "sometime today"),
	)
	return r.Replace(template)
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// RenderedPrompt is the prompt with the persona's call context applied.
func (p *Persona) RenderedPrompt() string {
	return p.Context.Render(p.Prompt)
}

// Parse decodes and validates a YAML persona document.
func Parse(data []byte) (*Persona, error) {
	var p Persona
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse persona YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads a persona file.
func Load(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Persona, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the persona against the embedded JSON schema.
func (p *Persona) Validate() error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode persona: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid persona: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// AgentRequest builds the provider's create-agent body for this persona.
func (p *Persona) AgentRequest() elevenlabs.CreateAgentRequest {
	req := elevenlabs.CreateAgentRequest{
		Name: p.Name,
		ConversationConfig: elevenlabs.ConversationConfig{
			Agent: elevenlabs.AgentConfig{
				Prompt:       elevenlabs.PromptConfig{Prompt: p.RenderedPrompt()},
				FirstMessage: p.FirstMessage,
				Language:     p.Language,
			},
		},
	}

	if p.VoiceID != "" {
		req.ConversationConfig.TTS = &elevenlabs.TTSConfig{VoiceID: p.VoiceID}
	}

	if p.WebhookBaseURL != "" {
		req.ConversationConfig.Agent.Prompt.Tools = []elevenlabs.Tool{reservationTool(p.WebhookBaseURL)}
	}

	return req
}

func reservationTool(baseURL string) elevenlabs.Tool {
	return elevenlabs.Tool{
		Type:        "webhook",
		Name:        ReservationToolName,
		Description: "Save the details of the reservation availability and price.",
		APISchema: elevenlabs.ToolAPISchema{
			URL:    strings.TrimRight(baseURL, "/") + "/api/reservations",
			Method: "POST",
			RequestBody: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"item_available":       map[string]any{"type": "boolean", "description": "Whether the item is in stock."},
					"price":                map[string]any{"type": "number", "description": "Price per unit."},
					"reserved_pickup_time": map[string]any{"type": "string", "description": "The confirmed pickup time."},
					"notes":                map[string]any{"type": "string", "description": "Reservation name, contact person or anything else."},
				},
				"required": []string{"item_available", "price", "reserved_pickup_time"},
			},
		},
	}
}

package elevenlabs

// CreateAgentRequest is the body of POST /v1/convai/agents/create.
type CreateAgentRequest struct {
	Name               string             `json:"name"`
	ConversationConfig ConversationConfig `json:"conversation_config"`
}

// ConversationConfig configures the agent and its voice.
type ConversationConfig struct {
	Agent AgentConfig `json:"agent"`
	TTS   *TTSConfig  `json:"tts,omitempty"`
}

// AgentConfig is the persona part of a conversation config.
type AgentConfig struct {
	Prompt       PromptConfig `json:"prompt"`
	FirstMessage string       `json:"first_message,omitempty"`
	Language     string       `json:"language,omitempty"`
}

// PromptConfig holds the system prompt and the server tools the agent may call.
type PromptConfig struct {
	Prompt string `json:"prompt"`
	Tools  []Tool `json:"tools,omitempty"`
}

// TTSConfig selects the agent voice.
type TTSConfig struct {
	VoiceID string `json:"voice_id"`
}

// Tool is a webhook tool the hosted agent invokes during a call.
type Tool struct {
	Type        string        `json:"type"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	APISchema   ToolAPISchema `json:"api_schema"`
}

// ToolAPISchema describes the HTTP endpoint behind a webhook tool.
type ToolAPISchema struct {
	URL         string         `json:"url"`
	Method      string         `json:"method"`
	RequestBody map[string]any `json:"request_body_schema,omitempty"`
}

// Event is one decoded message from a realtime conversation session.
type Event struct {
	Type string

	// ConversationID is set on conversation_initiation_metadata.
	ConversationID string
	// Text carries agent_response, user_transcript and error messages.
	Text string
	// AudioBytes is the encoded size of an audio chunk; audio is not decoded.
	AudioBytes int
}

// Event types delivered by Session.Events.
const (
	EventInitiation     = "conversation_initiation_metadata"
	EventAgentResponse  = "agent_response"
	EventUserTranscript = "user_transcript"
	EventAudio          = "audio"
	EventInterruption   = "interruption"
	EventPing           = "ping"
	EventError          = "error"
)

// wireMessage mirrors the JSON envelope the realtime endpoint sends.
type wireMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`

	InitiationMetadata *struct {
		ConversationID string `json:"conversation_id"`
	} `json:"conversation_initiation_metadata_event,omitempty"`
	AudioEvent *struct {
		EventID     int    `json:"event_id"`
		AudioBase64 string `json:"audio_base_64"`
	} `json:"audio_event,omitempty"`
	PingEvent *struct {
		EventID int `json:"event_id"`
		PingMS  int `json:"ping_ms"`
	} `json:"ping_event,omitempty"`
	UserTranscriptionEvent *struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event,omitempty"`
	AgentResponseEvent *struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event,omitempty"`
}

package persona

// ID is the closed set of persona identifiers the agent can speak as.
type ID string

const (
	Anna  ID = "Anna"
	Irish ID = "Irish"
	Alexa ID = "Alexa"
	Jak   ID = "Jak"
	Alecx ID = "Alecx"
)

// Default is used whenever a request names an unknown persona.
const Default = Anna

// IDs lists every persona identifier in presentation order.
func IDs() []ID {
	return []ID{Anna, Irish, Alexa, Jak, Alecx}
}

// ParseID maps a raw identifier onto the closed enumeration.
func ParseID(raw string) (ID, bool) {
	for _, id := range IDs() {
		if string(id) == raw {
			return id, true
		}
	}
	return "", false
}

// Persona captures the tone profile exposed to the frontend and the system prompt
// sent upstream.
type Persona struct {
	ID           ID       `json:"id"`
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Tone         string   `json:"tone"`
	Prompt       string   `json:"-"`
	BackendVoice string   `json:"backendVoice"`
	OpeningLine  string   `json:"openingLine"`
	Traits       []string `json:"traits,omitempty"`
}

// Seed provides the built-in personas.
func Seed() []Persona {
	return []Persona{
		{
			ID:           Anna,
			Name:         "Anna",
			Title:        "Professional companion",
			Tone:         "warm, clear, confident",
			Prompt:       "You are Anna, a professional and warm woman. Your voice is clear, confident, and friendly. You are articulate, supportive, and always professional while remaining warm and approachable.",
			BackendVoice: "Microsoft Zira",
			OpeningLine:  "Hi, I'm Anna. What can I help you with today?",
			Traits:       []string{"professional", "warm", "supportive"},
		},
		{
			ID:           Irish,
			Name:         "Irish",
			Title:        "Witty storyteller",
			Tone:         "lively, witty, charming",
			Prompt:       "You are Irish, a lively and witty character with a strong Irish accent. You love to add a bit of humor and charm to every conversation, making people feel at ease.",
			BackendVoice: "Microsoft Siobhan",
			OpeningLine:  "Well hello there! Pull up a chair and tell me what's on your mind.",
			Traits:       []string{"humorous", "charming", "lively"},
		},
		{
			ID:           Alexa,
			Name:         "Alexa",
			Title:        "Precise assistant",
			Tone:         "neutral, precise, helpful",
			Prompt:       "You are Alexa, a clear and professional assistant. Your voice is neutral, precise, and helpful, always ready to provide information in a friendly manner.",
			BackendVoice: "Amazon Alexa",
			OpeningLine:  "Hello. Ask me anything and I'll do my best to help.",
			Traits:       []string{"precise", "neutral", "helpful"},
		},
		{
			ID:           Jak,
			Name:         "Jak",
			Title:        "Energetic buddy",
			Tone:         "upbeat, modern, playful",
			Prompt:       "You are Jak, a cool and energetic young man. Your voice is upbeat, modern, and a bit playful, making every chat engaging and fun.",
			BackendVoice: "Microsoft Jak",
			OpeningLine:  "Yo! Jak here. What are we talking about today?",
			Traits:       []string{"energetic", "playful", "modern"},
		},
		{
			ID:           Alecx,
			Name:         "Alecx",
			Title:        "Calm listener",
			Tone:         "soothing, patient, reassuring",
			Prompt:       "You are Alecx, a thoughtful and calm person. Your voice is soothing, reassuring, and always patient, helping users feel relaxed and confident.",
			BackendVoice: "Microsoft Alecx",
			OpeningLine:  "Take your time. I'm here and listening.",
			Traits:       []string{"calm", "patient", "thoughtful"},
		},
	}
}

// Override replaces the prompt and/or backend voice of a seeded persona.
type Override struct {
	Prompt       string `yaml:"prompt"`
	BackendVoice string `yaml:"backend_voice"`
}

// Apply returns a copy of items with the overrides merged in. Overrides for identifiers
// outside the enumeration are ignored.
func Apply(items []Persona, overrides map[string]Override) []Persona {
	merged := append([]Persona(nil), items...)
	for i := range merged {
		o, ok := overrides[string(merged[i].ID)]
		if !ok {
			continue
		}
		if o.Prompt != "" {
			merged[i].Prompt = o.Prompt
		}
		if o.BackendVoice != "" {
			merged[i].BackendVoice = o.BackendVoice
		}
	}
	return merged
}

package persona

// Persona is one named behavioral configuration within a live session:
// instructions, realtime-model parameters, and the set of personas it may
// hand the session off to. Personas are created once at session start and
// never mutated afterwards.
type Persona struct {
	Name            string   `json:"name"`
	Title           string   `json:"title"`
	PromptName      string   `json:"promptName"`
	Instructions    string   `json:"-"`
	Model           string   `json:"model"`
	Voice           string   `json:"voice"`
	Temperature     float32  `json:"temperature"`
	TransferTargets []string `json:"transferTargets"`
}

// CanTransferTo reports whether name is in the persona's capability set.
func (p Persona) CanTransferTo(name string) bool {
	for _, target := range p.TransferTargets {
		if target == name {
			return true
		}
	}
	return false
}

const (
	defaultModel       = "gemini-live-2.5-flash-preview"
	defaultTemperature = 0.8
)

// Seed provides the default medical-office persona set: a triage entry
// point that can route to support and billing, each of which can route
// back or sideways.
func Seed() []Persona {
	return []Persona{
		{
			Name:            "triage",
			Title:           "Triage Assistant",
			PromptName:      "triage_prompt.yaml",
			Model:           defaultModel,
			Voice:           "Puck",
			Temperature:     defaultTemperature,
			TransferTargets: []string{"support", "billing"},
		},
		{
			Name:            "support",
			Title:           "Support Assistant",
			PromptName:      "support_prompt.yaml",
			Model:           defaultModel,
			Voice:           "Charon",
			Temperature:     defaultTemperature,
			TransferTargets: []string{"triage", "billing"},
		},
		{
			Name:            "billing",
			Title:           "Billing Assistant",
			PromptName:      "billing_prompt.yaml",
			Model:           defaultModel,
			Voice:           "Kore",
			Temperature:     defaultTemperature,
			TransferTargets: []string{"triage", "support"},
		},
	}
}

package domain

const (
	RecommendationStrongMatch          = "strong-match"
	RecommendationGoodPotential        = "good-potential"
	RecommendationSomeCompatibility    = "some-compatibility"
	RecommendationLimitedCompatibility = "limited-compatibility"
)

// CompatibilityFactors desglosa el puntaje conductual. Cada factor en [0,1].
type CompatibilityFactors struct {
	Engagement         float64 `json:"engagement"`
	EmotionalAlignment float64 `json:"emotional_alignment"`
	ConversationFlow   float64 `json:"conversation_flow"`
	ResponseQuality    float64 `json:"response_quality"`
}

// Highlight es un extracto memorable de la conversacion.
type Highlight struct {
	Content string `json:"content"`
	Emotion string `json:"emotion"`
	Sender  string `json:"sender"`
}

// CompatibilityResult se construye una sola vez, al completar la sesion.
type CompatibilityResult struct {
	Overall        float64              `json:"overall"`
	Personality    float64              `json:"personality"`
	Behavioral     float64              `json:"behavioral"`
	Factors        CompatibilityFactors `json:"factors"`
	Summary        string               `json:"summary"`
	Recommendation string               `json:"recommendation"`
	Highlights     []Highlight          `json:"highlights,omitempty"`
}

// Clone devuelve una copia independiente del resultado.
func (r CompatibilityResult) Clone() CompatibilityResult {
	out := r
	out.Highlights = append([]Highlight(nil), r.Highlights...)
	return out
}

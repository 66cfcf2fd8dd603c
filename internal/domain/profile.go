package domain

import (
	"math"
	"time"
)

const (
	ProfileSourceNeural  = "neural"
	ProfileSourceSocial  = "social"
	ProfileSourceDefault = "default"
	ProfileSourceFused   = "fused"
)

// Vocabularios de estilos derivados (tablas de reglas, no modelos).
const (
	CognitiveAnalyticalComplex = "analytical-complex"
	CognitiveIntuitiveHolistic = "intuitive-holistic"
	CognitiveFocusedDetail     = "focused-detail"
	CognitiveBalancedAdaptive  = "balanced-adaptive"

	AttachmentSecure          = "secure"
	AttachmentAnxious         = "anxious"
	AttachmentAvoidant        = "avoidant"
	AttachmentFearfulAvoidant = "fearful-avoidant"
	AttachmentDeveloping      = "developing"

	CommunicationVerbalAnalytical    = "verbal-analytical"
	CommunicationEmotionalExpressive = "emotional-expressive"
	CommunicationBalanced            = "balanced"

	EmotionalDepthDeepPositive      = "deep-positive"
	EmotionalDepthIntenseProcessing = "intense-processing"
	EmotionalDepthHighlyAware       = "highly-aware"
	EmotionalDepthBalanced          = "balanced"
)

// NeuralFeatures es el conjunto reducido de features escalares que entrega
// la fuente neural. Asimetria y valencia viven en [-1,1]; el resto en [0,1].
type NeuralFeatures struct {
	AlphaAsymmetry    float64 `json:"alpha_asymmetry"`
	AlphaPower        float64 `json:"alpha_power"`
	BetaPower         float64 `json:"beta_power"`
	ThetaPower        float64 `json:"theta_power"`
	GammaCoherence    float64 `json:"gamma_coherence"`
	EmotionalValence  float64 `json:"emotional_valence"`
	EmotionalArousal  float64 `json:"emotional_arousal"`
	EmotionRegulation float64 `json:"emotion_regulation"`
}

// TraitEstimate es la estimacion cruda de una sola fuente (neural o social)
// antes de la fusion. Los cinco rasgos nucleares van normalizados a [0,1].
type TraitEstimate struct {
	Openness           float64         `json:"openness"`
	Conscientiousness  float64         `json:"conscientiousness"`
	Extraversion       float64         `json:"extraversion"`
	Agreeableness      float64         `json:"agreeableness"`
	Neuroticism        float64         `json:"neuroticism"`
	Humor              float64         `json:"humor,omitempty"`
	Values             []string        `json:"values,omitempty"`
	Interests          []string        `json:"interests,omitempty"`
	CommunicationStyle string          `json:"communication_style,omitempty"`
	Neural             *NeuralFeatures `json:"neural,omitempty"`
	Confidence         float64         `json:"confidence"`
	Source             string          `json:"source"`
	CapturedAt         time.Time       `json:"captured_at"`
}

// PersonalityProfile es el perfil fusionado e inmutable con el que se
// inicializa una cita virtual. Todos los valores numericos viven en [0,1].
type PersonalityProfile struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism"`

	Creativity            float64 `json:"creativity"`
	Humor                 float64 `json:"humor"`
	EmotionalIntelligence float64 `json:"emotional_intelligence"`

	CognitiveStyle     string `json:"cognitive_style"`
	AttachmentStyle    string `json:"attachment_style"`
	CommunicationStyle string `json:"communication_style"`
	EmotionalDepth     string `json:"emotional_depth"`

	Values    []string `json:"values,omitempty"`
	Interests []string `json:"interests,omitempty"`

	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	FusedFrom  []string  `json:"fused_from,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Clamp01 acota un valor a [0,1]; NaN e infinitos colapsan a 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampSigned acota un valor a [-1,1]; NaN e infinitos colapsan a 0.
func ClampSigned(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp normaliza in-place todos los rasgos numericos del perfil.
func (p *PersonalityProfile) Clamp() {
	p.Openness = Clamp01(p.Openness)
	p.Conscientiousness = Clamp01(p.Conscientiousness)
	p.Extraversion = Clamp01(p.Extraversion)
	p.Agreeableness = Clamp01(p.Agreeableness)
	p.Neuroticism = Clamp01(p.Neuroticism)
	p.Creativity = Clamp01(p.Creativity)
	p.Humor = Clamp01(p.Humor)
	p.EmotionalIntelligence = Clamp01(p.EmotionalIntelligence)
	p.Confidence = Clamp01(p.Confidence)
}

// CoreTraits devuelve los cinco rasgos nucleares en orden fijo (OCEAN).
func (p PersonalityProfile) CoreTraits() [5]float64 {
	return [5]float64{
		p.Openness,
		p.Conscientiousness,
		p.Extraversion,
		p.Agreeableness,
		p.Neuroticism,
	}
}

// SignalSample es la captura cruda que entrega la cabina EEG: features ya
// reducidas mas metadatos de calidad de señal.
type SignalSample struct {
	UserID          string         `json:"user_id"`
	SampleRate      int            `json:"sample_rate"`
	DurationSeconds float64        `json:"duration_seconds"`
	Features        NeuralFeatures `json:"features"`
	Quality         float64        `json:"quality"`
	CapturedAt      time.Time      `json:"captured_at"`
}

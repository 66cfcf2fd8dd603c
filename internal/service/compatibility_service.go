package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"mofo-asi/internal/domain"
	"mofo-asi/internal/events"
)

// Pesos del puntaje de personalidad. Suman 1.
const (
	weightTraits        = 0.30
	weightValues        = 0.25
	weightCognitive     = 0.20
	weightAttachment    = 0.15
	weightCommunication = 0.10
)

// CompatibilityService calcula compatibilidad de pareja por reglas fijas.
// Todo es determinista: mismos perfiles y mismo transcript, mismo resultado.
type CompatibilityService struct {
	logger *zap.Logger
}

func NewCompatibilityService(logger *zap.Logger) *CompatibilityService {
	return &CompatibilityService{logger: logger}
}

// PersonalityCompatibility devuelve la afinidad de perfiles en [0,1].
func (s *CompatibilityService) PersonalityCompatibility(a, b domain.PersonalityProfile) float64 {
	score := traitScore(a, b)*weightTraits +
		valueOverlap(a.Values, b.Values)*weightValues +
		cognitivePairScore(a.CognitiveStyle, b.CognitiveStyle)*weightCognitive +
		attachmentPairScore(a.AttachmentStyle, b.AttachmentStyle)*weightAttachment +
		communicationPairScore(a.CommunicationStyle, b.CommunicationStyle)*weightCommunication
	return domain.Clamp01(score)
}

// traitScore premia similitud en apertura, responsabilidad y amabilidad.
// La extraversion premia la diferencia moderada: dos dominantes o dos
// reservados puntuan peor que un par balanceado.
func traitScore(a, b domain.PersonalityProfile) float64 {
	simO := 1 - math.Abs(a.Openness-b.Openness)
	simC := 1 - math.Abs(a.Conscientiousness-b.Conscientiousness)
	simA := 1 - math.Abs(a.Agreeableness-b.Agreeableness)

	extraDiff := math.Abs(a.Extraversion - b.Extraversion)
	extraComp := 1 - math.Abs(extraDiff-0.3)/0.7

	return domain.Clamp01((simO + simC + simA + extraComp) / 4)
}

// valueOverlap es la interseccion de valores nucleares sobre el conjunto
// mayor. Perfiles sin valores declarados puntuan neutro.
func valueOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	shared := 0
	for _, v := range b {
		if _, ok := set[v]; ok {
			shared++
		}
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return float64(shared) / float64(larger)
}

func cognitivePairScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0.5
	}
	if a == b {
		return 0.9
	}
	// Analiticos y holisticos se complementan.
	if pairIs(a, b, domain.CognitiveAnalyticalComplex, domain.CognitiveIntuitiveHolistic) {
		return 1.0
	}
	if a == domain.CognitiveBalancedAdaptive || b == domain.CognitiveBalancedAdaptive {
		return 0.7
	}
	return 0.5
}

func attachmentPairScore(a, b string) float64 {
	switch {
	case a == "" || b == "" || a == domain.AttachmentDeveloping || b == domain.AttachmentDeveloping:
		return 0.5
	case a == domain.AttachmentSecure && b == domain.AttachmentSecure:
		return 1.0
	case a == domain.AttachmentSecure || b == domain.AttachmentSecure:
		return 0.8
	case pairIs(a, b, domain.AttachmentAnxious, domain.AttachmentAvoidant):
		return 0.2
	case a == b:
		return 0.6
	default:
		return 0.5
	}
}

func communicationPairScore(a, b string) float64 {
	switch {
	case a == "" || b == "":
		return 0.5
	case a == b:
		return 1.0
	case a == domain.CommunicationBalanced || b == domain.CommunicationBalanced:
		return 0.7
	default:
		return 0.4
	}
}

func pairIs(a, b, x, y string) bool {
	return (a == x && b == y) || (a == y && b == x)
}

// SessionCompatibility construye el resultado final de una cita combinando
// afinidad de personalidad (0.6) con lo observado en la conversacion (0.4).
func (s *CompatibilityService) SessionCompatibility(session domain.DatingSession, analysis ConversationAnalysis) domain.CompatibilityResult {
	personality := s.PersonalityCompatibility(session.ParticipantA.Profile, session.ParticipantB.Profile)

	turns := float64(len(session.Conversation))
	behavioral := analysis.EngagementScore*0.4 +
		analysis.EmotionalAlignment*0.3 +
		math.Min(turns/30, 1)*0.3

	overall := personality*0.6 + behavioral*0.4

	result := domain.CompatibilityResult{
		Overall:     overall,
		Personality: personality,
		Behavioral:  behavioral,
		Factors: domain.CompatibilityFactors{
			Engagement:         analysis.EngagementScore,
			EmotionalAlignment: analysis.EmotionalAlignment,
			ConversationFlow:   math.Min(turns/20, 1),
			ResponseQuality:    domain.Clamp01(analysis.AvgResponseLength / 100),
		},
		Recommendation: recommendationFor(overall),
		Highlights:     extractHighlights(session.Conversation),
	}
	result.Summary = buildSummary(session, result)
	return result
}

func recommendationFor(overall float64) string {
	switch {
	case overall > 0.75:
		return domain.RecommendationStrongMatch
	case overall > 0.6:
		return domain.RecommendationGoodPotential
	case overall > 0.4:
		return domain.RecommendationSomeCompatibility
	default:
		return domain.RecommendationLimitedCompatibility
	}
}

// extractHighlights rescata hasta 3 momentos memorables: mensajes alegres,
// exclamativos o largos, truncados a 100 caracteres.
func extractHighlights(turns []domain.ConversationTurn) []domain.Highlight {
	var out []domain.Highlight
	for _, t := range turns {
		if t.Emotion != domain.EmotionJoy && !strings.Contains(t.Content, "!") && len(t.Content) <= 100 {
			continue
		}
		content := truncateRunes(t.Content, 100)
		out = append(out, domain.Highlight{Content: content, Emotion: t.Emotion, Sender: t.Sender})
		if len(out) == 3 {
			break
		}
	}
	return out
}

// truncateRunes corta en un limite de bytes sin partir runas multibyte.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func buildSummary(session domain.DatingSession, r domain.CompatibilityResult) string {
	level := "limited"
	if r.Overall > 0.7 {
		level = "strong"
	} else if r.Overall > 0.5 {
		level = "moderate"
	}

	engagement := "Moderate engagement"
	if r.Factors.Engagement > 0.7 {
		engagement = "Highly engaged"
	}
	connection := "Different emotional styles"
	if r.Factors.EmotionalAlignment > 0.6 {
		connection = "Good emotional sync"
	}

	return fmt.Sprintf(
		"Virtual date between %s and %s showed %s compatibility (%d%%). "+
			"Conversation quality: %s. Emotional connection: %s. "+
			"%d messages exchanged, %d%% personality match. The conversation showed %s.",
		session.ParticipantA.UserID,
		session.ParticipantB.UserID,
		level,
		int(math.Round(r.Overall*100)),
		engagement,
		connection,
		len(session.Conversation),
		int(math.Round(r.Personality*100)),
		describeDynamic(session.Conversation),
	)
}

func describeDynamic(turns []domain.ConversationTurn) string {
	if len(turns) == 0 {
		return "no exchange at all"
	}
	total := 0
	for _, t := range turns {
		total += len(t.Content)
	}
	avgLen := float64(total) / float64(len(turns))

	switch {
	case avgLen > 80 && len(turns) > 20:
		return "deep, engaging discussions"
	case len(turns) > 30:
		return "good back-and-forth energy"
	case avgLen < 30:
		return "brief, surface-level exchanges"
	default:
		return "balanced conversation"
	}
}

// RankCandidates ordena candidatos por afinidad de personalidad con el
// perfil dado, de mayor a menor. Empates se resuelven por user id para
// mantener el orden estable.
func (s *CompatibilityService) RankCandidates(profile domain.PersonalityProfile, candidates []domain.Participant) []events.ScoredMatch {
	matches := make([]events.ScoredMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, events.ScoredMatch{
			UserID: c.UserID,
			Score:  s.PersonalityCompatibility(profile, c.Profile),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].UserID < matches[j].UserID
	})
	return matches
}

package service

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"

	"mofo-asi/internal/domain"
)

func balancedPair() (domain.PersonalityProfile, domain.PersonalityProfile) {
	a := domain.PersonalityProfile{
		Openness:           0.8,
		Conscientiousness:  0.6,
		Extraversion:       0.6,
		Agreeableness:      0.7,
		Neuroticism:        0.3,
		Values:             []string{"growth", "connection"},
		CognitiveStyle:     domain.CognitiveBalancedAdaptive,
		AttachmentStyle:    domain.AttachmentSecure,
		CommunicationStyle: domain.CommunicationBalanced,
	}
	b := a
	b.Openness = 0.75
	b.Extraversion = 0.55
	b.Agreeableness = 0.72
	b.Values = []string{"growth", "connection"}
	return a, b
}

func TestPersonalityCompatibilityAcotada(t *testing.T) {
	s := NewCompatibilityService(zap.NewNop())

	extremes := []domain.PersonalityProfile{
		{},
		{Openness: 1, Conscientiousness: 1, Extraversion: 1, Agreeableness: 1, Neuroticism: 1},
		{Openness: 0.5, AttachmentStyle: domain.AttachmentAnxious},
	}
	for i, a := range extremes {
		for j, b := range extremes {
			got := s.PersonalityCompatibility(a, b)
			if got < 0 || got > 1 {
				t.Fatalf("compatibilidad fuera de rango para par %d/%d: %v", i, j, got)
			}
		}
	}
}

func TestAnsiosoMasEvitativoPenaliza(t *testing.T) {
	s := NewCompatibilityService(zap.NewNop())
	a, b := balancedPair()

	secure := s.PersonalityCompatibility(a, b)

	a.AttachmentStyle = domain.AttachmentAnxious
	b.AttachmentStyle = domain.AttachmentAvoidant
	penalized := s.PersonalityCompatibility(a, b)

	if penalized >= secure {
		t.Fatalf("par ansioso+evitativo (%v) deberia puntuar menos que par seguro (%v)", penalized, secure)
	}
}

func balancedTranscript() []domain.ConversationTurn {
	emotions := []string{
		domain.EmotionJoy, domain.EmotionCurious, domain.EmotionLove,
		domain.EmotionGrateful, domain.EmotionNeutral, domain.EmotionAffectionate,
	}
	var turns []domain.ConversationTurn
	for i := 0; i < 20; i++ {
		content := strings.Repeat("x", 90)
		if i%4 == 0 {
			content = strings.Repeat("x", 89) + "?"
		}
		turns = append(turns, domain.ConversationTurn{
			Sender:  "agent-a",
			Content: content,
			Emotion: emotions[i%len(emotions)],
		})
	}
	return turns
}

func TestSessionCompatibilityMatchBalanceado(t *testing.T) {
	s := NewCompatibilityService(zap.NewNop())
	a, b := balancedPair()

	session := domain.DatingSession{
		ID:           "s1",
		ParticipantA: domain.Participant{UserID: "ana", Profile: a},
		ParticipantB: domain.Participant{UserID: "bruno", Profile: b},
		Conversation: balancedTranscript(),
	}
	analysis := AnalyzeConversation(session.Conversation)

	result := s.SessionCompatibility(session, analysis)

	if result.Overall < 0.6 || result.Overall > 0.85 {
		t.Fatalf("overall = %v, se esperaba en [0.6, 0.85]", result.Overall)
	}
	if result.Recommendation != domain.RecommendationGoodPotential &&
		result.Recommendation != domain.RecommendationStrongMatch {
		t.Fatalf("recommendation = %q", result.Recommendation)
	}
	if result.Summary == "" {
		t.Fatalf("summary vacio")
	}
}

func TestSessionCompatibilityDescuentaSesionCorta(t *testing.T) {
	s := NewCompatibilityService(zap.NewNop())
	a, b := balancedPair()

	session := domain.DatingSession{
		ParticipantA: domain.Participant{UserID: "ana", Profile: a},
		ParticipantB: domain.Participant{UserID: "bruno", Profile: b},
		Conversation: []domain.ConversationTurn{
			{Content: "hola como va", Emotion: domain.EmotionNeutral},
			{Content: "bien gracias x", Emotion: domain.EmotionNeutral},
			{Content: "que bueno oir", Emotion: domain.EmotionNeutral},
			{Content: "si todo bien", Emotion: domain.EmotionNeutral},
		},
	}
	analysis := AnalyzeConversation(session.Conversation)

	result := s.SessionCompatibility(session, analysis)

	if result.Behavioral >= 0.3 {
		t.Fatalf("behavioral = %v, se esperaba < 0.3 en sesion corta y plana", result.Behavioral)
	}
	if result.Overall >= result.Personality {
		t.Fatalf("overall (%v) deberia quedar descontado frente a personality (%v)", result.Overall, result.Personality)
	}
}

func TestSessionCompatibilityDeterminista(t *testing.T) {
	s := NewCompatibilityService(zap.NewNop())
	a, b := balancedPair()

	session := domain.DatingSession{
		ParticipantA: domain.Participant{UserID: "ana", Profile: a},
		ParticipantB: domain.Participant{UserID: "bruno", Profile: b},
		Conversation: balancedTranscript(),
	}
	analysis := AnalyzeConversation(session.Conversation)

	r1 := s.SessionCompatibility(session, analysis)
	r2 := s.SessionCompatibility(session, analysis)
	if !reflect.DeepEqual(r1, r2) {
		t.Fatalf("dos corridas difieren:\n%+v\n%+v", r1, r2)
	}
}

func TestExtractHighlightsTomaMomentosMemorables(t *testing.T) {
	s := NewCompatibilityService(zap.NewNop())
	a, b := balancedPair()

	long := strings.Repeat("y", 150)
	session := domain.DatingSession{
		ParticipantA: domain.Participant{UserID: "ana", Profile: a},
		ParticipantB: domain.Participant{UserID: "bruno", Profile: b},
		Conversation: []domain.ConversationTurn{
			{Content: "nada especial aqui", Emotion: domain.EmotionNeutral},
			{Content: "this is amazing!", Emotion: domain.EmotionJoy, Sender: "agent-a"},
			{Content: long, Emotion: domain.EmotionNeutral, Sender: "agent-b"},
			{Content: "wow!", Emotion: domain.EmotionNeutral, Sender: "agent-a"},
			{Content: "another great one!", Emotion: domain.EmotionJoy, Sender: "agent-b"},
		},
	}
	result := s.SessionCompatibility(session, AnalyzeConversation(session.Conversation))

	if len(result.Highlights) != 3 {
		t.Fatalf("highlights = %d, se esperaban 3", len(result.Highlights))
	}
	if len(result.Highlights[1].Content) != 100 {
		t.Fatalf("highlight largo no truncado a 100: %d", len(result.Highlights[1].Content))
	}
}

func TestExtractHighlightsNoParteRunasAlTruncar(t *testing.T) {
	// 99 bytes ASCII y luego runas de 2 bytes: el byte 100 cae en mitad
	// de una runa y el corte debe retroceder al borde anterior.
	content := strings.Repeat("x", 99) + strings.Repeat("ñ", 30)
	turns := []domain.ConversationTurn{
		{Content: content, Emotion: domain.EmotionJoy, Sender: "agent-a"},
	}

	highlights := extractHighlights(turns)
	if len(highlights) != 1 {
		t.Fatalf("highlights = %d, se esperaba 1", len(highlights))
	}
	got := highlights[0].Content
	if !utf8.ValidString(got) {
		t.Fatalf("el truncado produjo UTF-8 invalido: %q", got)
	}
	if len(got) != 99 {
		t.Fatalf("corte esperado en 99 bytes, se obtuvo %d", len(got))
	}
}

func TestRankCandidatesOrdenaPorAfinidad(t *testing.T) {
	s := NewCompatibilityService(zap.NewNop())
	a, b := balancedPair()

	distant := domain.PersonalityProfile{
		Openness:        0.1,
		Extraversion:    0.1,
		Agreeableness:   0.1,
		AttachmentStyle: domain.AttachmentAvoidant,
		CognitiveStyle:  domain.CognitiveFocusedDetail,
	}

	matches := s.RankCandidates(a, []domain.Participant{
		{UserID: "lejos", Profile: distant},
		{UserID: "cerca", Profile: b},
	})

	if len(matches) != 2 {
		t.Fatalf("matches = %d", len(matches))
	}
	if matches[0].UserID != "cerca" {
		t.Fatalf("primer match = %q, se esperaba el candidato afin", matches[0].UserID)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("orden no es descendente: %v <= %v", matches[0].Score, matches[1].Score)
	}
}

package service

import (
	"fmt"
	"hash/fnv"

	"mofo-asi/internal/domain"
)

var icebreakers = []string{
	"If you could have dinner with anyone in history, who would it be?",
	"What's the most spontaneous thing you've ever done?",
	"What's your idea of a perfect day?",
	"If you could master any skill instantly, what would it be?",
}

var creativeScenarios = []string{
	"If we were planning an adventure together, where would we go?",
	"Imagine we're co-creating something. What would it be?",
	"If we had to solve a mystery together, what roles would we play?",
}

// GenerateStarters siembra los topicos de una cita a partir de ambos
// perfiles. La eleccion dentro de cada lista se deriva de los ids de los
// participantes: la misma pareja recibe siempre los mismos disparadores.
func GenerateStarters(a, b domain.Participant) []domain.ConversationTopic {
	seed := pairSeed(a.UserID, b.UserID)

	shared := sharedInterests(a.Profile.Interests, b.Profile.Interests)
	sharedTopic := "life"
	if len(shared) > 0 {
		sharedTopic = shared[0]
	}

	return []domain.ConversationTopic{
		{
			Topic:           "icebreaker",
			Prompt:          icebreakers[seed%uint32(len(icebreakers))],
			ExpectedMinutes: 2,
		},
		{
			Topic:           "shared_interest",
			Prompt:          fmt.Sprintf("Let's talk about %s. What draws you to it?", sharedTopic),
			ExpectedMinutes: 5,
		},
		{
			Topic:           "values_exploration",
			Prompt:          "What values are most important to you in life and relationships?",
			ExpectedMinutes: 5,
		},
		{
			Topic:           "creative_scenario",
			Prompt:          creativeScenarios[seed%uint32(len(creativeScenarios))],
			ExpectedMinutes: 3,
		},
	}
}

func pairSeed(a, b string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(a))
	h.Write([]byte{0})
	h.Write([]byte(b))
	return h.Sum32()
}

func sharedInterests(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range b {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

// ConversationStyle clasifica el tono con que un perfil encara la cita.
func ConversationStyle(p domain.PersonalityProfile) string {
	switch {
	case p.Extraversion > 0.7:
		return "enthusiastic"
	case p.Agreeableness > 0.7:
		return "warm"
	case p.Openness > 0.7:
		return "curious"
	default:
		return "balanced"
	}
}

// CommunicationHints sugiere como tratar a un perfil durante la conversacion.
func CommunicationHints(p domain.PersonalityProfile) []string {
	var hints []string
	if p.Extraversion < 0.4 {
		hints = append(hints, "Give them time to think before responding")
	}
	if p.EmotionalIntelligence > 0.7 {
		hints = append(hints, "They appreciate emotional depth")
	}
	if p.Openness > 0.7 {
		hints = append(hints, "They enjoy exploring new ideas")
	}
	return hints
}

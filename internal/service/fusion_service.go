package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mofo-asi/internal/domain"
	"mofo-asi/internal/events"
)

// Pesos neural/social por rasgo nuclear. Asimetricos a proposito: la señal
// neural pesa mas donde el texto social miente facil (neuroticismo) y menos
// donde el texto revela mas (apertura).
var fusionWeights = map[string][2]float64{
	"openness":          {0.40, 0.60},
	"conscientiousness": {0.50, 0.50},
	"extraversion":      {0.55, 0.45},
	"agreeableness":     {0.45, 0.55},
	"neuroticism":       {0.60, 0.40},
}

// FusionService combina estimaciones de distintas fuentes en un perfil
// unico. Nunca falla: entradas ausentes degradan a valores por defecto.
type FusionService struct {
	bus    events.Bus
	logger *zap.Logger
}

func NewFusionService(bus events.Bus, logger *zap.Logger) *FusionService {
	return &FusionService{bus: bus, logger: logger}
}

// Fuse produce el perfil fusionado para un usuario. userID solo se usa para
// el evento de observabilidad.
func (s *FusionService) Fuse(ctx context.Context, userID string, neural, social *domain.TraitEstimate) domain.PersonalityProfile {
	var profile domain.PersonalityProfile

	switch {
	case neural == nil && social == nil:
		profile = defaultProfile()
	case social == nil:
		profile = singleSourceProfile(neural)
	case neural == nil:
		profile = singleSourceProfile(social)
	default:
		profile = fuseBoth(neural, social)
	}

	profile.CreatedAt = time.Now().UTC()
	profile.Clamp()

	s.logger.Info("personality fused",
		zap.String("user_id", userID),
		zap.String("source", profile.Source),
		zap.Float64("confidence", profile.Confidence),
	)
	s.bus.Publish(ctx, events.Event{
		Name: events.EventProfileFused,
		Data: events.ProfileFused{UserID: userID, Profile: profile, FusedFrom: profile.FusedFrom},
	})
	return profile
}

func defaultProfile() domain.PersonalityProfile {
	return domain.PersonalityProfile{
		Openness:              0.5,
		Conscientiousness:     0.5,
		Extraversion:          0.5,
		Agreeableness:         0.5,
		Neuroticism:           0.5,
		Creativity:            0.5,
		Humor:                 0.5,
		EmotionalIntelligence: 0.5,
		CognitiveStyle:        domain.CognitiveBalancedAdaptive,
		AttachmentStyle:       domain.AttachmentDeveloping,
		CommunicationStyle:    domain.CommunicationBalanced,
		EmotionalDepth:        domain.EmotionalDepthBalanced,
		Confidence:            0.1,
		Source:                domain.ProfileSourceDefault,
	}
}

// singleSourceProfile construye el perfil desde una sola fuente con la
// confianza amortiguada: sin contraste cruzado la estimacion vale menos.
func singleSourceProfile(est *domain.TraitEstimate) domain.PersonalityProfile {
	p := defaultProfile()
	p.Openness = est.Openness
	p.Conscientiousness = est.Conscientiousness
	p.Extraversion = est.Extraversion
	p.Agreeableness = est.Agreeableness
	p.Neuroticism = est.Neuroticism
	p.Humor = orDefault(est.Humor, 0.5)
	p.Values = append([]string(nil), est.Values...)
	p.Interests = append([]string(nil), est.Interests...)
	p.Confidence = est.Confidence * 0.8
	p.Source = est.Source
	p.FusedFrom = []string{est.Source}

	if est.Neural != nil {
		p.Creativity = deriveCreativity(est.Neural)
		p.EmotionalIntelligence = deriveEmotionalIntelligence(est.Neural)
		p.CognitiveStyle = deriveCognitiveStyle(est.Neural)
		p.AttachmentStyle = deriveAttachmentStyle(est.Neural)
		p.CommunicationStyle = deriveCommunicationStyle(est.Neural)
		p.EmotionalDepth = deriveEmotionalDepth(est.Neural)
	} else if est.CommunicationStyle != "" {
		p.CommunicationStyle = est.CommunicationStyle
	}
	return p
}

func fuseBoth(neural, social *domain.TraitEstimate) domain.PersonalityProfile {
	weighted := func(trait string, n, s float64) float64 {
		w := fusionWeights[trait]
		return n*w[0] + s*w[1]
	}

	p := domain.PersonalityProfile{
		Openness:          weighted("openness", neural.Openness, social.Openness),
		Conscientiousness: weighted("conscientiousness", neural.Conscientiousness, social.Conscientiousness),
		Extraversion:      weighted("extraversion", neural.Extraversion, social.Extraversion),
		Agreeableness:     weighted("agreeableness", neural.Agreeableness, social.Agreeableness),
		Neuroticism:       weighted("neuroticism", neural.Neuroticism, social.Neuroticism),

		Creativity:            deriveCreativity(neural.Neural),
		Humor:                 orDefault(social.Humor, 0.5),
		EmotionalIntelligence: deriveEmotionalIntelligence(neural.Neural),

		CognitiveStyle:     deriveCognitiveStyle(neural.Neural),
		AttachmentStyle:    deriveAttachmentStyle(neural.Neural),
		CommunicationStyle: deriveCommunicationStyle(neural.Neural),
		EmotionalDepth:     deriveEmotionalDepth(neural.Neural),

		Values:    mergeUnique(social.Values, neural.Values),
		Interests: mergeUnique(social.Interests, neural.Interests),

		// Dos fuentes que coinciden valen mas que cada una por separado.
		Confidence: domain.Clamp01((neural.Confidence+social.Confidence)/2 + 0.1),
		Source:     domain.ProfileSourceFused,
		FusedFrom:  []string{neural.Source, social.Source},
	}
	if social.CommunicationStyle != "" && neural.Neural == nil {
		p.CommunicationStyle = social.CommunicationStyle
	}
	return p
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func mergeUnique(primary, secondary []string) []string {
	seen := make(map[string]struct{}, len(primary)+len(secondary))
	var out []string
	for _, list := range [][]string{primary, secondary} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

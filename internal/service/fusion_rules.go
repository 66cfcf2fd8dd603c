package service

import (
	"mofo-asi/internal/domain"
)

// Tablas de reglas deterministas que derivan rasgos secundarios de las
// features neuronales. Sin señal neural todo degrada a valores neutros.

func deriveEmotionalDepth(f *domain.NeuralFeatures) string {
	if f == nil {
		return domain.EmotionalDepthBalanced
	}
	switch {
	case f.EmotionalValence > 0.6 && f.AlphaPower > 0.4:
		return domain.EmotionalDepthDeepPositive
	case f.EmotionalValence < -0.3 && f.BetaPower > 0.7:
		return domain.EmotionalDepthIntenseProcessing
	case f.GammaCoherence > 0.6:
		return domain.EmotionalDepthHighlyAware
	default:
		return domain.EmotionalDepthBalanced
	}
}

func deriveCognitiveStyle(f *domain.NeuralFeatures) string {
	if f == nil {
		return domain.CognitiveBalancedAdaptive
	}
	switch {
	case f.GammaCoherence > 0.7 && f.BetaPower > 0.6:
		return domain.CognitiveAnalyticalComplex
	case f.AlphaPower > 0.6 && f.GammaCoherence > 0.4:
		return domain.CognitiveIntuitiveHolistic
	case f.EmotionalArousal > 0.75:
		return domain.CognitiveFocusedDetail
	default:
		return domain.CognitiveBalancedAdaptive
	}
}

func deriveAttachmentStyle(f *domain.NeuralFeatures) string {
	if f == nil {
		return domain.AttachmentDeveloping
	}
	switch {
	case f.AlphaAsymmetry > 0.2 && f.EmotionRegulation > 0.6:
		return domain.AttachmentSecure
	case f.EmotionalArousal > 0.7 && f.EmotionRegulation < 0.4:
		return domain.AttachmentAnxious
	case f.AlphaAsymmetry < -0.2 && f.EmotionalArousal < 0.3:
		return domain.AttachmentAvoidant
	default:
		return domain.AttachmentFearfulAvoidant
	}
}

func deriveCommunicationStyle(f *domain.NeuralFeatures) string {
	if f == nil {
		return domain.CommunicationBalanced
	}
	switch {
	case f.GammaCoherence > 0.6:
		return domain.CommunicationVerbalAnalytical
	case f.EmotionalValence > 0.3:
		return domain.CommunicationEmotionalExpressive
	default:
		return domain.CommunicationBalanced
	}
}

func deriveCreativity(f *domain.NeuralFeatures) float64 {
	if f == nil {
		return 0.5
	}
	return domain.Clamp01(0.2 + f.AlphaPower*0.3 + f.GammaCoherence*0.3 + f.ThetaPower*0.2)
}

func deriveEmotionalIntelligence(f *domain.NeuralFeatures) float64 {
	if f == nil {
		return 0.5
	}
	return domain.Clamp01(0.2 + f.EmotionRegulation*0.4 + f.GammaCoherence*0.2 + f.AlphaPower*0.2)
}

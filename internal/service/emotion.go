package service

import (
	"strings"

	"mofo-asi/internal/domain"
)

// DetectEmotion etiqueta un mensaje con heuristicas de palabras clave.
// El orden importa: la primera regla que matchea gana.
func DetectEmotion(text string) string {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "love") || strings.Contains(lower, "wonderful"):
		return domain.EmotionLove
	case strings.Contains(lower, "happy") || strings.Contains(lower, "great"):
		return domain.EmotionJoy
	case strings.Contains(lower, "interesting") || strings.Contains(lower, "?"):
		return domain.EmotionCurious
	case strings.Contains(lower, "thanks") || strings.Contains(lower, "appreciate"):
		return domain.EmotionGrateful
	case strings.Contains(lower, "sad") || strings.Contains(lower, "miss"):
		return domain.EmotionSad
	case strings.Contains(lower, "angry") || strings.Contains(lower, "hate"):
		return domain.EmotionAnger
	case strings.Contains(lower, "sweet") || strings.Contains(lower, "adorable"):
		return domain.EmotionAffectionate
	default:
		return domain.EmotionNeutral
	}
}

// IsFarewell detecta un cierre natural de la conversacion.
func IsFarewell(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "goodbye") ||
		strings.Contains(lower, "nice talking") ||
		strings.Contains(lower, "see you soon")
}

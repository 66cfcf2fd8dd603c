package service

import (
	"math"
	"strings"

	"mofo-asi/internal/domain"
)

// ConversationAnalysis resume la calidad de una conversacion en curso.
type ConversationAnalysis struct {
	EngagementScore    float64 `json:"engagement_score"`
	EmotionalAlignment float64 `json:"emotional_alignment"`
	AvgResponseLength  float64 `json:"avg_response_length"`
	QuestionRatio      float64 `json:"question_ratio"`
	EmotionalVariety   int     `json:"emotional_variety"`
}

// AnalyzeConversation calcula las metricas de calidad. Funcion pura:
// mismo log, mismo resultado, sin efectos.
func AnalyzeConversation(turns []domain.ConversationTurn) ConversationAnalysis {
	if len(turns) == 0 {
		return ConversationAnalysis{}
	}

	totalLen := 0
	questions := 0
	emotions := make(map[string]struct{})
	for _, t := range turns {
		totalLen += len(t.Content)
		if strings.Contains(t.Content, "?") {
			questions++
		}
		emotions[t.Emotion] = struct{}{}
	}

	n := float64(len(turns))
	avgLen := float64(totalLen) / n
	questionRatio := float64(questions) / n
	variety := len(emotions)

	engagement := math.Min(
		(avgLen/100)*0.3+
			(float64(variety)/5)*0.3+
			questionRatio*0.4,
		1,
	)

	return ConversationAnalysis{
		EngagementScore:    engagement,
		EmotionalAlignment: emotionalAlignment(turns),
		AvgResponseLength:  avgLen,
		QuestionRatio:      questionRatio,
		EmotionalVariety:   variety,
	}
}

// emotionalAlignment premia emociones que se espejan entre turnos
// consecutivos. La escala 0.1 por par mantiene bajas las conversaciones
// cortas y monotonas.
func emotionalAlignment(turns []domain.ConversationTurn) float64 {
	score := 0.0
	for i := 1; i < len(turns); i++ {
		if turns[i].Emotion == turns[i-1].Emotion {
			score += 0.1
		}
	}
	return math.Min(score/float64(len(turns)), 1)
}

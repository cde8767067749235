package automation

import (
	"fmt"
	"log"
	"strings"

	"club-crm/internal/models"
)

// Fixed negative-sentiment lexicon (Spanish + English). A message containing
// enough of these escalates to a human regardless of automation level.
var negativeWords = []string{
	"queja",
	"reclamación",
	"reclamacion",
	"denuncia",
	"enfadado",
	"furioso",
	"indignado",
	"inaceptable",
	"vergüenza",
	"verguenza",
	"estafa",
	"robo",
	"horrible",
	"pésimo",
	"pesimo",
	"asco",
	"demanda",
	"abogado",
	"complaint",
	"angry",
	"unacceptable",
	"disgusting",
	"lawyer",
	"sue",
}

// checkEscalation applies the escalation rules in priority order: configured
// keywords first, then the negative-sentiment lexicon, then the consecutive
// AI-reply ceiling. First match wins.
func (e *Engine) checkEscalation(conversationID uint, content string, settings *models.ClubSettings) (bool, string) {
	contentLower := strings.ToLower(content)

	for _, keyword := range settings.EscalationKeywordList() {
		if keyword != "" && strings.Contains(contentLower, strings.ToLower(keyword)) {
			return true, fmt.Sprintf("Keyword de escalación detectado: %q", keyword)
		}
	}

	threshold := settings.EscalationSentimentThreshold
	if threshold <= 0 {
		threshold = 2
	}
	negativeCount := 0
	for _, w := range negativeWords {
		if strings.Contains(contentLower, w) {
			negativeCount++
		}
	}
	if negativeCount >= threshold {
		return true, fmt.Sprintf("Sentimiento negativo detectado (%d indicadores)", negativeCount)
	}

	// Reply streak: scan recent outbound messages newest-first and count
	// AI-generated ones until a human-authored reply breaks the run. The
	// streak is re-derived from history instead of a counter column so it
	// cannot drift.
	maxAutoReplies := settings.MaxAutoReplies
	if maxAutoReplies <= 0 {
		maxAutoReplies = 5
	}

	var recent []models.Message
	err := e.db.
		Where("conversation_id = ? AND direction = ?", conversationID, models.DirectionOutbound).
		Order("timestamp DESC").
		Limit(maxAutoReplies + 1).
		Find(&recent).Error
	if err != nil {
		log.Printf("[AutoReply] Failed to scan reply streak: %v", err)
		return false, ""
	}

	streak := 0
	for _, m := range recent {
		if !m.IsAIGenerated {
			break
		}
		streak++
	}
	if streak >= maxAutoReplies {
		return true, fmt.Sprintf("Límite de %d respuestas automáticas consecutivas alcanzado", maxAutoReplies)
	}

	return false, ""
}

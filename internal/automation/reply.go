package automation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"club-crm/internal/llm"
	"club-crm/internal/models"
)

const demoModeInstruction = `

MODO DEMO ACTIVO:
Estas en modo demostracion. Genera respuestas creativas y realistas como si fueras el asistente de un club de golf real.
Inventa disponibilidad de horarios, precios y detalles que suenen naturales.
Se amable, profesional y muestra las mejores capacidades de respuesta automatica.
Si preguntan por reservas, di que hay disponibilidad y ofrece horarios.
Si preguntan por torneos, menciona los proximos eventos del club.`

// GenerateReply produces a reply suggestion for the conversation's latest
// state. It may legitimately return an empty string: callers treat that as
// "nothing to send", not as an error.
func (e *Engine) GenerateReply(ctx context.Context, conversationID uint) (string, error) {
	var conv models.Conversation
	if err := e.db.Preload("Player").First(&conv, conversationID).Error; err != nil {
		return "", fmt.Errorf("conversation %d not found: %w", conversationID, err)
	}
	if conv.Player == nil {
		return "", fmt.Errorf("conversation %d has no player", conversationID)
	}

	var settings models.ClubSettings
	if err := e.db.First(&settings, 1).Error; err != nil {
		return "", err
	}

	systemPrompt, err := e.buildSystemPrompt(&settings, conv.Player)
	if err != nil {
		return "", err
	}
	if settings.DemoMode {
		systemPrompt += demoModeInstruction
	}

	// Last 20 ledger messages as alternating turns
	var recent []models.Message
	err = e.db.
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Limit(20).
		Find(&recent).Error
	if err != nil {
		return "", err
	}

	turns := make([]llm.Turn, 0, len(recent))
	for _, m := range recent {
		if m.Content == "" {
			continue
		}
		role := "assistant"
		if m.Direction == models.DirectionInbound {
			role = "user"
		}
		content := m.Content
		if m.Type != models.TypeText && m.Type != models.TypeTemplate {
			content = fmt.Sprintf("[%s recibido]", strings.ToLower(m.Type))
		}
		turns = append(turns, llm.Turn{Role: role, Content: content})
	}

	llmCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.now()
	reply, err := e.llm.ChatCompletion(llmCtx, systemPrompt, turns)
	if err != nil {
		return "", err
	}
	durationMs := time.Since(start).Milliseconds()

	// Audit log, non-fatal
	excerpt := reply.Text
	if len(excerpt) > 500 {
		excerpt = excerpt[:500]
	}
	auditErr := e.db.Create(&models.AIAnalysisLog{
		Type:         "DRAFT_GENERATION",
		PlayerID:     conv.PlayerID,
		Model:        reply.Model,
		InputTokens:  reply.InputTokens,
		OutputTokens: reply.OutputTokens,
		DurationMs:   durationMs,
		Result:       excerpt,
	}).Error
	if auditErr != nil {
		log.Printf("[AutoReply] Audit log error: %v", auditErr)
	}

	return reply.Text, nil
}

// buildSystemPrompt assembles club voice, player profile and the upcoming
// tournament digest into the assistant instructions
func (e *Engine) buildSystemPrompt(settings *models.ClubSettings, player *models.Player) (string, error) {
	var langInstruction string
	switch player.PreferredLanguage {
	case "EN":
		langInstruction = "Respond in English."
	case "DE":
		langInstruction = "Respond in German."
	case "FR":
		langInstruction = "Respond in French."
	default:
		langInstruction = "Responde en español."
	}

	var voice strings.Builder
	if settings.VoiceTone != "" {
		fmt.Fprintf(&voice, "\nTono: %s", settings.VoiceTone)
	}
	if settings.VoiceStyle != "" {
		fmt.Fprintf(&voice, "\nEstilo: %s", settings.VoiceStyle)
	}
	if settings.VoiceValues != "" {
		fmt.Fprintf(&voice, "\nValores: %s", settings.VoiceValues)
	}
	if settings.VoiceExamples != "" {
		fmt.Fprintf(&voice, "\nEjemplos de mensajes: %s", settings.VoiceExamples)
	}

	var tournaments []models.Tournament
	err := e.db.
		Where("date >= ? AND status IN ?", e.now(), []string{"DRAFT", "OPEN"}).
		Order("date ASC").
		Limit(5).
		Find(&tournaments).Error
	if err != nil {
		return "", err
	}

	var tournamentInfo strings.Builder
	if len(tournaments) > 0 {
		tournamentInfo.WriteString("\n\nTorneos próximos:")
		for _, t := range tournaments {
			var registered int64
			e.db.Model(&models.TournamentRegistration{}).
				Where("tournament_id = ? AND status IN ?", t.ID, []string{models.RegistrationRegistered, models.RegistrationConfirmed}).
				Count(&registered)
			format := t.Format
			if format == "" {
				format = "N/A"
			}
			fmt.Fprintf(&tournamentInfo, "\n- %s (%s, formato: %s, inscritos: %d", t.Name, t.Date.Format("02/01/2006"), format, registered)
			if t.MaxPlayers != nil {
				fmt.Fprintf(&tournamentInfo, "/%d", *t.MaxPlayers)
			}
			tournamentInfo.WriteString(")")
		}
	}

	var tags []models.PlayerTag
	e.db.Where("player_id = ?", player.ID).Find(&tags)
	tagNames := make([]string, 0, len(tags))
	for _, t := range tags {
		tagNames = append(tagNames, t.Tag)
	}

	var playerInfo strings.Builder
	fmt.Fprintf(&playerInfo, "- Nombre: %s %s", player.FirstName, player.LastName)
	if player.Handicap != nil {
		fmt.Fprintf(&playerInfo, "\n- Handicap: %.1f", *player.Handicap)
	}
	fmt.Fprintf(&playerInfo, "\n- Miembro desde: %s", player.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&playerInfo, "\n- Nivel: %s", player.EngagementLevel)
	if len(tagNames) > 0 {
		fmt.Fprintf(&playerInfo, "\n- Tags: %s", strings.Join(tagNames, ", "))
	}

	var hours string
	if settings.FieldOpenTime != "" {
		hours = fmt.Sprintf("\n- Horario: %s - %s", settings.FieldOpenTime, settings.FieldCloseTime)
	}

	return fmt.Sprintf(`Eres el asistente virtual de %s por WhatsApp. Tu rol es atender a los clientes del club de golf de forma amable, profesional y concisa.

REGLAS IMPORTANTES:
- Mensajes CORTOS (1-3 frases máximo). Es WhatsApp, no un email.
- Sé amable pero directo. No uses lenguaje corporativo excesivo.
- Si no sabes algo con certeza, di que consultarás con el equipo y les responderán pronto.
- NUNCA inventes datos de precios, horarios o disponibilidad si no los tienes.
- Si la consulta es compleja (reclamaciones, cancelaciones, problemas técnicos), indica que un miembro del equipo les atenderá personalmente.
%s
%s

INFORMACIÓN DEL CLUB:
- Nombre: %s%s%s

INFORMACIÓN DEL CLIENTE:
%s`,
		settings.ClubName, langInstruction, voice.String(),
		settings.ClubName, hours, tournamentInfo.String(),
		playerInfo.String()), nil
}

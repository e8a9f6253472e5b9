package chat

import "strings"

const (
	// GenericReply answers any message without a recognized keyword.
	GenericReply = "Gracias por tu mensaje. ¿En qué más puedo ayudarte?"

	// MaintenanceReply is returned when the message mentions failures,
	// predictions or maintenance, steering the user towards the sensor
	// analysis flow.
	MaintenanceReply = "Veo que estás interesado en predicción de fallos. ¿Te gustaría que analice algunos datos de sensores para predecir posibles fallos?"
)

var replyKeywords = []string{"fallo", "predicción", "mantenimiento"}

// SynthesizeReply maps a user message to the bot's canned response. Pure and
// deterministic: a case-insensitive substring match against the keyword set
// selects the maintenance prompt, anything else gets the generic reply.
func SynthesizeReply(text string) string {
	lowered := strings.ToLower(text)
	for _, keyword := range replyKeywords {
		if strings.Contains(lowered, keyword) {
			return MaintenanceReply
		}
	}
	return GenericReply
}

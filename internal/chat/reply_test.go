package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynthesizeReply(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"generic greeting", "hola, ¿cómo estás?", GenericReply},
		{"empty-ish text", "   ", GenericReply},
		{"fallo keyword", "creo que hay un fallo en la línea", MaintenanceReply},
		{"fallo uppercase", "FALLO CRÍTICO", MaintenanceReply},
		{"fallo mixed case", "FaLLo detectado", MaintenanceReply},
		{"prediccion keyword", "quiero una predicción", MaintenanceReply},
		{"prediccion uppercase accent", "PREDICCIÓN urgente", MaintenanceReply},
		{"mantenimiento keyword", "toca mantenimiento preventivo", MaintenanceReply},
		{"keyword inside word", "los fallos se repiten", MaintenanceReply},
		{"unaccented prediccion misses", "necesito una prediccion", GenericReply},
		{"unicode noise", "señal 🌡️ rara en el sensor", GenericReply},
		{"long text with keyword", strings.Repeat("datos ", 500) + "mantenimiento", MaintenanceReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SynthesizeReply(tt.text))
		})
	}
}

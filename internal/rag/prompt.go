package rag

import (
	"fmt"
	"strings"
)

// NoEvidenceAnswer is the fixed refusal returned when retrieval finds no
// evidence above the confidence threshold. The orchestrator persists it as
// the assistant turn instead of calling the generation model.
const NoEvidenceAnswer = "No conozco esa respuesta con la información disponible en mi base de conocimientos de SaludPlus."

// SystemPrompt is the fixed safety preamble for grounded answers. The model
// must answer only from the supplied context and fall back to the refusal
// sentence when the context is insufficient.
const SystemPrompt = `Sos un asistente de la obra social SaludPlus.
Reglas estrictas:
- Respondé solo con la información provista en el CONTEXTO.
- Si el contexto no alcanza para responder con seguridad, decí: 'No conozco esa respuesta.'
- No inventes datos, no especules.
- Dominio: cobertura, planes, turnos, autorizaciones, prestadores, contactos de SaludPlus.
- Sé claro y conciso. Si corresponde, mencioná la fuente (p.ej.: 'Según la FAQ SaludPlus').`

// promptInstruction closes the user prompt; it repeats the grounding rule so
// it survives context truncation at the end of the window.
const promptInstruction = "INSTRUCCIÓN: Usá únicamente el CONTEXTO para responder. Si no alcanza, decí 'No conozco esa respuesta.'"

// AssemblePrompt builds the grounding prompt for a question and its
// evidence. Hits are numbered from 1 in the order received; the assembler
// never re-sorts, so citation numbers are stable for identical input
// ordering. Ordering is the Retriever's responsibility.
func AssemblePrompt(question string, hits []Hit) (system, user string) {
	var b strings.Builder

	b.WriteString("CONTEXTO (relevante):\n")
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] Fuente: %s\n%s\n", i+1, h.Title, h.Content)
	}

	b.WriteString("\nPREGUNTA:\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(promptInstruction)

	return SystemPrompt, b.String()
}

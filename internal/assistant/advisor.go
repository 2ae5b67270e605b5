package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jomosautsem/lex/pkg/logger"
	"github.com/jomosautsem/lex/pkg/sanitize"
)

const (
	// NoAnswer replaces an empty reply.
	NoAnswer = "No se pudo generar una respuesta."
	// Unreachable replaces any generator failure.
	Unreachable = "Error al conectar con el asistente jurídico."
)

const persona = `Eres un asistente legal experto y formal llamado 'LexAI'.
Tu objetivo es ayudar a abogados y clientes a entender términos jurídicos,
redactar borradores de cláusulas y resumir estados de casos.
Mantén un tono profesional, serio y ético.
Responde siempre en Español.`

// Advisor turns a query into a reply. It never returns an error: failures
// become the Unreachable text and are reported.
type Advisor struct {
	gen TextGenerator
	rep logger.Reporter
}

func NewAdvisor(gen TextGenerator, rep logger.Reporter) *Advisor {
	if rep == nil {
		rep = logger.Nop{}
	}
	return &Advisor{gen: gen, rep: rep}
}

// Prompt prefixes the optional case context to the query.
func Prompt(query, caseContext string) string {
	if strings.TrimSpace(caseContext) == "" {
		return query
	}
	return fmt.Sprintf("Contexto del caso: %s\n\nConsulta del usuario: %s", caseContext, query)
}

func (a *Advisor) GetAdvice(ctx context.Context, query, caseContext string) string {
	reply, err := a.gen.GenerateText(ctx, persona, Prompt(query, caseContext))
	if err != nil {
		a.rep.Report("assistant.generate", err, zap.String("query", sanitize.Summary(sanitize.RedactPII(query), 80)))
		return Unreachable
	}
	if strings.TrimSpace(reply) == "" {
		return NoAnswer
	}
	return reply
}

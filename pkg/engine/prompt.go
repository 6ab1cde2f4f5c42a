package engine

import "fmt"

// DefaultSystemPrompt instructs the model to answer only from the supplied
// documents, inside a <response> tag.
const DefaultSystemPrompt = "Il tuo compito è rispondere alle domande dell'utente (tag <question>...</question>) " +
	"utilizzando i soli documenti caricati in formato vettoriale. " +
	"Analizza i documenti e ritorna la risposta alla domanda dell'utente all'interno di un tag html <response> " +
	"senza includere il link al documento correlato. " +
	"Linee guida: - Sii breve e schematico. - Usa la terminologia dei documenti. " +
	"- Non includere tecnologie non menzionate nei documenti. " +
	"Esempio: <question>Quale strumento posso utilizzare per produrre eventi di test su kafka?</question> " +
	"<response>Anemoi è il building block per generare eventi su kafka topic</response> Si inizia!"

// UserMessage renders the user turn sent to the generator.
func UserMessage(context, question string) string {
	return fmt.Sprintf("Contesto: %s\n\nDomanda: %s", context, question)
}

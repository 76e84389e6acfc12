package rag

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are MediSage, a medical assistant for medication questions.

IMPORTANT RULES:
- Answer ONLY based on provided leaflet fragments
- DO NOT make up information not present in the fragments
- If information is not in the fragments, state this clearly
- Always recommend consulting a doctor or pharmacist when in doubt
- Be specific and precise`

const fragmentDelimiter = "\n\n---\n\n"

// buildUserPrompt assembles the generation request body: the question plus
// every retrieved fragment labeled with drug, section and score, in rank
// order. Byte-identical output for identical inputs.
func buildUserPrompt(question string, results []RetrievalResult) string {
	parts := make([]string, 0, len(results))
	for i, res := range results {
		parts = append(parts, fmt.Sprintf(
			"Fragment %d (drug: %s, section: %s, score: %.3f):\n%s",
			i+1,
			res.Fragment.DrugName,
			res.Fragment.Section,
			res.Score,
			res.Fragment.Text,
		))
	}

	var b strings.Builder
	b.WriteString("User question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nAvailable leaflet fragments:\n\n")
	b.WriteString(strings.Join(parts, fragmentDelimiter))
	b.WriteString("\n\nAnswer the user's question based on the above fragments. ")
	b.WriteString("If the answer is in the fragments, provide it clearly. ")
	b.WriteString("If there's insufficient information, say so.")
	return b.String()
}

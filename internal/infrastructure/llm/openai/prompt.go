package openai

import "fmt"

const answerSystemPrompt = `You are a careful contract analyst.
Answer the user's question using only the contract text provided in the user message.
Do not rely on outside knowledge or assumptions about typical contracts.
If the contract does not address the question, say explicitly that the contract does not address it.`

func buildAnswerMessages(contractText, question string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Contract:\n\n%s\n\nQuestion: %s", contractText, question)},
	}
}

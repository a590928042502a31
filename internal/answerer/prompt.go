package answerer

import (
	"fmt"
	"strings"

	"github.com/dshills/repoctx-mcp/pkg/types"
)

// groundingSystemPrompt instructs the model to answer only from the
// provided snippets
const groundingSystemPrompt = `You are an AI assistant helping developers understand a codebase. Your role is to provide accurate, helpful answers about the code based on the provided context.

IMPORTANT INSTRUCTIONS:
1. Base your answers ONLY on the provided code snippets and context
2. If the context doesn't contain enough information to answer the question, say so clearly
3. Always reference specific files and line numbers when discussing code
4. Provide practical, actionable guidance for developers
5. Use clear, concise language appropriate for software developers
6. When explaining code, focus on what it does, how it works, and how it fits into the larger system
7. If you see patterns or architectural decisions, explain them
8. Suggest next steps or related areas to explore when helpful

FORMAT YOUR RESPONSE:
- Start with a direct answer to the question
- Provide specific details with file references
- End with practical next steps if applicable

Remember: You are helping a developer understand and navigate this codebase effectively.`

// noContextMessage is used when retrieval returns nothing
const noContextMessage = "No relevant code found in the codebase."

// buildContext formats retrieved chunks into a numbered context block
func buildContext(results []types.SearchResult) string {
	return formatChunks(results, "Code Snippet", noContextMessage)
}

// formatChunks renders each chunk with its location and a fenced code block
func formatChunks(results []types.SearchResult, label, emptyMessage string) string {
	if len(results) == 0 {
		return emptyMessage
	}

	parts := make([]string, 0, len(results))
	for i, r := range results {
		chunk := r.Chunk
		parts = append(parts, fmt.Sprintf(
			"%s %d:\nFile: %s (lines %d-%d)\nLanguage: %s\nType: %s\n\n```%s\n%s\n```",
			label, i+1, chunk.FilePath, chunk.StartLine, chunk.EndLine,
			chunk.Language, chunk.ChunkType, chunk.Language, chunk.Content))
	}
	return strings.Join(parts, "\n\n")
}

// buildUserPrompt combines the question with the retrieved context
func buildUserPrompt(question, context string) string {
	return fmt.Sprintf(`Question: %s

Relevant Code Context:
%s

Please provide a helpful answer based on the code context above.`, question, context)
}

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/models"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
)

// NoBooksResponse answers a library question when nothing has been uploaded.
const NoBooksResponse = "You don't have any books in your library yet. Upload some books to get started!"

// LibrarySystemPrompt lists the library and asks for [[Title]] references.
func LibrarySystemPrompt(books []*models.Book) string {
	lines := make([]string, len(books))
	for i, b := range books {
		lines[i] = fmt.Sprintf("- %s by %s", b.Title, b.Author)
	}

	var sb strings.Builder
	sb.WriteString("You are a helpful library assistant. The user has the following books in their library:\n")
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n\nYou can help users find books, provide summaries, and answer questions about their library. \n")
	sb.WriteString("When mentioning a book, wrap its title in double square brackets like this: [[Book Title]].\n")
	sb.WriteString("If a user asks about a specific book, mention it by name and provide relevant information.\n")
	sb.WriteString("If they ask about multiple books, list the relevant books and their connections.\n")
	sb.WriteString("Always be concise and direct in your responses.\n")
	sb.WriteString("Only mention books that are in the user's library.")
	return sb.String()
}

// BookSystemPrompt scopes the assistant to a single book.
func BookSystemPrompt(book *models.Book) string {
	return fmt.Sprintf("You are a helpful assistant answering questions about the book \"%s\" by %s. \n", book.Title, book.Author) +
		"Use the following context to answer the user's questions. If the answer cannot be found in the context, say so.\n" +
		"Always be concise and direct in your responses."
}

// QAPipeline is responsible for generating an answer from a question and its context.
type QAPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewQAPipeline creates a new QAPipeline.
func NewQAPipeline(llm interfaces.LLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		llm: llm,
		log: log,
	}
}

// Run sends one completion request and returns the answer text.
func (p *QAPipeline) Run(ctx context.Context, systemPrompt, question, contextText string) (string, error) {
	p.log.Info(fmt.Sprintf("Sending question to LLM with %d bytes of context", len(contextText)))

	answer, err := p.llm.Complete(ctx, systemPrompt, question, contextText)
	if err != nil {
		p.log.WithErr("completion", err).Error("LLM failed to generate answer")
		return "", err
	}

	p.log.Info("Successfully generated answer from LLM.")
	return answer, nil
}

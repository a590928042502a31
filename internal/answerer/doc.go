// Package answerer generates natural-language answers grounded in retrieved
// code.
//
// The pipeline mirrors retrieval-augmented generation: a question is
// embedded and searched, the top chunks are formatted into a context block
// with file paths and line numbers, and a chat model answers from that
// context only. Every answer carries source references and a confidence
// score derived from retrieval quality.
//
// # Basic Usage
//
//	chat, err := answerer.NewChatFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	a := answerer.New(search, chat)
//
//	resp, err := a.Answer(ctx, "how does authentication work", answerer.AnswerOptions{
//	    RepoID: repo.ID,
//	    TopK:   5,
//	})
//
// # Chat Providers
//
// Azure OpenAI is selected when AZURE_OPENAI_API_KEY and
// AZURE_OPENAI_CHAT_DEPLOYMENT are set; otherwise OPENAI_API_KEY selects the
// OpenAI API. API keys and the Azure endpoint are shared with the embedder
// configuration.
//
// # Onboarding
//
// WhereDoIStart assembles a repository overview by probing for entry points,
// configuration, data models, and documentation, then asks the model for a
// structured orientation answer with a concrete first file to read.
package answerer

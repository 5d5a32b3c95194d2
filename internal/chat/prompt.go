package chat

import (
	"fmt"
	"time"

	"knowledgeagent/internal/models"
)

const baseSystemPrompt = `You are the knowledge assistant for %s, speaking with %s (%s).
The current UTC time is %s.

You answer questions using only the tools available to you. Never invent
facts about documents you have not retrieved. When a tool returns no
accessible results, say so plainly instead of guessing.`

const ragToolsPrompt = `You have a knowledge_search tool that retrieves indexed document chunks
relevant to a query, already filtered to what this user can access. Call it
before answering any question that could be grounded in site content. If
read_file_content is useful for a specific file a search result points to,
use it to pull more context.`

const kqlToolsPrompt = `You have a sharepoint_search tool that runs a keyword search against the
current site's document library, and a read_file_content tool to pull the
full text of a specific result. Use sharepoint_search first, then
read_file_content on whichever hits look relevant.`

const closingPrompt = `When you answer from retrieved content, hedge appropriately — say "according
to" or "based on" the source rather than asserting facts as your own
knowledge. Quote relevant passages verbatim rather than paraphrasing numbers
or named entities. Always cite the webUrl of any document you draw from, so
the person you're talking to can open the source themselves.`

// buildSystemPrompt assembles the three-part system prompt for one chat
// request: a base block naming the user and site, a mode-specific tools
// block, and a closing block describing citation and hedging behavior.
func buildSystemPrompt(user models.DelegatedUser, chatCtx models.ChatContext, mode models.SearchMode) string {
	base := fmt.Sprintf(baseSystemPrompt, chatCtx.SiteURL, user.Name, user.Email, time.Now().UTC().Format(time.RFC3339))

	toolsBlock := kqlToolsPrompt
	if mode == models.SearchModeRAG {
		toolsBlock = ragToolsPrompt
	}

	return base + "\n\n" + toolsBlock + "\n\n" + closingPrompt
}

package mcp

import "github.com/mark3labs/mcp-go/mcp"

var askBrandTool = mcp.NewTool("ask_brand",
	mcp.WithDescription("Ask the studio's assistant a question. The answer is grounded in the portfolio knowledge base and lists its sources."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The visitor's question in natural language"),
	),
)

var searchKnowledgeTool = mcp.NewTool("search_knowledge",
	mcp.WithDescription("Rank knowledge base documents by semantic similarity to a query without generating an answer."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 3)"),
	),
	mcp.WithString("source",
		mcp.Description("Only return documents of this kind"),
		mcp.Enum("resume", "profile", "talk", "article", "website-copy", "case-study"),
	),
)

var getDocumentTool = mcp.NewTool("get_document",
	mcp.WithDescription("Get the full text of a knowledge base document by id."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Document id as returned by search_knowledge"),
	),
)

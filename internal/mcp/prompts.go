package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("outline_page",
		mcp.WithPromptDescription("Draft a structured outline on a new page"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Topic or title of the page"),
			mcp.RequiredArgument(),
		),
	), s.handleOutlinePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("task_list",
		mcp.WithPromptDescription("Turn a goal into a checklist of to_do blocks on the active page"),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What needs to get done"),
			mcp.RequiredArgument(),
		),
	), s.handleTaskListPrompt)
}

func (s *Server) handleOutlinePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Outline a page about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Create a page about "%s" and outline it. Follow these steps:

1. Use create_page with the title "%s"; it becomes the active page
2. Add a callout block (create_block type=callout) with a one-sentence summary
3. For each main section add a heading2 block followed by text or bulleted_list blocks
4. Put optional detail in toggle blocks and fill them with add_toggle_child
5. For a section that deserves its own page, create a page block; it creates and links the sub-page

Finish with get_page and check that the blocks read in the intended order; fix it with move_block.`, topic, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleTaskListPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	goal := req.Params.Arguments["goal"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Checklist for: %s", goal),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Break this goal into concrete steps: %s

1. Read the active page with get_page so you do not duplicate existing tasks
2. Add a heading3 block naming the goal
3. Add one to_do block per step, in the order they should be done
4. Mark steps that are already done with set_todo_checked`, goal),
				},
			},
		},
	}, nil
}

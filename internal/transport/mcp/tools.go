package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainartifact "github.com/marcusai/marcus/internal/domain/artifact"
	"github.com/marcusai/marcus/internal/service/coordinator"
)

// RegisterTools registers the nine Coordinator API operations as MCP
// tools. Add a new tool by adding a new AddTool call — server.go never
// changes.
func RegisterTools(s *mcpserver.MCPServer, reg *SessionRegistry, coord *coordinator.Coordinator) {
	s.AddTool(mcpmcp.NewTool("register_agent",
		mcpmcp.WithDescription("Register this agent with a project. Returns the agent_id used in every subsequent call."),
		mcpmcp.WithString("project_id", mcpmcp.Required(), mcpmcp.Description("Project ID")),
		mcpmcp.WithString("name", mcpmcp.Required(), mcpmcp.Description("Human-readable agent name")),
		mcpmcp.WithString("skills", mcpmcp.Description("Comma-separated list of skill labels")),
	), registerAgentHandler(reg, coord))

	s.AddTool(mcpmcp.NewTool("request_next_task",
		mcpmcp.WithDescription("Ask for the next task to work on. Returns no_task_ready with a retry_after if the frontier is empty."),
		mcpmcp.WithString("project_id", mcpmcp.Required(), mcpmcp.Description("Project ID")),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent ID returned by register_agent")),
		mcpmcp.WithString("idempotency_key", mcpmcp.Required(), mcpmcp.Description("Caller-generated key; replays of the same key return the original result")),
	), requestNextTaskHandler(coord))

	s.AddTool(mcpmcp.NewTool("report_task_progress",
		mcpmcp.WithDescription("Report progress on the active assignment. status=completed with progress=100 finishes the task; status=blocked abandons the assignment and moves the task to blocked; status=in_progress renews the lease."),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent ID")),
		mcpmcp.WithString("task_id", mcpmcp.Required(), mcpmcp.Description("Task ID")),
		mcpmcp.WithString("status", mcpmcp.Required(), mcpmcp.Description("One of: in_progress, blocked, completed")),
		mcpmcp.WithString("progress_pct", mcpmcp.Required(), mcpmcp.Description("Progress percentage 0-100")),
		mcpmcp.WithString("message", mcpmcp.Description("Optional free-text progress note")),
	), reportProgressHandler(coord))

	s.AddTool(mcpmcp.NewTool("report_blocker",
		mcpmcp.WithDescription("Report that a task is blocked and get LLM-suggested unblocking actions. Does not change task or assignment state — follow up with report_task_progress(status=blocked) once the task is abandoned."),
		mcpmcp.WithString("project_id", mcpmcp.Required(), mcpmcp.Description("Project ID")),
		mcpmcp.WithString("task_id", mcpmcp.Required(), mcpmcp.Description("Task ID")),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent ID")),
		mcpmcp.WithString("description", mcpmcp.Required(), mcpmcp.Description("Description of what's blocking the task")),
	), reportBlockerHandler(coord))

	s.AddTool(mcpmcp.NewTool("get_task_context",
		mcpmcp.WithDescription("Returns upstream artifacts/decisions and downstream needs assembled for a task."),
		mcpmcp.WithString("project_id", mcpmcp.Required(), mcpmcp.Description("Project ID")),
		mcpmcp.WithString("task_id", mcpmcp.Required(), mcpmcp.Description("Task ID")),
	), getTaskContextHandler(coord))

	s.AddTool(mcpmcp.NewTool("log_decision",
		mcpmcp.WithDescription("Log a decision against a task. Propagated to the tasks it directly affects."),
		mcpmcp.WithString("project_id", mcpmcp.Required(), mcpmcp.Description("Project ID")),
		mcpmcp.WithString("task_id", mcpmcp.Required(), mcpmcp.Description("Task ID")),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent ID")),
		mcpmcp.WithString("text", mcpmcp.Required(), mcpmcp.Description("Decision text")),
	), logDecisionHandler(coord))

	s.AddTool(mcpmcp.NewTool("log_artifact",
		mcpmcp.WithDescription("Log metadata about an artifact an agent produced. Content itself is never stored here, only where to find it."),
		mcpmcp.WithString("project_id", mcpmcp.Required(), mcpmcp.Description("Project ID")),
		mcpmcp.WithString("task_id", mcpmcp.Required(), mcpmcp.Description("Task ID")),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent ID")),
		mcpmcp.WithString("filename", mcpmcp.Required(), mcpmcp.Description("Artifact filename")),
		mcpmcp.WithString("artifact_type", mcpmcp.Required(), mcpmcp.Description("One of: api, design, architecture, specification, documentation, reference, temporary")),
		mcpmcp.WithString("location", mcpmcp.Required(), mcpmcp.Description("Where the artifact can be found")),
		mcpmcp.WithString("description", mcpmcp.Description("Optional free-text description")),
	), logArtifactHandler(coord))

	s.AddTool(mcpmcp.NewTool("get_project_status",
		mcpmcp.WithDescription("Returns a point-in-time rollup: task counts by status, active agent count, stuck assignment count."),
		mcpmcp.WithString("project_id", mcpmcp.Required(), mcpmcp.Description("Project ID")),
	), getProjectStatusHandler(coord))

	s.AddTool(mcpmcp.NewTool("check_board_health",
		mcpmcp.WithDescription("Checks whether the project's bound board provider is reachable and reports the probe's latency."),
		mcpmcp.WithString("project_id", mcpmcp.Required(), mcpmcp.Description("Project ID")),
	), checkBoardHealthHandler(coord))
}

func textResult(v interface{}) *mcpmcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err))
	}
	return mcpmcp.NewToolResultText(string(data))
}

func errResult(err error) *mcpmcp.CallToolResult {
	return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err))
}

func registerAgentHandler(reg *SessionRegistry, coord *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		projectID := mcpmcp.ParseString(req, "project_id", "")
		name := mcpmcp.ParseString(req, "name", "")
		skillsStr := mcpmcp.ParseString(req, "skills", "")

		var skills []string
		if strings.TrimSpace(skillsStr) != "" {
			for _, s := range strings.Split(skillsStr, ",") {
				if s = strings.TrimSpace(s); s != "" {
					skills = append(skills, s)
				}
			}
		}

		a, err := coord.RegisterAgent(ctx, projectID, name, skills)
		if err != nil {
			return errResult(err), nil
		}

		session := mcpserver.ClientSessionFromContext(ctx)
		if session != nil {
			reg.Register(session.SessionID(), a.ID, projectID)
		}

		return textResult(map[string]string{"agent_id": a.ID}), nil
	}
}

func requestNextTaskHandler(coord *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		projectID := mcpmcp.ParseString(req, "project_id", "")
		agentID := mcpmcp.ParseString(req, "agent_id", "")
		idempotencyKey := mcpmcp.ParseString(req, "idempotency_key", "")

		result, err := coord.RequestNextTask(ctx, projectID, agentID, idempotencyKey)
		if err != nil {
			return errResult(err), nil
		}
		return textResult(result), nil
	}
}

func reportProgressHandler(coord *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		agentID := mcpmcp.ParseString(req, "agent_id", "")
		taskID := mcpmcp.ParseString(req, "task_id", "")
		status := mcpmcp.ParseString(req, "status", "")
		message := mcpmcp.ParseString(req, "message", "")
		progressStr := mcpmcp.ParseString(req, "progress_pct", "0")
		progressPct, err := strconv.Atoi(strings.TrimSpace(progressStr))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid progress_pct"), nil
		}

		if err := coord.ReportProgress(ctx, agentID, taskID, status, progressPct, message); err != nil {
			return errResult(err), nil
		}
		return mcpmcp.NewToolResultText(`{"ok":true}`), nil
	}
}

func reportBlockerHandler(coord *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		projectID := mcpmcp.ParseString(req, "project_id", "")
		taskID := mcpmcp.ParseString(req, "task_id", "")
		agentID := mcpmcp.ParseString(req, "agent_id", "")
		description := mcpmcp.ParseString(req, "description", "")

		report, err := coord.ReportBlocker(ctx, projectID, taskID, agentID, description)
		if err != nil {
			return errResult(err), nil
		}
		return textResult(report), nil
	}
}

func getTaskContextHandler(coord *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		projectID := mcpmcp.ParseString(req, "project_id", "")
		taskID := mcpmcp.ParseString(req, "task_id", "")

		result, err := coord.GetTaskContext(ctx, projectID, taskID)
		if err != nil {
			return errResult(err), nil
		}
		return textResult(result), nil
	}
}

func logDecisionHandler(coord *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		projectID := mcpmcp.ParseString(req, "project_id", "")
		taskID := mcpmcp.ParseString(req, "task_id", "")
		agentID := mcpmcp.ParseString(req, "agent_id", "")
		text := mcpmcp.ParseString(req, "text", "")

		if strings.TrimSpace(text) == "" {
			return mcpmcp.NewToolResultText("error: text must not be empty"), nil
		}

		d, err := coord.LogDecision(ctx, projectID, taskID, agentID, text)
		if err != nil {
			return errResult(err), nil
		}
		return textResult(d), nil
	}
}

func logArtifactHandler(coord *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		projectID := mcpmcp.ParseString(req, "project_id", "")
		taskID := mcpmcp.ParseString(req, "task_id", "")
		agentID := mcpmcp.ParseString(req, "agent_id", "")
		filename := mcpmcp.ParseString(req, "filename", "")
		artifactType := mcpmcp.ParseString(req, "artifact_type", "")
		location := mcpmcp.ParseString(req, "location", "")
		description := mcpmcp.ParseString(req, "description", "")

		a, err := coord.LogArtifact(ctx, projectID, taskID, agentID, filename, domainartifact.Type(artifactType), location, description)
		if err != nil {
			return errResult(err), nil
		}
		return textResult(a), nil
	}
}

func getProjectStatusHandler(coord *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		projectID := mcpmcp.ParseString(req, "project_id", "")

		status, err := coord.GetProjectStatus(ctx, projectID)
		if err != nil {
			return errResult(err), nil
		}
		return textResult(status), nil
	}
}

func checkBoardHealthHandler(coord *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		projectID := mcpmcp.ParseString(req, "project_id", "")

		health, err := coord.CheckBoardHealth(ctx, projectID)
		if err != nil {
			return errResult(err), nil
		}
		return textResult(health), nil
	}
}

// Package mcp exposes the work engine as MCP (Model Context Protocol)
// tools for AI coding assistants: goals, tasks, knowledge, quality
// checks, tool execution, and background jobs.
package mcp

import (
	"context"
	"sync"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devman-ai/devman/internal/jobs"
	"github.com/devman-ai/devman/internal/knowledge"
	"github.com/devman-ai/devman/internal/observability"
	"github.com/devman-ai/devman/internal/progress"
	"github.com/devman-ai/devman/internal/quality"
	"github.com/devman-ai/devman/internal/storage"
	"github.com/devman-ai/devman/internal/tools"
	"github.com/devman-ai/devman/internal/work"
	"github.com/devman-ai/devman/pkg/models"
)

// Deps are the engine services the server fronts. Searcher, metrics and
// alerts may be nil when the corresponding subsystem is disabled.
type Deps struct {
	Store     storage.Storage
	Work      *work.Manager
	Knowledge knowledge.Service
	Searcher  *knowledge.HybridSearcher
	Quality   *quality.Engine
	Jobs      *jobs.Manager
	Tracker   *progress.Tracker
	Blockers  *progress.BlockerDetector
	Executor  tools.Executor
	Metrics   *observability.MetricsCalculator
	Alerts    observability.AlertEngine
	Caller    string
}

// Server wraps the engine services and exposes them as MCP tools.
type Server struct {
	server *gomcp.Server
	deps   Deps

	mu          sync.Mutex
	qualityJobs map[models.TaskID]models.JobID
}

// NewServer creates an MCP server over the given services.
func NewServer(deps Deps, version string) *Server {
	if version == "" {
		version = "dev"
	}
	if deps.Caller == "" {
		deps.Caller = "devman"
	}

	s := &Server{
		deps:        deps,
		qualityJobs: make(map[models.TaskID]models.JobID),
	}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "devman", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "goal_create",
		Description: "Create a new goal with a title, description, and optional success criteria.",
	}, s.handleGoalCreate)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "goal_get_progress",
		Description: "Get a goal's progress: completion percentage, completed phases, active tasks, and blockers.",
	}, s.handleGoalGetProgress)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "goal_list",
		Description: "List all goals with their status and progress.",
	}, s.handleGoalList)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_create",
		Description: "Create a new task. The task starts in the created state and must read context and review knowledge before execution.",
	}, s.handleTaskCreate)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_list",
		Description: "List tasks with an optional coarse status filter (idea, queued, active, blocked, review, done, abandoned).",
	}, s.handleTaskList)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_get_guidance",
		Description: "Get guidance for a task: the single next action, missing prerequisites, allowed operations, and task health.",
	}, s.handleTaskGetGuidance)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_read_context",
		Description: "Mark the task's context as read. Required before reviewing knowledge.",
	}, s.handleTaskReadContext)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_review_knowledge",
		Description: "Retrieve knowledge relevant to the task, to be reviewed before execution.",
	}, s.handleTaskReviewKnowledge)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_confirm_knowledge_reviewed",
		Description: "Confirm which knowledge items were reviewed. Requires at least one knowledge id.",
	}, s.handleTaskConfirmKnowledgeReviewed)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_start_execution",
		Description: "Move the task into execution. Requires context read and knowledge reviewed.",
	}, s.handleTaskStartExecution)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_log_work",
		Description: "Append a work event to the task's current work record. Requires the task to be in progress.",
	}, s.handleTaskLogWork)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_finish_work",
		Description: "Close the current round of work. Requires at least one logged work event.",
	}, s.handleTaskFinishWork)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_run_quality_check",
		Description: "Start the task's quality checks as a background job and move the task into quality checking.",
	}, s.handleTaskRunQualityCheck)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_get_quality_result",
		Description: "Get the aggregated result of the task's last quality check run.",
	}, s.handleTaskGetQualityResult)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_confirm_quality_result",
		Description: "Record the quality verdict on the task, completing the quality checking phase.",
	}, s.handleTaskConfirmQualityResult)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_complete",
		Description: "Complete the task. Requires a passed quality check.",
	}, s.handleTaskComplete)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_pause",
		Description: "Pause the task, remembering the state to resume to.",
	}, s.handleTaskPause)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_resume",
		Description: "Resume a paused task to the state it was paused from.",
	}, s.handleTaskResume)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_abandon",
		Description: "Abandon the task with a required reason. Needs the abandon permission.",
	}, s.handleTaskAbandon)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "knowledge_search",
		Description: "Search stored knowledge. Uses hybrid vector search with reranking when available, keyword search otherwise.",
	}, s.handleKnowledgeSearch)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "knowledge_save",
		Description: "Save a knowledge item: a lesson, best practice, code pattern, solution, template, or decision.",
	}, s.handleKnowledgeSave)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "quality_run_check",
		Description: "Run a single stored quality check and return its result.",
	}, s.handleQualityRunCheck)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "tool_exec",
		Description: "Invoke a named external tool with args and env, capturing exit code, stdout, and stderr.",
	}, s.handleToolExec)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "context_get_current",
		Description: "Get the current working context: task counts by status and the active tasks with their progress.",
	}, s.handleContextGetCurrent)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "context_list_blockers",
		Description: "Detect blocked tasks, circular dependencies, and resolution suggestions.",
	}, s.handleContextListBlockers)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "job_get_status",
		Description: "Get a background job's status, progress, and result.",
	}, s.handleJobGetStatus)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "job_cancel",
		Description: "Cancel a pending or running background job.",
	}, s.handleJobCancel)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: tasks created and completed, transitions, quality gates, knowledge usage.",
	}, s.handleGetMetrics)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (paused tasks, stale tasks, long reviews, queue size).",
	}, s.handleGetAlerts)
}

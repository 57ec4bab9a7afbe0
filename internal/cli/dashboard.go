package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/devman-ai/devman/internal/observability"
	"github.com/devman-ai/devman/pkg/models"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive terminal dashboard",
	Long:  "Dashboard shows tasks, metrics, and alerts in a live terminal view. Tab cycles panels, r reloads, q quits.",
	RunE: func(_ *cobra.Command, _ []string) error {
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

const (
	panelTasks = iota
	panelMetrics
	panelAlerts
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int
	taskCounts  map[models.TaskStatus]int
	activeTasks []*models.Task
	metrics     *observability.Metrics
	alerts      []observability.Alert
	loading     bool
	err         error
}

type dashboardDataMsg struct {
	taskCounts  map[models.TaskStatus]int
	activeTasks []*models.Task
	metrics     *observability.Metrics
	alerts      []observability.Alert
	err         error
}

func newDashboardModel() dashboardModel {
	return dashboardModel{loading: true}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadDashboardData
}

func loadDashboardData() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var msg dashboardDataMsg
	tasks, err := Work.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		msg.err = err
		return msg
	}
	msg.taskCounts = make(map[models.TaskStatus]int)
	for _, t := range tasks {
		msg.taskCounts[t.Status]++
		if t.Status == models.StatusActive {
			msg.activeTasks = append(msg.activeTasks, t)
		}
	}

	now := time.Now().UTC()
	if msg.metrics, err = MetricsCalc.Calculate(now.Add(-7*24*time.Hour), now); err != nil {
		msg.err = err
		return msg
	}
	if msg.alerts, err = AlertEngine.Evaluate(); err != nil {
		msg.err = err
	}
	return msg
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
		case "shift+tab":
			m.activePanel = (m.activePanel + panelCount - 1) % panelCount
		case "r":
			m.loading = true
			return m, loadDashboardData
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.taskCounts = msg.taskCounts
		m.activeTasks = msg.activeTasks
		m.metrics = msg.metrics
		m.alerts = msg.alerts
	}
	return m, nil
}

var (
	dashTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	dashPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	dashActivePanelStyle = dashPanelStyle.
				BorderForeground(lipgloss.Color("62"))
	dashHeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dashHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	dashStatusStyles = map[models.TaskStatus]lipgloss.Style{
		models.StatusActive:    lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		models.StatusBlocked:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.StatusReview:    lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		models.StatusQueued:    lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		models.StatusIdea:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		models.StatusDone:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		models.StatusAbandoned: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
	dashSeverityStyles = map[observability.AlertSeverity]lipgloss.Style{
		observability.SeverityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		observability.SeverityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		observability.SeverityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

func (m dashboardModel) View() string {
	if m.loading {
		return "\n  Loading devman dashboard...\n"
	}
	if m.err != nil {
		return fmt.Sprintf("\n  Error: %v\n\n  %s\n", m.err, dashHelpStyle.Render("q to quit, r to retry"))
	}

	title := dashTitleStyle.Render(" devman ")
	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderPanel(panelTasks, "Tasks", m.renderTasks()),
		m.renderPanel(panelMetrics, "Metrics (7d)", m.renderMetrics()),
		m.renderPanel(panelAlerts, "Alerts", m.renderAlerts()),
	)
	help := dashHelpStyle.Render("tab: switch panel • r: reload • q: quit")
	return lipgloss.JoinVertical(lipgloss.Left, title, panels, help)
}

func (m dashboardModel) renderPanel(index int, header, body string) string {
	style := dashPanelStyle
	if m.activePanel == index {
		style = dashActivePanelStyle
	}
	width := 30
	if m.width > 96 {
		width = (m.width - 12) / panelCount
	}
	content := dashHeaderStyle.Render(header) + "\n" + body
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderTasks() string {
	var b strings.Builder
	for _, status := range statusOrder {
		n := m.taskCounts[status]
		if n == 0 {
			continue
		}
		style, ok := dashStatusStyles[status]
		if !ok {
			style = lipgloss.NewStyle()
		}
		fmt.Fprintf(&b, "%s %d\n", style.Render(fmt.Sprintf("%-9s", status)), n)
	}
	if b.Len() == 0 {
		return "no tasks"
	}
	for _, t := range m.activeTasks {
		fmt.Fprintf(&b, "  %s\n", truncate(t.Title, 24))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m dashboardModel) renderMetrics() string {
	if m.metrics == nil {
		return "no data"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "created    %d\n", m.metrics.TasksCreated)
	fmt.Fprintf(&b, "completed  %d\n", m.metrics.TasksCompleted)
	fmt.Fprintf(&b, "abandoned  %d\n", m.metrics.TasksAbandoned)
	fmt.Fprintf(&b, "gates      %d/%d passed\n", m.metrics.QualityGatesPassed,
		m.metrics.QualityGatesPassed+m.metrics.QualityGatesFailed)
	fmt.Fprintf(&b, "knowledge  %d used", m.metrics.KnowledgeUsed)
	return b.String()
}

func (m dashboardModel) renderAlerts() string {
	if len(m.alerts) == 0 {
		return "none"
	}
	var b strings.Builder
	for _, a := range m.alerts {
		style, ok := dashSeverityStyles[a.Severity]
		if !ok {
			style = lipgloss.NewStyle()
		}
		fmt.Fprintf(&b, "%s %s\n", style.Render(strings.ToUpper(string(a.Severity))), truncate(a.Message, 40))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

package dashboard

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"review-portal-backend/internal/domain"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	cardStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	cardValueStyle = lipgloss.NewStyle().Bold(true)
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CCCCCC"))
	emptyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)

	statusStyles = map[domain.ApplicationStatus]lipgloss.Style{
		domain.ApplicationStatusPending:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		domain.ApplicationStatusUnderReview: lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
		domain.ApplicationStatusApproved:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		domain.ApplicationStatusRejected:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
)

type stat struct {
	label string
	value int
}

// Render draws a view for a terminal of the given width.
func Render(v View, width int) string {
	width = max(40, width)

	switch v := v.(type) {
	case AdminView:
		return page(width, "Admin Dashboard", "Manage applications, users, and system settings",
			[]stat{
				{"Total Applications", v.Stats.TotalApplications},
				{"Pending", v.Stats.Pending},
				{"Under Review", v.Stats.UnderReview},
				{"Approved", v.Stats.Approved},
				{"Total Users", v.Stats.TotalUsers},
			},
			"All Applications", applicationTable(v.Applications, true, true), "No applications yet.",
		) + "\n\n" + section("User Management", profileTable(v.Profiles), "No users yet.", len(v.Profiles) == 0)
	case ReviewerView:
		return page(width, "Reviewer Dashboard", "Review and evaluate assigned applications",
			[]stat{
				{"Assigned Applications", v.Stats.TotalAssigned},
				{"Pending Review", v.Stats.Pending},
				{"Under Review", v.Stats.UnderReview},
				{"Completed", v.Stats.Completed},
			},
			"Assigned Applications", applicationTable(v.Applications, true, false), "No applications assigned to you yet.",
		)
	case ApplicantView:
		return page(width, "Applicant Dashboard", "Submit and track your applications",
			[]stat{
				{"Total Applications", v.Stats.Total},
				{"Pending", v.Stats.Pending},
				{"Under Review", v.Stats.UnderReview},
				{"Approved", v.Stats.Approved},
				{"Rejected", v.Stats.Rejected},
			},
			"Your Applications", applicationTable(v.Applications, false, true), "You haven't submitted any applications yet.",
		)
	case UnassignedView:
		return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(
			lipgloss.JoinVertical(lipgloss.Center, titleStyle.Render(v.Title), subtitleStyle.Render(v.Message)),
		)
	default:
		return ""
	}
}

func page(width int, title, subtitle string, stats []stat, tableTitle string, tbl *table.Table, empty string) string {
	header := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), subtitleStyle.Render(subtitle))
	isEmpty := tbl == nil
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		cards(width, stats),
		"",
		section(tableTitle, tbl, empty, isEmpty),
	)
}

func cards(width int, stats []stat) string {
	cardWidth := max(14, width/len(stats)-2)
	rendered := make([]string, len(stats))
	for i, s := range stats {
		rendered[i] = cardStyle.Width(cardWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left, cardLabelStyle.Render(s.label), cardValueStyle.Render(strconv.Itoa(s.value))),
		)
	}
	if lipgloss.Width(lipgloss.JoinHorizontal(lipgloss.Top, rendered...)) > width {
		return lipgloss.JoinVertical(lipgloss.Left, rendered...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func section(title string, tbl *table.Table, empty string, isEmpty bool) string {
	if isEmpty || tbl == nil {
		return lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render(title), emptyStyle.Render(empty))
	}
	return lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render(title), tbl.Render())
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func applicationTable(apps []domain.Application, showApplicant, showReviewer bool) *table.Table {
	if len(apps) == 0 {
		return nil
	}
	headers := []string{"Title"}
	if showApplicant {
		headers = append(headers, "Applicant")
	}
	if showReviewer {
		headers = append(headers, "Reviewer")
	}
	headers = append(headers, "Status", "Submitted")

	t := newTable(headers...)
	for _, app := range apps {
		row := []string{app.Title}
		if showApplicant {
			row = append(row, personName(app.Applicant, "Unknown"))
		}
		if showReviewer {
			row = append(row, personName(app.AssignedReviewer, "Unassigned"))
		}
		row = append(row, StatusBadge(app.Status), app.SubmittedAt.Format("2006-01-02"))
		t.Row(row...)
	}
	return t
}

func profileTable(profiles []domain.Profile) *table.Table {
	if len(profiles) == 0 {
		return nil
	}
	t := newTable("Name", "Email", "Role", "Joined")
	for _, p := range profiles {
		t.Row(p.FullName(), p.Email, string(p.Role), p.CreatedAt.Format("2006-01-02"))
	}
	return t
}

func personName(p *domain.PersonSummary, fallback string) string {
	if p == nil {
		return fallback
	}
	name := p.FirstName
	if p.LastName != "" {
		name = fmt.Sprintf("%s %s", name, p.LastName)
	}
	if name == "" {
		return p.Email
	}
	return name
}

// StatusBadge renders the display label of a status in its color.
func StatusBadge(s domain.ApplicationStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(s.Label())
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/askiada/go-mlpipeline/pkg/deployer"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	hintStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#10B981"))
)

// statusMessage describes the first service of services.
func statusMessage(services []*deployer.Service, serving bool) string {
	if len(services) == 0 {
		return mutedStyle.Render("No prediction server is currently running. The deployment "+
			"pipeline must run first to train a model and deploy it.") + "\n"
	}

	svc := services[0]
	var sb strings.Builder
	switch {
	case svc.IsRunning():
		sb.WriteString(successStyle.Render("The prediction server is running locally and accepts inference requests at:"))
		fmt.Fprintf(&sb, "\n    %s\n    With the hostname: %s\n", svc.PredictionURL, svc.Hostname)
		if serving {
			fmt.Fprintf(&sb, "Press %s to stop the service %s.\n", hintStyle.Render("Ctrl+C"), svc.UUID)
		} else {
			fmt.Fprintf(&sb, "The service %s stops with this command. Run it with %s to keep it up.\n",
				svc.UUID, hintStyle.Render("--serve"))
		}
	case svc.IsFailed():
		sb.WriteString(failStyle.Render("The prediction server is in a failed state:"))
		fmt.Fprintf(&sb, "\n Last state: '%s'\n Last error: '%s'\n", svc.Status.State, svc.Status.LastError)
	default:
		fmt.Fprintf(&sb, "The prediction server %s is %s.\n", svc.UUID, svc.Status.State)
	}

	return sb.String()
}

func printStatus(w io.Writer, services []*deployer.Service, serving bool) {
	_, _ = io.WriteString(w, statusMessage(services, serving))
}

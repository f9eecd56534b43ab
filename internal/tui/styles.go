package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/libro-downloader/internal/download"
)

// Styles for the terminal output
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 2)

	bookStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// Header renders the program banner.
func Header() string {
	return titleStyle.Render("libro.fm downloader") + "\n" +
		dimStyle.Render("Download your purchased audiobooks") + "\n"
}

// RenderEvent renders one progress event as a single styled line.
func RenderEvent(event download.ProgressEvent) string {
	switch event.Level {
	case download.LevelSuccess:
		return successStyle.Render("✓ " + event.Message)
	case download.LevelError:
		return errorStyle.Render("✗ " + event.Message)
	case download.LevelWarning:
		return warningStyle.Render("! " + event.Message)
	case download.LevelVerbose:
		return dimStyle.Render("  " + event.Message)
	default:
		return infoStyle.Render("• " + event.Message)
	}
}

// RenderBook renders one catalog line for the list command.
func RenderBook(index int, title, authors, detail string) string {
	line := fmt.Sprintf("%3d. %s", index, bookStyle.Render(title))
	if authors != "" {
		line += " " + dimStyle.Render("by "+authors)
	}
	if detail != "" {
		line += "\n     " + dimStyle.Render(detail)
	}
	return line
}

// RenderReport renders the end-of-run summary box.
func RenderReport(r *download.Report) string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Summary"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Books:              %d\n", r.Books)
	fmt.Fprintf(&b, "Without links:      %d\n", r.BooksWithoutLinks)
	fmt.Fprintf(&b, "Files downloaded:   %d\n", r.FilesDownloaded)
	fmt.Fprintf(&b, "Files failed:       %d\n", r.FilesFailed)
	fmt.Fprintf(&b, "Archives extracted: %d\n", r.ArchivesExtracted)
	b.WriteString(dimStyle.Render("Run " + r.RunID))
	return boxStyle.Render(b.String())
}

var transferBar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))

// RenderTransfer renders a single-line progress bar for a file download.
// An unknown total renders the byte count only.
func RenderTransfer(name string, written, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%s %s", dimStyle.Render(name), infoStyle.Render(fmt.Sprintf("%d bytes", written)))
	}
	pct := float64(written) / float64(total)
	if pct > 1 {
		pct = 1
	}
	return fmt.Sprintf("%s %s %3.0f%%", transferBar.ViewAs(pct), dimStyle.Render(name), pct*100)
}

package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	localLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	remoteLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118"))
	timeStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	localTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	remoteTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

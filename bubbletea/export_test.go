package bubbletea

// Exported for testing.
var BlockSeparator = blockSeparator

// RenderContent is exported for testing.
func (m Model) RenderContent() string {
	return m.renderContent()
}

// StatusLine is exported for testing.
func (m Model) StatusLine() string {
	return m.statusLine()
}

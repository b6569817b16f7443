package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/document"
	"github.com/matzehuels/spacegraph/pkg/grid"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// maxAttrColumns bounds how many attribute columns the record view shows
// next to the key.
const maxAttrColumns = 8

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.graph>",
		Short: "Browse maps and attribute values interactively",
		Long: `Browse the maps of a graph file and the attribute values of their records.

Pick a map with the arrow keys and enter; esc goes back, q quits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runInspect(ctx context.Context, input string) error {
	d, err := openGraph(c.Logger, input)
	if err != nil {
		return err
	}
	m := NewInspectModel(d)
	if len(m.Maps) == 0 {
		printInfo("%s has no maps", input)
		return nil
	}
	_, err = tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}

// =============================================================================
// InspectModel - map list and record table
// =============================================================================

// InspectModel is the bubbletea model of the inspect command. It lists
// the maps of a document; entering one shows its records in a table.
type InspectModel struct {
	Doc    *document.Document
	Maps   []mapSummary
	Cursor int
	Height int
	Offset int

	// Open is the index into Maps whose records are shown, or -1.
	Open    int
	Records table.Model
	Err     error
}

// NewInspectModel creates the model for d.
func NewInspectModel(d *document.Document) InspectModel {
	return InspectModel{
		Doc:    d,
		Maps:   summarise(d).Maps,
		Height: 15,
		Open:   -1,
	}
}

func (m InspectModel) Init() tea.Cmd {
	return nil
}

func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
		if m.Open >= 0 {
			m.Records.SetHeight(m.Height)
			m.Records.SetWidth(msg.Width - 2)
		}
		return m, nil
	case tea.KeyMsg:
		if m.Open >= 0 {
			switch msg.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "esc", "backspace":
				m.Open = -1
				return m, nil
			}
			var cmd tea.Cmd
			m.Records, cmd = m.Records.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Maps)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			t, err := recordTable(m.Doc, m.Maps[m.Cursor], m.Height)
			if err != nil {
				m.Err = err
				return m, nil
			}
			m.Records, m.Open, m.Err = t, m.Cursor, nil
		}
	}
	return m, nil
}

func (m InspectModel) View() string {
	var b strings.Builder
	if m.Open >= 0 {
		ms := m.Maps[m.Open]
		b.WriteString(StyleTitle.Render(fmt.Sprintf("%s map %q", ms.Family, ms.Name)))
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("↑/↓ scroll  esc back  q quit"))
		b.WriteString("\n\n")
		b.WriteString(m.Records.View())
		b.WriteString("\n")
		if hidden := len(ms.Columns) - maxAttrColumns; hidden > 0 {
			b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d more columns not shown", hidden)))
			b.WriteString("\n")
		}
		return b.String()
	}

	b.WriteString(StyleTitle.Render("Select Map"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Maps))
	for i := m.Offset; i < end; i++ {
		ms := m.Maps[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		shown := " "
		if ms.Displayed {
			shown = "*"
		}
		line := fmt.Sprintf("%s%s %-6s %-24s %-8s %6d records  %d columns",
			cursor, shown, ms.Family, ms.Name, ms.Type, ms.Records, len(ms.Columns))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  * displayed", m.Cursor+1, len(m.Maps))))
	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(styleIconError.Render(iconError + " " + m.Err.Error()))
	}
	return b.String()
}

// recordTable builds the record view of the map ms describes.
func recordTable(d *document.Document, ms mapSummary, height int) (table.Model, error) {
	f, err := parseFamily(ms.Family)
	if err != nil {
		return table.Model{}, err
	}
	t, err := d.Table(document.MapRef{Family: f, Index: ms.Index})
	if err != nil {
		return table.Model{}, err
	}

	ncols := min(t.NumColumns(), maxAttrColumns)
	cols := []table.Column{{Title: "Ref", Width: 10}}
	for i := range ncols {
		col, err := t.Column(i)
		if err != nil {
			return table.Model{}, err
		}
		cols = append(cols, table.Column{Title: col.Name, Width: max(len(col.Name), 10)})
	}

	keys := t.Keys()
	rows := make([]table.Row, 0, len(keys))
	for _, k := range keys {
		ref := strconv.Itoa(k)
		if f == document.FamilyGrid {
			p := grid.PixelRef(k)
			ref = fmt.Sprintf("%d:%d", p.X(), p.Y())
		}
		row := table.Row{ref}
		for i := range ncols {
			row = append(row, formatValue(t, k, i))
		}
		rows = append(rows, row)
	}

	return table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	), nil
}

func formatValue(t *attr.Table, key, col int) string {
	v, err := t.Value(key, col)
	if err != nil || v == attr.Unset {
		return "—"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

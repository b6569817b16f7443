package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/document"
)

// =============================================================================
// Summaries
// =============================================================================

// mapSummary describes one map of a document. The info command prints
// it, the server returns it as JSON and inspect lists it.
type mapSummary struct {
	Family    string   `json:"family"`
	Index     int      `json:"index"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Records   int      `json:"records"`
	Columns   []string `json:"columns"`
	Display   string   `json:"display,omitempty"`
	Displayed bool     `json:"displayed"`
}

// documentSummary describes a document.
type documentSummary struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	View     string         `json:"view"`
	Region   [4]float64     `json:"region"`
	Drawings []groupSummary `json:"drawings"`
	Maps     []mapSummary   `json:"maps"`
}

type groupSummary struct {
	Name   string `json:"name"`
	Layers int    `json:"layers"`
	Lines  int    `json:"lines"`
}

func summarise(d *document.Document) documentSummary {
	r := d.Region()
	s := documentSummary{
		ID:     d.ID.String(),
		Name:   d.Name,
		View:   d.View().String(),
		Region: [4]float64{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y},
	}
	for _, g := range d.DrawingGroups() {
		gs := groupSummary{Name: g.Name, Layers: len(g.Maps)}
		for _, m := range g.Maps {
			gs.Lines += len(m.Lines())
		}
		s.Drawings = append(s.Drawings, gs)
	}
	shown := d.Displayed(document.FamilyGrid)
	for i, m := range d.Grids() {
		s.Maps = append(s.Maps, tableSummary(document.FamilyGrid, i, m.Name, "grid", m.Table(), i == shown))
	}
	for _, f := range []document.Family{document.FamilyAxial, document.FamilyData} {
		shown := d.Displayed(f)
		maps := d.Graphs()
		if f == document.FamilyData {
			maps = d.DataMaps()
		}
		for i, m := range maps {
			s.Maps = append(s.Maps, tableSummary(f, i, m.Name, m.Type().String(), m.Table(), i == shown))
		}
	}
	return s
}

func tableSummary(f document.Family, i int, name, typ string, t *attr.Table, displayed bool) mapSummary {
	ms := mapSummary{
		Family:    f.String(),
		Index:     i,
		Name:      name,
		Type:      typ,
		Records:   t.NumRows(),
		Columns:   t.ColumnNames(),
		Displayed: displayed,
	}
	if col, err := t.Column(t.DisplayColumn()); err == nil {
		ms.Display = col.Name
	}
	return ms
}

// =============================================================================
// Command
// =============================================================================

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <file.graph>",
		Short: "Summarise the maps of a graph file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openGraph(c.Logger, args[0])
			if err != nil {
				return err
			}
			s := summarise(d)
			if asJSON {
				return writeJSON(os.Stdout, s)
			}
			printSummary(s)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printSummary(s documentSummary) {
	fmt.Println(StyleTitle.Render(s.Name))
	printKeyValue("ID", s.ID)
	printKeyValue("View", s.View)
	printKeyValue("Region", formatRegion(s.Region[0], s.Region[1], s.Region[2], s.Region[3]))
	printNewline()

	if len(s.Drawings) > 0 {
		rows := make([][]string, len(s.Drawings))
		for i, g := range s.Drawings {
			rows[i] = []string{g.Name, strconv.Itoa(g.Layers), strconv.Itoa(g.Lines)}
		}
		fmt.Println(renderTable([]string{"Drawing", "Layers", "Lines"}, rows, nil))
	}
	if len(s.Maps) == 0 {
		printInfo("No maps yet")
		return
	}
	fmt.Println(mapTable(s.Maps))
}

// mapTable renders map summaries; the displayed member of each family is
// highlighted.
func mapTable(maps []mapSummary) string {
	rows := make([][]string, len(maps))
	for i, m := range maps {
		marker := ""
		if m.Displayed {
			marker = "●"
		}
		rows[i] = []string{
			marker, m.Family, m.Name, m.Type,
			strconv.Itoa(m.Records), strconv.Itoa(len(m.Columns)), m.Display,
		}
	}
	return renderTable(
		[]string{"", "Family", "Name", "Type", "Records", "Columns", "Display"},
		rows,
		func(row int) bool { return maps[row].Displayed },
	)
}

func renderTable(headers []string, rows [][]string, highlight func(row int) bool) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if highlight != nil && highlight(row) {
				return cellStyle.Foreground(colorCyan)
			}
			return cellStyle
		})
	return strings.TrimRight(t.Render(), "\n")
}

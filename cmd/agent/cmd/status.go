package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"iotsync/internal/domain/mapping"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue depths, local record counts and sync counters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := app.Status(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(map[string]any{
				"queue":  st.Queue,
				"local":  st.Local,
				"stats":  st.Stats,
				"tables": tableRows(st.Tables),
			})
		}

		headerColor.Println("Tables")
		for _, m := range st.Tables {
			pending := st.Queue[m.Table]
			depth := okColor.Sprint(pending)
			if pending > 0 {
				depth = warnColor.Sprint(pending)
			}
			fmt.Printf("  %-20s %-10s %-22s local %-6d queued %s\n",
				m.Table, m.Backend.Kind, m.Backend.Locator, st.Local[m.Table], depth)
		}

		s := st.Stats
		headerColor.Println("Counters")
		fmt.Printf("  pushed %d, push failures %d, dropped %d\n", s.Pushed, s.PushFailures, s.Dropped)
		fmt.Printf("  pulled %d, inserted %d, remote wins %d, local wins %d, unchanged %d\n",
			s.Pulled, s.Inserted, s.RemoteWins, s.LocalWins, s.Noops)
		if s.LastPass.IsZero() {
			subtleColor.Println("  no sync pass in this process yet")
		} else {
			fmt.Printf("  last pass %s\n", s.LastPass.Format(time.RFC3339))
		}
		return nil
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the table to backend mapping",
	RunE: func(_ *cobra.Command, _ []string) error {
		tables := mapping.Default()
		if cfg.TablesFile != "" {
			t, err := mapping.LoadFile(cfg.TablesFile)
			if err != nil {
				return err
			}
			tables = t
		}

		rows := make([]mapping.Mapping, 0, tables.Len())
		for _, name := range tables.Names() {
			m, _ := tables.Lookup(name)
			rows = append(rows, m)
		}

		if jsonOutput {
			return printJSON(tableRows(rows))
		}

		headerColor.Printf("  %-20s %-10s %-22s %s\n", "TABLE", "BACKEND", "LOCATOR", "ID FIELD")
		for _, m := range rows {
			fmt.Printf("  %-20s %-10s %-22s %s\n", m.Table, m.Backend.Kind, m.Backend.Locator, m.IDField)
		}
		return nil
	},
}

type tableRow struct {
	Table   string `json:"table"`
	Backend string `json:"backend"`
	Locator string `json:"locator"`
	IDField string `json:"id_field"`
}

func tableRows(ms []mapping.Mapping) []tableRow {
	out := make([]tableRow, 0, len(ms))
	for _, m := range ms {
		out = append(out, tableRow{
			Table:   m.Table,
			Backend: m.Backend.Kind.String(),
			Locator: m.Backend.Locator,
			IDField: m.IDField,
		})
	}
	return out
}

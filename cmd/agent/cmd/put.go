package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"iotsync/internal/domain/record"
)

var putCmd = &cobra.Command{
	Use:   "put <table> <json|->",
	Short: "Write a record locally and queue it for sync",
	Example: `  iotsync put device_status '{"device_id":"dev-1","battery":87}'
  echo '{"message":"door opened"}' | iotsync put logs -`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data := []byte(args[1])
		if args[1] == "-" {
			var err error
			if data, err = io.ReadAll(os.Stdin); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
		}

		rec, err := record.Decode(data)
		if err != nil {
			return err
		}

		saved, err := app.Save(cmd.Context(), args[0], rec)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(saved)
		}

		pending := app.Engine().Queue().Snapshot()[args[0]]
		if pending > 0 {
			warnColor.Printf("saved locally, %d record(s) of %s waiting for sync\n", pending, args[0])
			return nil
		}
		okColor.Println("saved and synced")
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <table> [field=value ...]",
	Short: "List local records of a table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		match, err := parseMatch(args[1:])
		if err != nil {
			return err
		}

		recs, err := app.Fetch(cmd.Context(), args[0], match)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(recs)
		}
		if len(recs) == 0 {
			subtleColor.Println("no records")
			return nil
		}
		for _, r := range recs {
			state := okColor.Sprint("synced ")
			if !r.Synced() {
				state = warnColor.Sprint("pending")
			}
			line, err := json.Marshal(r)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", state, line)
		}
		return nil
	},
}

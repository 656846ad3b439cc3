package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"iotsync/internal/domain/sync"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	subtleColor  = color.New(color.FgHiBlack)
	decisionTint = map[sync.Decision]*color.Color{
		sync.DecisionInserted:   okColor,
		sync.DecisionRemoteWins: color.New(color.FgBlue),
		sync.DecisionLocalWins:  color.New(color.FgMagenta),
		sync.DecisionNoop:       subtleColor,
	}
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printEvent is the observer used by the run command.
func printEvent(ev sync.Event) {
	ts := subtleColor.Sprint(ev.At.Format("15:04:05"))

	switch ev.Kind {
	case sync.EventPushed:
		fmt.Printf("%s %s %s/%s\n", ts, okColor.Sprint("pushed  "), ev.Table, ev.Key)
	case sync.EventPushFailed:
		fmt.Printf("%s %s %s/%s: %v\n", ts, warnColor.Sprint("retry   "), ev.Table, ev.Key, ev.Err)
	case sync.EventPushDropped:
		fmt.Printf("%s %s %s/%s: %v\n", ts, errorColor.Sprint("dropped "), ev.Table, ev.Key, ev.Err)
	case sync.EventResolved:
		if ev.Decision == sync.DecisionNoop {
			return
		}
		tint, ok := decisionTint[ev.Decision]
		if !ok {
			tint = subtleColor
		}
		fmt.Printf("%s %s %s/%s\n", ts, tint.Sprintf("%-8s", ev.Decision), ev.Table, ev.Key)
	case sync.EventTableFailed:
		fmt.Printf("%s %s %s: %v\n", ts, errorColor.Sprint("failed  "), ev.Table, ev.Err)
	}
}

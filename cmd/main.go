package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/quivergraph/quiver"
	"github.com/quivergraph/quiver/indexes"
	"github.com/quivergraph/quiver/scan"
	"github.com/quivergraph/quiver/schema"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("indexes"),
	readline.PcItem("status"),
	readline.PcItem("disable"),
	readline.PcItem("remove"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func help() {
	fmt.Println("indexes                  list index definitions")
	fmt.Println("status <index>           show an index status")
	fmt.Println("disable <index>          set an index status to disabled")
	fmt.Println("remove <index> [type]    delete a disabled index's entries")
	fmt.Println("exit")
}

func listIndexes(g *quiver.Graph) {
	defs, err := g.Catalog().ListIndexes()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	for _, def := range defs {
		fmt.Printf("%s\tkind=%c\tstatus=%s\n", def.Name, def.Kind, def.Status)
	}
}

func removeIndex(g *quiver.Graph, name, relationType string) {
	job := indexes.NewRemovalJob(g, name, relationType)
	metrics, err := indexes.RunRemoval(context.Background(), g, job, 4)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if metrics != nil {
			fmt.Fprintf(os.Stderr, "deleted %d records before the failure\n",
				metrics.Custom(indexes.DeletedRecordsCount))
		}
		return
	}
	fmt.Printf("deleted %d records\n", metrics.Custom(indexes.DeletedRecordsCount))
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: quiver <graph-dir>")
		os.Exit(2)
	}

	prometheus.MustRegister(
		scan.ScannedKeys, scan.Runs, scan.RunDuration, scan.CustomCounters,
		indexes.RemovalDeletedRecords, indexes.RemovalFailedTx,
	)

	g, err := quiver.Open(os.Args[1], quiver.Options{
		MetricsRegistry: prometheus.DefaultRegisterer,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer g.Close()

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     "/tmp/quiver.history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			help()
		case "indexes":
			listIndexes(g)
		case "status":
			if len(args) != 2 {
				help()
				continue
			}
			def, err := g.Catalog().GetIndex(args[1])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			fmt.Println(def.Status)
		case "disable":
			if len(args) != 2 {
				help()
				continue
			}
			if err := g.Catalog().UpdateIndexStatus(args[1], schema.StatusDisabled); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case "remove":
			if len(args) < 2 || len(args) > 3 {
				help()
				continue
			}
			relationType := ""
			if len(args) == 3 {
				relationType = args[2]
			}
			removeIndex(g, args[1], relationType)
		case "exit", "quit":
			return
		default:
			help()
		}
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/aleyoscar/beancount-inquiry/internal/ledger"
	"github.com/aleyoscar/beancount-inquiry/internal/render"
	"github.com/aleyoscar/beancount-inquiry/pkg/inquiry"
)

func printBanner(path string) {
	fmt.Printf("bean-inquiry session on %s (Ctrl+D to exit)\n", path)
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run <name> [params]   execute a query (or just: <name> [params])")
	fmt.Println("  list                  show every query in the ledger")
	fmt.Println("  check <name>          show the parameters a query needs")
	fmt.Println("  history [n]           show recent invocations")
	fmt.Println("  replay <id>           re-run a recorded invocation")
	fmt.Println("  reload                rescan the ledger")
	fmt.Println("  quit                  leave the session")
	fmt.Println()
}

func runInteractive(ctx context.Context, eng *inquiry.Engine, format render.Format) error {
	tty := term.IsTerminal(int(os.Stdin.Fd()))
	if tty {
		printBanner(eng.LedgerPath())
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		if tty {
			fmt.Print("inquiry> ")
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if tty {
				fmt.Println()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if dispatch(ctx, eng, format, line) {
			return nil
		}
	}
}

// dispatch handles one session line. Returns true when the session
// should end.
func dispatch(ctx context.Context, eng *inquiry.Engine, format render.Format, line string) bool {
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch word {
	case "quit", "exit":
		return true

	case "help":
		printBanner(eng.LedgerPath())

	case "list":
		if err := render.QueryList(os.Stdout, format, eng.Queries()); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

	case "check":
		if rest == "" {
			fmt.Println("usage: check <name>")
			break
		}
		req, err := eng.Check(rest)
		if err != nil && errors.Is(err, ledger.ErrQueryNotFound) {
			fmt.Printf("Error: %v\n", err)
			break
		}
		if rerr := render.Check(os.Stdout, format, []render.CheckRow{{Name: rest, Req: req, Err: err}}); rerr != nil {
			fmt.Printf("Error: %v\n", rerr)
		}

	case "history":
		limit := 10
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil {
				fmt.Println("usage: history [n]")
				break
			}
			limit = n
		}
		entries, err := eng.Recent(limit)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		if err := render.History(os.Stdout, format, entries, time.Now()); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

	case "replay":
		if rest == "" {
			fmt.Println("usage: replay <id>")
			break
		}
		printInvocation(eng.Replay(ctx, rest))

	case "reload":
		if err := eng.Reload(); err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		fmt.Printf("reloaded, %d queries\n", len(eng.Queries()))

	case "run":
		name, params, _ := strings.Cut(rest, " ")
		if name == "" {
			fmt.Println("usage: run <name> [params]")
			break
		}
		printInvocation(eng.Run(ctx, name, strings.TrimSpace(params)))

	default:
		// Anything else is a query name with optional parameters.
		printInvocation(eng.Run(ctx, word, rest))
	}
	return false
}

func printInvocation(inv *inquiry.Invocation, err error) {
	if inv != nil {
		fmt.Print(inv.Result.Stdout)
		fmt.Fprint(os.Stderr, inv.Result.Stderr)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/habitsync/internal/client/cli"
	"github.com/dmitrijs2005/habitsync/internal/client/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer app.Close(ctx)

	if err := app.Run(ctx, commandArgs(os.Args[1:])); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// commandArgs strips the config flags so only the command and its
// arguments remain. The mirror of flagx.FilterArgs.
func commandArgs(args []string) []string {
	configFlags := map[string]struct{}{
		"-a": {}, "-u": {}, "-d": {}, "-i": {},
	}

	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := configFlags[name]; ok {
				continue
			}
		}

		if _, ok := configFlags[arg]; ok {
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}

		out = append(out, arg)
	}
	return out
}

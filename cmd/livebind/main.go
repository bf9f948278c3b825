package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/livefir/livebind/cmd/livebind/commands"
)

// Version information (can be overridden at build time with -ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error

	switch command {
	case "render":
		err = commands.Render(args, os.Stdout)
	case "inspect":
		err = commands.Inspect(args, os.Stdout)
	case "serve":
		err = commands.Serve(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("livebind version %s\n", version)

	if info, ok := debug.ReadBuildInfo(); ok {
		revision := commit
		if revision == "unknown" {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					revision = setting.Value
				}
			}
		}
		if len(revision) > 12 {
			revision = revision[:12]
		}
		fmt.Printf("commit: %s\n", revision)
		fmt.Printf("go: %s\n", info.GoVersion)
	}
}

func printUsage() {
	fmt.Println("livebind - bind data and states to an HTML fragment")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  livebind render -def <file> -html <file> [flags]   Fill, activate states and print the HTML")
	fmt.Println("  livebind inspect -def <file> [-html <file>]        Show aliases, data maps and states")
	fmt.Println("  livebind serve -def <file> -html <file> [flags]    Serve the fragment live over WebSocket")
	fmt.Println("  livebind version                                  Show version information")
	fmt.Println()
	fmt.Println("Render flags:")
	fmt.Println("  -data <file>     JSON data passed to the data maps")
	fmt.Println("  -map <name>      data map to fill (repeatable, default: every map)")
	fmt.Println("  -state <name>    state to activate, name or name@path (repeatable)")
	fmt.Println("  -trigger <t@p>   event to raise after filling, e.g. click@button-up (repeatable)")
	fmt.Println("  -compact         minify the output")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  livebind render -def jedi.yaml -html jedi.html -data jedi.json -state disable-up")
	fmt.Println("  livebind inspect -def jedi.yaml")
	fmt.Println("  livebind serve -def jedi.yaml -html jedi.html -addr :8080")
}

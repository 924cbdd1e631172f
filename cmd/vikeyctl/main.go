// vikeyctl is the control CLI for vikeyd.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"vikeyd/internal/config"
	"vikeyd/internal/ipc"
)

var (
	configPath = flag.String("config", "", "path to config file")
	socketPath = flag.String("socket", "", "control socket path (overrides config)")
	timeout    = flag.Duration("timeout", 5*time.Second, "request timeout")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)

	switch cmd {
	case "ping":
		cmdPing()
	case "status":
		cmdStatus()
	case "enable":
		cmdSetEnabled(true)
	case "disable":
		cmdSetEnabled(false)
	case "method":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: vikeyctl method <telex|vni>")
			os.Exit(1)
		}
		cmdSetMethod(flag.Arg(1))
	case "restore-word":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: vikeyctl restore-word <word>")
			os.Exit(1)
		}
		cmdRestoreWord(flag.Arg(1))
	case "shortcut":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: vikeyctl shortcut <add|remove|list|clear|import|export> [args]")
			os.Exit(1)
		}
		cmdShortcut(flag.Arg(1), flag.Args()[2:])
	case "reload":
		cmdReload()
	case "shutdown":
		cmdShutdown()
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `vikeyctl - Control utility for vikeyd

Usage: vikeyctl [options] <command> [args]

Commands:
  ping                      Check that the daemon is reachable
  status                    Show daemon status and pipeline counters
  enable                    Enable Vietnamese transformation
  disable                   Disable Vietnamese transformation
  method <telex|vni>        Switch the input method
  restore-word <word>       Seed the restore-on-backspace memory
  shortcut add <trigger> <replacement>
  shortcut remove <trigger>
  shortcut list             List all text-expansion shortcuts
  shortcut clear            Remove all shortcuts
  shortcut import <file>    Import shortcuts from a .json or .yaml file
  shortcut export [file]    Export shortcuts as YAML (stdout by default)
  reload                    Re-read the config file
  shutdown                  Stop the daemon
  help                      Show this help message

Options:
  -config <path>    Path to config file
  -socket <path>    Control socket path (overrides config)
  -timeout <dur>    Request timeout (default 5s)`)
}

// connect resolves the socket path (flag wins over config) and dials the
// daemon.
func connect() *ipc.Client {
	path := *socketPath
	if path == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		path = cfg.IPC.SocketPath
	}

	c, err := ipc.Dial(path, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nIs vikeyd running?\n", err)
		os.Exit(1)
	}
	return c
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdPing() {
	c := connect()
	defer c.Close()

	start := time.Now()
	if err := c.Ping(); err != nil {
		fatal(err)
	}
	fmt.Printf("pong (%s)\n", time.Since(start).Round(time.Microsecond))
}

func cmdStatus() {
	c := connect()
	defer c.Close()

	var st ipc.StatusResponse
	if err := c.Request(ipc.MsgStatus, nil, &st); err != nil {
		fatal(err)
	}

	fmt.Println("=== vikeyd Status ===")
	fmt.Println()
	fmt.Printf("Version:        %s\n", st.Version)
	fmt.Printf("Uptime:         %s\n", (time.Duration(st.UptimeSec) * time.Second).String())
	fmt.Printf("Enabled:        %v\n", st.Enabled)
	fmt.Printf("Method:         %s\n", st.Method)
	fmt.Printf("Engine loaded:  %v\n", st.EngineLoaded)
	if st.ForegroundApp != "" {
		fmt.Printf("Foreground app: %s\n", st.ForegroundApp)
	}
	fmt.Println()
	fmt.Println("Pipeline:")
	fmt.Printf("  Captured:        %d\n", st.Metrics.Captured)
	fmt.Printf("  Dropped:         %d\n", st.Metrics.Dropped)
	fmt.Printf("  Edits:           %d\n", st.Metrics.Edits)
	fmt.Printf("  Injected:        %d\n", st.Metrics.Injected)
	fmt.Printf("  Partial sends:   %d\n", st.Metrics.PartialSends)
	fmt.Printf("  Cache hits:      %d\n", st.Metrics.CacheHits)
	fmt.Printf("  Cache misses:    %d\n", st.Metrics.CacheMisses)
	fmt.Printf("  Max latency:     %s\n", time.Duration(st.Metrics.MaxLatencyUsec)*time.Microsecond)
}

func cmdSetEnabled(enabled bool) {
	c := connect()
	defer c.Close()

	if err := c.RequestAck(ipc.MsgSetEnabled, &ipc.SetEnabledRequest{Enabled: enabled}); err != nil {
		fatal(err)
	}
	if enabled {
		fmt.Println("Vietnamese transformation enabled.")
	} else {
		fmt.Println("Vietnamese transformation disabled.")
	}
}

func cmdSetMethod(method string) {
	c := connect()
	defer c.Close()

	if err := c.RequestAck(ipc.MsgSetMethod, &ipc.SetMethodRequest{Method: method}); err != nil {
		fatal(err)
	}
	fmt.Printf("Input method set to %s.\n", method)
}

func cmdRestoreWord(word string) {
	c := connect()
	defer c.Close()

	if err := c.RequestAck(ipc.MsgRestoreWord, &ipc.RestoreWordRequest{Word: word}); err != nil {
		fatal(err)
	}
	fmt.Println("Restore memory seeded.")
}

func cmdReload() {
	c := connect()
	defer c.Close()

	if err := c.RequestAck(ipc.MsgReloadConfig, nil); err != nil {
		fatal(err)
	}
	fmt.Println("Config reloaded.")
}

func cmdShutdown() {
	c := connect()
	defer c.Close()

	if err := c.RequestAck(ipc.MsgShutdown, nil); err != nil {
		fatal(err)
	}
	fmt.Println("Daemon shutting down.")
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vikeyd/internal/ipc"
)

func cmdShortcut(action string, args []string) {
	switch action {
	case "add":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: vikeyctl shortcut add <trigger> <replacement>")
			os.Exit(1)
		}
		shortcutAdd(args[0], args[1])
	case "remove":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: vikeyctl shortcut remove <trigger>")
			os.Exit(1)
		}
		shortcutRemove(args[0])
	case "list":
		shortcutList()
	case "clear":
		shortcutClear()
	case "import":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: vikeyctl shortcut import <file>")
			os.Exit(1)
		}
		shortcutImport(args[0])
	case "export":
		output := ""
		if len(args) >= 1 {
			output = args[0]
		}
		shortcutExport(output)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shortcut action: %s\n", action)
		os.Exit(1)
	}
}

func shortcutAdd(trigger, replacement string) {
	c := connect()
	defer c.Close()

	err := c.RequestAck(ipc.MsgShortcutAdd, &ipc.ShortcutAddRequest{
		Trigger:     trigger,
		Replacement: replacement,
	})
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Added shortcut %q.\n", trigger)
}

func shortcutRemove(trigger string) {
	c := connect()
	defer c.Close()

	if err := c.RequestAck(ipc.MsgShortcutRemove, &ipc.ShortcutRemoveRequest{Trigger: trigger}); err != nil {
		fatal(err)
	}
	fmt.Printf("Removed shortcut %q.\n", trigger)
}

func shortcutList() {
	c := connect()
	defer c.Close()

	var resp ipc.ShortcutListResponse
	if err := c.Request(ipc.MsgShortcutList, nil, &resp); err != nil {
		fatal(err)
	}

	if len(resp.Shortcuts) == 0 {
		fmt.Println("No shortcuts defined.")
		return
	}

	width := 0
	for _, s := range resp.Shortcuts {
		if len(s.Trigger) > width {
			width = len(s.Trigger)
		}
	}
	for _, s := range resp.Shortcuts {
		fmt.Printf("%-*s  %s\n", width, s.Trigger, s.Replacement)
	}
}

func shortcutClear() {
	c := connect()
	defer c.Close()

	if err := c.RequestAck(ipc.MsgShortcutClear, nil); err != nil {
		fatal(err)
	}
	fmt.Println("All shortcuts removed.")
}

func shortcutImport(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err)
	}

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = "yaml"
	}

	c := connect()
	defer c.Close()

	var resp ipc.ShortcutImportResponse
	err = c.Request(ipc.MsgShortcutImport, &ipc.ShortcutImportRequest{
		Format: format,
		Data:   data,
	}, &resp)
	if err != nil {
		fatal(err)
	}
	if !resp.Success {
		fatal(fmt.Errorf("%s", resp.Error))
	}
	fmt.Printf("Imported %d shortcuts.\n", resp.Imported)
}

func shortcutExport(output string) {
	c := connect()
	defer c.Close()

	var resp ipc.ShortcutExportResponse
	if err := c.Request(ipc.MsgShortcutExport, nil, &resp); err != nil {
		fatal(err)
	}

	if output == "" {
		os.Stdout.Write(resp.Data)
		return
	}
	if err := os.WriteFile(output, resp.Data, 0o644); err != nil {
		fatal(err)
	}
	fmt.Printf("Shortcuts exported to %s.\n", output)
}

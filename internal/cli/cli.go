package cli

import (
	"fmt"
	"strings"

	"hubdeck/internal/appconfig"
	"hubdeck/internal/commands"
	"hubdeck/internal/output"
	"hubdeck/internal/version"
)

func Run(args []string) int {
	cfgPath := appconfig.ConfigPath()
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		output.Printf("warning: failed to read hubdeck cli config: %s\n", err)
		cfg = appconfig.Default()
	}
	output.SetDebug(cfg.IsDebug())
	if enabled, forced := cfg.ColorOverride(); forced {
		output.SetColor(enabled)
	}
	output.Debugf("loaded config: %s mode=%s color=%s\n", cfgPath, cfg.Mode, cfg.Color)

	if len(args) < 2 {
		return commands.RunServe(nil)
	}

	switch args[1] {
	case "-h", "--help", "help":
		output.Println(usage())
		return 0
	case "-v", "--version", "version":
		output.Printf("hubdeck %s\n", version.Version)
		return 0
	case "serve":
		return commands.RunServe(args[2:])
	case "badges":
		return commands.Badges(args[2:])
	case "settings":
		return handleSettings(args[2:])
	case "reset-password":
		return commands.ResetPassword(args[2:])
	default:
		// anything else is a serve flag
		return commands.RunServe(args[1:])
	}
}

func usage() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "HubDeck (hubdeck) - unseen badge service for the AccountsHub admin")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Usage:")
	fmt.Fprintln(b, "  hubdeck [flags]                 start the admin service")
	fmt.Fprintln(b, "  hubdeck <command> [flags]")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Flags:")
	fmt.Fprintln(b, "  -p, --port PORT       listen port")
	fmt.Fprintln(b, "  -b, --bind ADDR       bind address (default 127.0.0.1)")
	fmt.Fprintln(b, "  -u, --user USER       initial admin username")
	fmt.Fprintln(b, "      --password PASS   initial admin password (requires --user)")
	fmt.Fprintln(b, "      --debug           enable debug logging")
	fmt.Fprintln(b, "  -h, --help            show help")
	fmt.Fprintln(b, "  -v, --version         show version")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Commands:")
	fmt.Fprintln(b, "  serve            start the admin service")
	fmt.Fprintln(b, "  badges           refresh once and print the counters (--no-mark, --last)")
	fmt.Fprintln(b, "  settings         show settings or save cli preferences")
	fmt.Fprintln(b, "  reset-password   reset a user's password")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Examples:")
	fmt.Fprintln(b, "  hubdeck -p 9090 -b 0.0.0.0")
	fmt.Fprintln(b, "  hubdeck -u admin --password mypass123")
	fmt.Fprintln(b, "  hubdeck badges --no-mark")
	return b.String()
}

func handleSettings(args []string) int {
	if len(args) == 0 {
		output.Println(settingsUsage())
		return 2
	}
	switch args[0] {
	case "show":
		return commands.SettingsShow(args[1:])
	case "set", "set-mode":
		return commands.SettingsSet(args[1:])
	default:
		output.Printf("unknown settings subcommand: %s\n\n", args[0])
		output.Println(settingsUsage())
		return 2
	}
}

func settingsUsage() string {
	return subUsage("settings", []string{
		"show      print the current configuration",
		"set       save cli preferences (--mode production|debug, --color auto|always|never, --mark on|off|default)",
	})
}

func subUsage(name string, lines []string) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "Usage:\n  hubdeck %s <subcommand> [flags]\n\n", name)
	fmt.Fprintln(b, "Subcommands:")
	for _, line := range lines {
		fmt.Fprintf(b, "  %s\n", line)
	}
	return b.String()
}

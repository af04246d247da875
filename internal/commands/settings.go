package commands

import (
	"flag"
	"fmt"

	"hubdeck/internal/appconfig"
	"hubdeck/internal/output"
	"hubdeck/internal/webconfig"
)

func SettingsShow(args []string) int {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		output.Printf("error: %s\n", err)
		return 2
	}

	path := appconfig.ConfigPath()
	cfg, err := appconfig.Load(path)
	if err != nil {
		output.Printf("error: failed to read config: %s\n", err)
		return 1
	}
	output.Println(output.Colorize("title", "hubdeck settings"))
	fmt.Printf("cli config: %s\n", path)
	fmt.Printf("mode:       %s\n", cfg.Mode)
	fmt.Printf("color:      %s\n", cfg.Color)
	fmt.Printf("cli mark:   %s\n", markLabel(cfg.Badges.MarkSeen))

	web, err := webconfig.Load()
	if err != nil {
		output.Printf("error: failed to read service config: %s\n", err)
		return 1
	}
	fmt.Printf("service:    %s\n", webconfig.ConfigPath())
	fmt.Printf("listen:     %s\n", web.ListenAddr())
	fmt.Printf("database:   %s\n", web.Database.Driver)
	fmt.Printf("market:     %s%s\n", web.Marketplace.BaseURL, web.Marketplace.APIPrefix)
	fmt.Printf("token set:  %t\n", web.Marketplace.Token != "")
	fmt.Printf("poll every: %s\n", pollLabel(web.PollInterval().String(), web.Badge.PollIntervalSeconds))
	fmt.Printf("mark seen:  %t\n", web.Badge.MarkSeenOnRefresh)
	fmt.Printf("alerts:     %t (min increase %d)\n", web.Alert.Enabled, web.Alert.MinIncrease)
	return 0
}

func pollLabel(d string, secs int) string {
	if secs <= 0 {
		return "disabled"
	}
	return d
}

// SettingsSet updates only the preferences named on the command line.
func SettingsSet(args []string) int {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	mode := fs.String("mode", "", "production or debug")
	color := fs.String("color", "", "auto, always or never")
	mark := fs.String("mark", "", "badges marks fetched records: on, off or default")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		output.Printf("error: %s\n", err)
		return 2
	}

	path := appconfig.ConfigPath()
	cfg, err := appconfig.Load(path)
	if err != nil {
		output.Printf("error: failed to read config: %s\n", err)
		return 1
	}

	changed := 0
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		if parseErr != nil {
			return
		}
		changed++
		switch f.Name {
		case "mode":
			cfg.Mode, parseErr = appconfig.ParseMode(*mode)
		case "color":
			cfg.Color, parseErr = appconfig.ParseColor(*color)
		case "mark":
			cfg.Badges.MarkSeen, parseErr = appconfig.ParseToggle(*mark)
		}
	})
	if parseErr != nil {
		output.Printf("error: %s\n", parseErr)
		return 2
	}
	if changed == 0 {
		output.Println("error: nothing to set (use --mode, --color or --mark)")
		return 2
	}

	cfg = cfg.Normalize()
	if err := appconfig.Save(path, cfg); err != nil {
		output.Printf("error: failed to save config: %s\n", err)
		return 1
	}
	output.SetDebug(cfg.IsDebug())
	output.Printf("saved %s (mode %s, color %s, mark %s)\n", path, cfg.Mode, cfg.Color, markLabel(cfg.Badges.MarkSeen))
	return 0
}

func markLabel(v *bool) string {
	switch {
	case v == nil:
		return "default"
	case *v:
		return "on"
	}
	return "off"
}

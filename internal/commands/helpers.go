package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"hubdeck/internal/output"
	"hubdeck/internal/version"
	"hubdeck/internal/webconfig"
)

func generateToken(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

func isWildcardBind(bind string) bool {
	return bind == "" || bind == "0.0.0.0" || bind == "::"
}

// accessURLs lists the addresses a browser can reach the server on.
func accessURLs(cfg webconfig.Config) []string {
	port := cfg.Server.Port
	if !isWildcardBind(cfg.Server.Bind) {
		return []string{fmt.Sprintf("http://%s", net.JoinHostPort(cfg.Server.Bind, fmt.Sprint(port)))}
	}
	urls := []string{fmt.Sprintf("http://localhost:%d", port)}
	if addrs, err := net.InterfaceAddrs(); err == nil {
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				urls = append(urls, fmt.Sprintf("http://%s:%d", ipnet.IP, port))
			}
		}
	}
	return urls
}

func printBanner(cfg webconfig.Config, gen *generatedCredentials) {
	b := &strings.Builder{}
	fmt.Fprintln(b)
	fmt.Fprintf(b, "  %s\n", output.Colorize("title", "HubDeck "+version.Version))
	fmt.Fprintf(b, "  marketplace: %s%s\n", cfg.Marketplace.BaseURL, cfg.Marketplace.APIPrefix)
	if cfg.Badge.PollIntervalSeconds > 0 {
		fmt.Fprintf(b, "  polling every %ds\n", cfg.Badge.PollIntervalSeconds)
	}
	if isWildcardBind(cfg.Server.Bind) {
		fmt.Fprintf(b, "  %s\n", output.Colorize("warning", "bound to all interfaces, reachable from the LAN"))
	}
	if gen != nil {
		fmt.Fprintf(b, "  %s\n", output.Colorize("warning", "first start: admin account created"))
		fmt.Fprintf(b, "    username: %s\n", gen.Username)
		fmt.Fprintf(b, "    password: %s\n", gen.Password)
		fmt.Fprintln(b, "    change it with: hubdeck reset-password <user> <password>")
	}
	for _, u := range accessURLs(cfg) {
		fmt.Fprintf(b, "  -> %s\n", u)
	}
	fmt.Print(b.String())
}

package main

import (
	"os"

	servecmder "github.com/papercomputeco/crmchat/cmd/crmchat/serve"
)

// crmchatapi is the serve command as a standalone binary for container images.
func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "crmchatapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json-logs", false, "Log JSON records instead of the pretty console format")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml (default: ./.crmchat or ~/.crmchat)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

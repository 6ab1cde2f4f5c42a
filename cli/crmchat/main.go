package main

import (
	"os"

	crmchatcmder "github.com/papercomputeco/crmchat/cmd/crmchat"
)

func main() {
	cmd := crmchatcmder.NewCrmchatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/crmchat/internal/dagger"
)

// goarches are the linux architectures crmchat ships for. sqlite-vec needs
// CGO, so each one is built natively rather than cross compiled.
var goarches = []string{"amd64", "arm64"}

// Build and return directory of go binaries
func (c *Crmchat) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	outputs := dag.Directory()
	for _, goarch := range goarches {
		path := fmt.Sprintf("linux/%s/", goarch)
		outputs = outputs.WithDirectory(path, c.binaries(goarch, ldflags))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (c *Crmchat) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	return c.Build(ctx, releaseLdflags(version, commit))
}

// binaries builds crmchat and crmchatapi for one linux architecture and
// returns a directory holding just the two executables.
func (c *Crmchat) binaries(goarch, ldflags string) *dagger.Directory {
	return c.goContainer(dagger.Platform("linux/"+goarch)).
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", "/out/", "./cli/crmchat"}).
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", "/out/", "./cli/crmchatapi"}).
		Directory("/out")
}

func releaseLdflags(version, commit string) string {
	return strings.Join([]string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/crmchat/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/crmchat/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/crmchat/pkg/utils.Buildtime=%s'", time.Now()),
	}, " ")
}

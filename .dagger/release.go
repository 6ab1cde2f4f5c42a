package main

import (
	"context"
	"fmt"

	"dagger/crmchat/internal/dagger"
)

// runtimeImage is the base for the crmchatapi image. The binaries link
// libsqlite3 dynamically, so it must match the bookworm build container.
const runtimeImage = "debian:bookworm-slim"

// Archive packages versioned binaries as one tarball per architecture plus a
// SHA256SUMS file covering all of them.
func (c *Crmchat) Archive(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,
) *dagger.Directory {
	ldflags := releaseLdflags(version, commit)

	names := make([]string, 0, len(goarches))
	packer := dag.Container().
		From(runtimeImage).
		WithWorkdir("/dist")

	for _, goarch := range goarches {
		name := fmt.Sprintf("crmchat_%s_linux_%s.tar.gz", version, goarch)
		names = append(names, name)

		packer = packer.
			WithDirectory("/stage/"+goarch, c.binaries(goarch, ldflags)).
			WithExec([]string{"tar", "-czf", name, "-C", "/stage/" + goarch, "."})
	}

	return packer.
		WithExec(append([]string{"sh", "-c", `sha256sum "$@" > SHA256SUMS`, "sha256sum"}, names...)).
		Directory("/dist")
}

// Image returns the crmchatapi container for one linux architecture. The
// server reads documents from /app/documents and keeps its embedding cache
// under /app.
func (c *Crmchat) Image(
	// Target architecture
	// +optional
	// +default="amd64"
	goarch string,

	// Version string (e.g., "v1.0.0")
	// +optional
	// +default="dev"
	version string,

	// Git commit SHA
	// +optional
	// +default="unknown"
	commit string,
) *dagger.Container {
	bin := c.binaries(goarch, releaseLdflags(version, commit))

	return dag.Container(dagger.ContainerOpts{Platform: dagger.Platform("linux/" + goarch)}).
		From(runtimeImage).
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "--no-install-recommends", "ca-certificates", "libsqlite3-0"}).
		WithExec([]string{"rm", "-rf", "/var/lib/apt/lists"}).
		WithFile("/usr/local/bin/crmchatapi", bin.File("crmchatapi")).
		WithFile("/usr/local/bin/crmchat", bin.File("crmchat")).
		WithWorkdir("/app").
		WithExposedPort(8000).
		WithEntrypoint([]string{"crmchatapi"}).
		WithDefaultArgs([]string{"--json-logs"})
}

// Publish pushes a multi-arch crmchatapi image and returns its digest
// reference.
func (c *Crmchat) Publish(
	ctx context.Context,

	// Image reference to push, e.g. "ghcr.io/papercomputeco/crmchat:v1.0.0"
	address string,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Registry username
	username string,

	// Registry password or token
	password *dagger.Secret,
) (string, error) {
	variants := make([]*dagger.Container, 0, len(goarches))
	for _, goarch := range goarches {
		variants = append(variants, c.Image(goarch, version, commit))
	}

	ref, err := dag.Container().
		WithRegistryAuth(address, username, password).
		Publish(ctx, address, dagger.ContainerPublishOpts{PlatformVariants: variants})
	if err != nil {
		return "", fmt.Errorf("could not publish %s: %w", address, err)
	}

	return ref, nil
}

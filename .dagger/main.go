// crmchat CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
// It is the main harness for handling nearly all dev operations.
package main

import (
	"context"

	"dagger/crmchat/internal/dagger"
)

// Crmchat is the main module for the crmchat CI/CD pipeline
type Crmchat struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Crmchat CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", ".crmchat", "build", "tmp", "documents", "embeddings_cache.json"]
	source *dagger.Directory,
) *Crmchat {
	return &Crmchat{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc,
// libsqlite3-dev, CGO enabled, and the project source mounted.
//
// It is the shared base for every build and check. CGO is
// required by the sqlite-vec index.
func (c *Crmchat) goContainer(platform dagger.Platform) *dagger.Container {
	return dag.Container(dagger.ContainerOpts{Platform: platform}).
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build-"+string(platform))).
		WithWorkdir("/src").
		WithDirectory("/src", c.Source)
}

// Test runs the crmchat unit tests via "go test"
func (c *Crmchat) Test(ctx context.Context) (string, error) {
	return c.goContainer("").
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}

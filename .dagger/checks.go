package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/crmchat/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// CheckGoModTidy fails when go.mod or go.sum would change under "go mod tidy".
//
// +check
func (c *Crmchat) CheckGoModTidy(ctx context.Context) (string, error) {
	_, err := c.goContainer("").
		WithExec([]string{"go", "mod", "tidy", "-diff"}).
		Stdout(ctx)

	var e *dagger.ExecError
	if errors.As(err, &e) {
		return "", fmt.Errorf("go.mod or go.sum are not tidy: run 'go mod tidy'\n\n%s", e.Stdout)
	} else if err != nil {
		return "", err
	}

	return "go.mod and go.sum are tidy", nil
}

// CheckLint runs gofmt, go vet and golangci-lint's standard linters. The
// sqlitevec driver only type checks with CGO, so this runs in goContainer.
//
// +check
func (c *Crmchat) CheckLint(ctx context.Context) (string, error) {
	ctr := c.goContainer("").
		WithExec([]string{
			"go", "install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	steps := [][]string{
		{"sh", "-c", `test -z "$(gofmt -l $(go list -f '{{.Dir}}' ./...))" || { gofmt -l .; exit 1; }`},
		{"go", "vet", "./..."},
		{"golangci-lint", "run", "--default", "standard", "./..."},
	}

	for _, step := range steps {
		ctr = ctr.WithExec(step)
	}

	out, err := ctr.Stdout(ctx)

	var e *dagger.ExecError
	if errors.As(err, &e) {
		return "", fmt.Errorf("lint failed:\n\n%s%s", e.Stdout, e.Stderr)
	} else if err != nil {
		return "", err
	}

	return out, nil
}

package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/turntable/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintContainer is goContainer with golangci-lint installed, so the cgo
// sqlite bindings type-check the same way they build.
func (t *Turntable) lintContainer() *dagger.Container {
	return t.goContainer("").
		WithMountedCache("/root/.cache/golangci-lint", dag.CacheVolume("golangci-lint")).
		WithExec([]string{
			"go", "install",
			"github.com/golangci/golangci-lint/v2/cmd/golangci-lint@" + golangciLintVersion,
		})
}

// CheckLint runs golangci-lint with .golangci.yml and fails on any finding.
//
// +check
func (t *Turntable) CheckLint(ctx context.Context) (string, error) {
	out, err := t.lintContainer().
		WithExec([]string{"golangci-lint", "run", "./..."}).
		Stdout(ctx)
	return out, execFailure("golangci-lint reported issues", err)
}

// FixLint applies golangci-lint fixes and formatters and returns the
// modified source directory.
func (t *Turntable) FixLint() *dagger.Directory {
	return t.lintContainer().
		WithExec([]string{"golangci-lint", "run", "--fix", "./..."},
			dagger.ContainerWithExecOpts{Expect: dagger.ReturnTypeAny}).
		WithExec([]string{"golangci-lint", "fmt", "./..."}).
		Directory("/src")
}

// CheckGoModTidy fails when "go mod tidy" would change go.mod or go.sum.
// A missing go.sum counts as untidy once the module has dependencies.
//
// +check
func (t *Turntable) CheckGoModTidy(ctx context.Context) (string, error) {
	out, err := t.goContainer("").
		WithExec([]string{"sh", "-c", "cp go.mod /tmp/go.mod && { cp go.sum /tmp/go.sum 2>/dev/null || touch /tmp/go.sum; }"}).
		WithExec([]string{"go", "mod", "tidy"}).
		WithExec([]string{"sh", "-c", "touch go.sum && diff -u /tmp/go.mod go.mod && diff -u /tmp/go.sum go.sum"}).
		Stdout(ctx)
	if err != nil {
		return "", execFailure("go.mod or go.sum are not tidy: run 'go mod tidy' and commit the changes", err)
	}
	return "go.mod and go.sum are tidy" + out, nil
}

// execFailure turns a failed exec into an error carrying its output.
func execFailure(msg string, err error) error {
	if err == nil {
		return nil
	}
	var e *dagger.ExecError
	if errors.As(err, &e) {
		return fmt.Errorf("%s\n\n%s%s", msg, e.Stdout, e.Stderr)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

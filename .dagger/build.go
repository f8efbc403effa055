package main

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"dagger/turntable/internal/dagger"
)

// releasePlatforms is the build matrix. go-sqlite3 is a cgo package, so each
// architecture builds natively in an emulated container instead of cross
// compiling.
var releasePlatforms = []dagger.Platform{"linux/amd64", "linux/arm64"}

// Build and return directory of turntable binaries, one per platform under
// <os>/<arch>/turntable
func (t *Turntable) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	outputs := dag.Directory()

	for _, platform := range releasePlatforms {
		dir := string(platform) + "/"

		build := t.goContainer(platform).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", dir + "turntable", "./cli/turntable"})

		outputs = outputs.WithDirectory(dir, build.Directory(dir))
	}

	return outputs
}

// BuildRelease compiles versioned binaries with embedded version info and a
// SHA256SUMS file covering every platform
func (t *Turntable) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now().UTC().Format(time.RFC3339)

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/turntable/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/turntable/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/turntable/pkg/utils.Buildtime=%s'", buildtime),
	}

	binaries := t.Build(ctx, strings.Join(ldflags, " "))

	sums := dag.Container().
		From("alpine:3.21").
		WithDirectory("/dist", binaries).
		WithWorkdir("/dist").
		WithExec([]string{"sh", "-c", "find . -type f -name turntable | sort | xargs sha256sum > SHA256SUMS"}).
		File("/dist/SHA256SUMS")

	return binaries.WithFile("SHA256SUMS", sums)
}

// Release builds release artifacts for version and syncs them to an
// S3-compatible bucket under the version prefix. Tagged releases also
// refresh "latest"; a version of "nightly" only updates the nightly prefix.
func (t *Turntable) Release(
	ctx context.Context,

	// Version string (e.g., "v1.0.0" or "nightly")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucket *dagger.Secret,

	// Bucket access key ID
	accessKeyID *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := t.BuildRelease(ctx, version, commit)

	endpointURL, err := endpoint.Plaintext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading bucket endpoint: %w", err)
	}
	bucketName, err := bucket.Plaintext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading bucket name: %w", err)
	}

	aws := dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", accessKeyID).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts")

	prefixes := []string{version}
	if version != "nightly" {
		prefixes = append(prefixes, "latest")
	}

	for _, prefix := range prefixes {
		destination := "s3://" + path.Join(bucketName, prefix)
		_, err := aws.
			WithExec([]string{"aws", "s3", "sync", ".", destination, "--endpoint-url", endpointURL}).
			Sync(ctx)
		if err != nil {
			return artifacts, fmt.Errorf("uploading %s artifacts: %w", prefix, err)
		}
	}

	return artifacts, nil
}

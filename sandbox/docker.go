package sandbox

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/SravanamCharan20/CodeClash/config"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
)

const (
	resultStartMarker = "__CODECLASH_RESULT_START__"
	resultEndMarker   = "__CODECLASH_RESULT_END__"
)

//go:embed runtime/runner.js
var javascriptRunner string

//go:embed runtime/runner.py
var pythonRunner string

var errOutputLimit = errors.New("output-limit-exceeded")

type runSpec struct {
	Image string
	Cmd   []string
	Stdin []byte
}

// containerRunner runs one throwaway container to completion.
type containerRunner interface {
	EnsureImage(ctx context.Context, image string) error
	Run(ctx context.Context, spec runSpec, stdout, stderr io.Writer) (exitCode int64, err error)
}

type DockerExecutor struct {
	runner containerRunner
	cfg    config.SandboxConfig
	logger zerolog.Logger
}

func NewDockerExecutor(cli client.APIClient, cfg config.SandboxConfig, logger zerolog.Logger) *DockerExecutor {
	return newDockerExecutor(&dockerRunner{cli: cli, cfg: cfg}, cfg, logger)
}

func newDockerExecutor(runner containerRunner, cfg config.SandboxConfig, logger zerolog.Logger) *DockerExecutor {
	return &DockerExecutor{runner: runner, cfg: cfg, logger: logger}
}

// Prepare pulls the language images that are missing on the host so the
// first submission does not pay for the download.
func (e *DockerExecutor) Prepare(ctx context.Context) error {
	for _, img := range []string{e.cfg.JavascriptImage, e.cfg.PythonImage} {
		if err := e.runner.EnsureImage(ctx, img); err != nil {
			return fmt.Errorf("prepare image %s: %w", img, err)
		}
		e.logger.Info().Str("image", img).Msg("sandbox image ready")
	}
	return nil
}

type runnerPayload struct {
	Code               string     `json:"code"`
	Tests              []TestCase `json:"tests"`
	StopOnFirstFailure bool       `json:"stopOnFirstFailure"`
	CompileTimeoutMs   int64      `json:"compileTimeoutMs"`
	MaxLogChars        int        `json:"maxLogChars"`
}

func (e *DockerExecutor) Execute(ctx context.Context, req Request) Result {
	if res, ok := Validate(req); !ok {
		return res
	}

	tests := req.Tests
	if len(tests) > MaxTestsPerExecution {
		tests = tests[:MaxTestsPerExecution]
	}

	payload, err := json.Marshal(runnerPayload{
		Code:               req.Code,
		Tests:              tests,
		StopOnFirstFailure: req.StopOnFirstFailure,
		CompileTimeoutMs:   e.cfg.CompileTimeout.Milliseconds(),
		MaxLogChars:        e.cfg.MaxLogChars,
	})
	if err != nil {
		return Failure(ErrorBadPayload, "Invalid execution payload")
	}

	spec := runSpec{Stdin: payload}
	switch req.Language {
	case JavaScript:
		spec.Image, spec.Cmd = e.cfg.JavascriptImage, []string{"node", "-e", javascriptRunner}
	case Python:
		spec.Image, spec.Cmd = e.cfg.PythonImage, []string{"python", "-c", pythonRunner}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out := newCappedOutput(e.cfg.MaxOutputBytes)
	exitCode, err := e.runner.Run(runCtx, spec, out.Stdout(), out.Stderr())

	switch {
	case errors.Is(err, errOutputLimit):
		return Failure(ErrorRuntime, "Execution output exceeded the allowed limit")
	case err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return Failure(ErrorTimeout, fmt.Sprintf("Execution timed out after %dms", e.cfg.Timeout.Milliseconds()))
	case err != nil:
		e.logger.Error().Err(err).Str("language", string(req.Language)).Msg("sandbox execution failed")
		return Failure(ErrorInfra, describeInfraError(err, out.stderr.String()))
	}

	return parseOutput(out.stdout.String(), out.stderr.String(), exitCode)
}

func parseOutput(stdout, stderr string, exitCode int64) Result {
	raw, found := extractPayload(stdout)
	if !found {
		switch {
		case exitCode == 137:
			return Failure(ErrorRuntime, "Execution was killed after exceeding its memory limit")
		case strings.TrimSpace(stdout) == "":
			return Failure(ErrorInfra, describeInfraError(nil, stderr))
		default:
			return Failure(ErrorRuntime, "Execution produced invalid output")
		}
	}

	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return Failure(ErrorRuntime, "Execution produced invalid output")
	}
	if res.Results == nil {
		res.Results = []TestResult{}
	}
	return res
}

// extractPayload takes the last framed verdict so user prints cannot spoof it.
func extractPayload(stdout string) (string, bool) {
	start := strings.LastIndex(stdout, resultStartMarker)
	if start < 0 {
		return "", false
	}
	start += len(resultStartMarker)
	end := strings.Index(stdout[start:], resultEndMarker)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(stdout[start : start+end]), true
}

func describeInfraError(err error, stderr string) string {
	lowered := strings.ToLower(stderr)
	if err != nil {
		lowered += " " + strings.ToLower(err.Error())
	}
	switch {
	case err != nil && client.IsErrConnectionFailed(err),
		strings.Contains(lowered, "cannot connect to the docker daemon"):
		return "Docker daemon is not reachable"
	case strings.Contains(lowered, "is the docker daemon running"):
		return "Docker daemon is not running"
	case err != nil && (errdefs.IsUnauthorized(err) || errdefs.IsForbidden(err)),
		strings.Contains(lowered, "permission denied") && strings.Contains(lowered, "docker"):
		return "Docker permission denied for backend process"
	case err != nil && errdefs.IsNotFound(err),
		strings.Contains(lowered, "unable to find image"), strings.Contains(lowered, "no such image"):
		return "Docker image is not available on this host"
	case errors.Is(err, context.Canceled):
		return "Execution was canceled"
	}
	return "Docker execution failed"
}

// cappedOutput shares one byte budget between stdout and stderr.
type cappedOutput struct {
	limit   int
	written int
	stdout  bytes.Buffer
	stderr  bytes.Buffer
}

func newCappedOutput(limit int) *cappedOutput {
	return &cappedOutput{limit: limit}
}

type cappedWriter struct {
	parent *cappedOutput
	buf    *bytes.Buffer
}

func (w cappedWriter) Write(p []byte) (int, error) {
	w.parent.written += len(p)
	if w.parent.limit > 0 && w.parent.written > w.parent.limit {
		return 0, errOutputLimit
	}
	return w.buf.Write(p)
}

func (c *cappedOutput) Stdout() io.Writer { return cappedWriter{parent: c, buf: &c.stdout} }
func (c *cappedOutput) Stderr() io.Writer { return cappedWriter{parent: c, buf: &c.stderr} }

type dockerRunner struct {
	cli client.APIClient
	cfg config.SandboxConfig
}

func (r *dockerRunner) EnsureImage(ctx context.Context, ref string) error {
	_, _, err := r.cli.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return fmt.Errorf("image inspect: %w", err)
	}

	progress, err := r.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("image pull: %w", err)
	}
	defer progress.Close()

	// The pull only completes once its progress stream is drained.
	_, err = io.Copy(io.Discard, progress)
	return err
}

func (r *dockerRunner) Run(ctx context.Context, spec runSpec, stdout, stderr io.Writer) (int64, error) {
	pids := r.cfg.PidsLimit
	created, err := r.cli.ContainerCreate(ctx,
		&container.Config{
			Image:           spec.Image,
			Cmd:             spec.Cmd,
			OpenStdin:       true,
			StdinOnce:       true,
			AttachStdin:     true,
			AttachStdout:    true,
			AttachStderr:    true,
			NetworkDisabled: true,
		},
		&container.HostConfig{
			NetworkMode: "none",
			Resources: container.Resources{
				NanoCPUs:  int64(r.cfg.CPUs * 1e9),
				Memory:    r.cfg.MemoryBytes,
				PidsLimit: &pids,
			},
		},
		nil, nil, "")
	if err != nil {
		return 0, fmt.Errorf("container create: %w", err)
	}

	defer func() {
		rmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = r.cli.ContainerRemove(rmCtx, created.ID, container.RemoveOptions{Force: true})
	}()

	attached, err := r.cli.ContainerAttach(ctx, created.ID, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return 0, fmt.Errorf("container attach: %w", err)
	}
	defer attached.Close()

	if err := r.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return 0, fmt.Errorf("container start: %w", err)
	}

	if _, err := attached.Conn.Write(spec.Stdin); err != nil {
		return 0, fmt.Errorf("write stdin: %w", err)
	}
	if err := attached.CloseWrite(); err != nil {
		return 0, fmt.Errorf("close stdin: %w", err)
	}

	copied := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(stdout, stderr, attached.Reader)
		copied <- err
	}()

	statusCh, errCh := r.cli.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	for {
		select {
		case err := <-copied:
			if err != nil {
				return 0, err
			}
			copied = nil
		case err := <-errCh:
			return 0, fmt.Errorf("container wait: %w", err)
		case status := <-statusCh:
			if status.Error != nil {
				return status.StatusCode, fmt.Errorf("container wait: %s", status.Error.Message)
			}
			if copied != nil {
				select {
				case err := <-copied:
					if err != nil {
						return status.StatusCode, err
					}
				case <-ctx.Done():
					return status.StatusCode, ctx.Err()
				}
			}
			return status.StatusCode, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

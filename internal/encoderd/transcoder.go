package encoderd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"framecast/internal/fault"
)

// stderrExcerptLimit bounds the diagnostic tail kept from the transcoder.
const stderrExcerptLimit = 4096

// Transcoder builds and runs the hardware-accelerated encoding subprocess.
// The encoding policy is fixed: NVENC H.264, 4:2:0 chroma subsampling,
// faststart container layout, GOP of twice the frame rate, no audio.
type Transcoder struct {
	Binary       string
	Scaler       string // resolved scaler: npp, cuda, or cpu
	TargetWidth  int
	TargetHeight int
	Limit        time.Duration // ceiling on one run
	Grace        time.Duration // wait after kill before abandoning
}

// encodeArgs returns the fixed output policy for the given frame rate.
func encodeArgs(frameRate int) []string {
	return []string{
		"-c:v", "h264_nvenc",
		"-preset", "p1",
		"-rc", "vbr",
		"-tune", "hq",
		"-cq", "30",
		"-b:v", "0",
		"-pix_fmt", "yuv420p",
		"-g", strconv.Itoa(frameRate * 2),
		"-movflags", "+faststart",
		"-threads", "0",
		"-an",
	}
}

// Args assembles the full command line: still images on stdin, the optional
// scaler chain, the fixed encode policy, and the spool file output.
func (t *Transcoder) Args(frameRate int, outputPath string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-y",
		"-f", "image2pipe",
		"-framerate", strconv.Itoa(frameRate),
		"-i", "pipe:0",
	}

	enc := encodeArgs(frameRate)
	if filter, gpu := t.scaleFilter(); filter != "" {
		args = append(args, "-vf", filter)
		if gpu {
			// A GPU-resident scaler already emits NV12; forcing a software
			// pixel format would insert an implicit download/upload pair.
			enc = stripPixFmt(enc)
		}
	}

	args = append(args, enc...)
	return append(args, outputPath)
}

// scaleFilter returns the filter chain for the configured target size and
// whether it keeps frames on the GPU. Empty when no scaling is requested.
// Target dimensions are rounded down to even values for 4:2:0 output.
func (t *Transcoder) scaleFilter() (string, bool) {
	tw, th := t.TargetWidth, t.TargetHeight
	if tw <= 0 || th <= 0 {
		return "", false
	}
	tw -= tw % 2
	th -= th % 2

	switch t.Scaler {
	case "npp":
		return fmt.Sprintf(
			"format=nv12,hwupload_cuda,scale_npp=%d:%d:interp_algo=lanczos:format=nv12,setsar=1",
			tw, th), true
	case "cuda":
		return fmt.Sprintf(
			"format=nv12,hwupload_cuda,scale_cuda=%d:%d:format=nv12,setsar=1",
			tw, th), true
	default:
		return fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease:flags=lanczos,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
			tw, th, tw, th), false
	}
}

func stripPixFmt(args []string) []string {
	out := args[:0]
	for i := 0; i < len(args); i++ {
		if args[i] == "-pix_fmt" && i+1 < len(args) {
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out
}

// Start launches one transcoder run writing to outputPath. The returned
// process owns its stdin pipe exclusively; it is bound to exactly one encode
// session.
func (t *Transcoder) Start(frameRate int, outputPath string) (*Process, error) {
	cmd := exec.Command(t.Binary, t.Args(frameRate, outputPath)...)

	stderr := &tailBuffer{limit: stderrExcerptLimit}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fault.Wrap(fault.ErrTranscoderProcess, "transcoder", "stdin pipe", "", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fault.Wrap(fault.ErrAcceleratorUnavailable, "transcoder", "launch", t.Binary, err)
	}

	return &Process{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		limit:  t.Limit,
		grace:  t.Grace,
	}, nil
}

// Process is one running transcoder subprocess.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
	limit  time.Duration
	grace  time.Duration

	closeOnce sync.Once
	killOnce  sync.Once
	waitOnce  sync.Once
	waitErr   error
}

// reap waits for the subprocess exactly once, shared by Wait and Kill.
func (p *Process) reap() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

// WriteFrame feeds one decoded frame payload to the subprocess in arrival
// order. Blocks when the subprocess input pipe is full.
func (p *Process) WriteFrame(payload []byte) error {
	if _, err := p.stdin.Write(payload); err != nil {
		return fault.Wrap(fault.ErrTranscoderProcess, "transcoder", "write frame", "", err)
	}
	return nil
}

// CloseInput signals end-of-input to the subprocess.
func (p *Process) CloseInput() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.stdin.Close()
	})
	return err
}

// Kill terminates the subprocess and reaps it within the grace period.
func (p *Process) Kill() {
	p.killOnce.Do(func() {
		_ = p.CloseInput()
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		done := make(chan struct{})
		go func() {
			_ = p.reap()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(p.grace):
		}
	})
}

// Wait blocks until the subprocess exits, the run limit elapses, or ctx is
// cancelled. Limit and cancellation kill the subprocess and report failure;
// a truncated artifact is never treated as success.
func (p *Process) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- p.reap()
	}()

	limit := p.limit
	if limit <= 0 {
		limit = 30 * time.Minute
	}
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case err := <-done:
		return p.classifyExit(err)
	case <-ctx.Done():
		p.Kill()
		<-done
		return ctx.Err()
	case <-timer.C:
		p.Kill()
		<-done
		return fault.Wrap(fault.ErrTranscoderProcess, "transcoder", "wait",
			"run limit exceeded", nil)
	}
}

func (p *Process) classifyExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fault.Wrap(fault.ErrTranscoderProcess, "transcoder", "exit",
			fmt.Sprintf("exit code %d", exitErr.ExitCode()), nil)
	}
	return fault.Wrap(fault.ErrTranscoderProcess, "transcoder", "wait", "", err)
}

// ExitCode returns the subprocess exit code, or -1 before exit.
func (p *Process) ExitCode() int {
	if p.cmd == nil || p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// StderrExcerpt returns the bounded tail of the subprocess's diagnostics.
func (p *Process) StderrExcerpt() string {
	return strings.TrimSpace(p.stderr.String())
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, p...)
	if len(b.data) > b.limit {
		b.data = b.data[len(b.data)-b.limit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}

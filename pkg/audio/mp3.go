package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// MP3Decoder decodes MP3 streams to raw PCM by piping them through an
// ffmpeg subprocess. The output format is always the package's playback
// format: little-endian 16-bit interleaved, [SampleRate] Hz, [Channels]
// channels.
type MP3Decoder struct {
	// Binary is the ffmpeg executable to run. Empty means "ffmpeg" resolved
	// via PATH.
	Binary string
}

// stderrLimit caps how much ffmpeg stderr is kept for error reporting.
const stderrLimit = 4096

// Decode launches the decoder subprocess over src and returns its PCM
// output stream. Closing the returned reader kills the subprocess; a clean
// EOF means the stream decoded fully.
func (d *MP3Decoder) Decode(ctx context.Context, src io.Reader) (io.ReadCloser, error) {
	bin := d.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("audio: locate decoder binary %q: %w", bin, err)
	}

	cmd := exec.CommandContext(ctx, path,
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"pipe:1",
	)
	cmd.Stdin = src

	var stderr limitedBuffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("audio: decoder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("audio: start decoder: %w", err)
	}

	return &pcmStream{cmd: cmd, out: stdout, stderr: &stderr}, nil
}

// pcmStream wraps the decoder subprocess. Read failures after the process
// exits carry the process error plus its stderr tail.
type pcmStream struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	stderr *limitedBuffer

	closeOnce sync.Once
	waitErr   error
}

func (s *pcmStream) Read(p []byte) (int, error) {
	n, err := s.out.Read(p)
	if err == io.EOF {
		if werr := s.wait(); werr != nil {
			return n, fmt.Errorf("audio: decoder: %w", werr)
		}
	}
	return n, err
}

func (s *pcmStream) Close() error {
	// Kill first: ffmpeg blocked on stdin would otherwise stall Wait.
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.wait()
	return nil
}

// wait reaps the subprocess once, killing it if still running.
func (s *pcmStream) wait() error {
	s.closeOnce.Do(func() {
		s.out.Close()
		if s.cmd.Process != nil {
			err := s.cmd.Wait()
			if err != nil {
				if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
					err = fmt.Errorf("%w: %s", err, msg)
				}
				s.waitErr = err
			}
		}
	})
	return s.waitErr
}

// limitedBuffer keeps at most stderrLimit bytes, discarding the rest.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := stderrLimit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

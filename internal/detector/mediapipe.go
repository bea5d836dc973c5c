package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/akushu/internal/logging"
)

const (
	// idleShutdown is how long the Python service may sit unused before it is stopped.
	idleShutdown = 30 * time.Second
	// loadTimeout bounds a restart of the service from within Detect.
	loadTimeout = time.Minute
)

const (
	serviceScript = "scripts/mediapipe_service.py"
	venvPython    = "venv/bin/python"
)

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Wire protocol: each request is a 4-byte big-endian length followed by a JPEG
// frame on stdin; each response is one JSON line on stdout with normalized
// keypoint coordinates. Missing coordinates are sent as null. Before the first
// request the service writes {"ready": true} once the model has loaded, or
// {"error": "..."} and exits.
type MediaPipeDetector struct {
	config    Config
	script    string
	idleAfter time.Duration

	mu   sync.Mutex
	proc *service
	idle *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector. The Python process is
// started by Load, or by the first Detect when Load was not called.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := locate(serviceScript)
	if script == "" {
		return nil, fmt.Errorf("%s not found", filepath.Base(serviceScript))
	}
	if config.MaxHands <= 0 {
		config.MaxHands = DefaultConfig().MaxHands
	}
	return &MediaPipeDetector{config: config, script: script, idleAfter: idleShutdown}, nil
}

// Load starts the service and waits for its model. A missing interpreter,
// missing mediapipe package or model failure is reported here.
func (d *MediaPipeDetector) Load(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.proc != nil {
		return nil
	}
	proc, err := startService(ctx, d.script, d.config)
	if err != nil {
		return err
	}
	d.proc = proc
	d.touch()
	return nil
}

// Detect encodes the frame, sends it to the service and returns the hands in
// frame pixel coordinates. If ctx ends first the service is killed, since the
// stream can no longer be resynchronized, and restarted on the next call.
func (d *MediaPipeDetector) Detect(ctx context.Context, frame *gocv.Mat) ([]Hand, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	jpeg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()
	width, height := float64(frame.Cols()), float64(frame.Rows())

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.proc == nil {
		// The service was stopped while idle or after a timeout. Reloading
		// the model is not bounded by the estimate deadline.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		proc, err := startService(lctx, d.script, d.config)
		cancel()
		if err != nil {
			return nil, err
		}
		d.proc = proc
	}
	proc := d.proc

	replies := make(chan reply, 1)
	go func() { replies <- proc.roundTrip(jpeg) }()

	select {
	case r := <-replies:
		if r.err != nil {
			// A broken pipe leaves the service unusable; start afresh next call.
			proc.kill()
			d.stop()
			return nil, r.err
		}
		d.touch()
		return parseResponse(r.line, width, height)
	case <-ctx.Done():
		proc.kill()
		<-replies
		d.stop()
		return nil, fmt.Errorf("estimate hands: %w", ctx.Err())
	}
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

// touch pushes back the idle shutdown. Callers hold d.mu.
func (d *MediaPipeDetector) touch() {
	if d.idle != nil {
		d.idle.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.idleAfter, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		// A timer that fired while Detect held the lock has been replaced.
		if d.idle != t {
			return
		}
		d.stop()
	})
	d.idle = t
}

// stop ends the service if it runs. Callers hold d.mu.
func (d *MediaPipeDetector) stop() error {
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	if d.proc == nil {
		return nil
	}
	err := d.proc.wait()
	d.proc = nil
	return err
}

// service is one running Python process and its pipes.
type service struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
}

type reply struct {
	line []byte
	err  error
}

func startService(ctx context.Context, script string, config Config) (*service, error) {
	python := locate(venvPython)
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, script,
		"--max-hands", strconv.Itoa(config.MaxHands),
		"--min-confidence", strconv.FormatFloat(config.MinConfidence, 'f', -1, 64),
	)
	cmd.Stderr = os.Stderr

	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mediapipe service: %w", err)
	}

	proc := &service{cmd: cmd, in: in, out: bufio.NewReader(out)}
	if err := proc.awaitReady(ctx); err != nil {
		proc.kill()
		proc.wait()
		return nil, err
	}

	logging.GetLogger().Info("mediapipe service started",
		"component", "detector", "python", python, "max_hands", config.MaxHands)
	return proc, nil
}

// awaitReady reads the status line the service writes after loading its model.
func (s *service) awaitReady(ctx context.Context) error {
	lines := make(chan reply, 1)
	go func() {
		line, err := s.out.ReadBytes('\n')
		lines <- reply{line: line, err: err}
	}()

	var r reply
	select {
	case r = <-lines:
	case <-ctx.Done():
		s.kill()
		<-lines
		return fmt.Errorf("load hand model: %w", ctx.Err())
	}
	if r.err != nil {
		return fmt.Errorf("mediapipe service exited before the model loaded: %w", r.err)
	}

	var status struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(r.line, &status); err != nil {
		return fmt.Errorf("parse service status: %w", err)
	}
	if !status.Ready {
		if status.Error == "" {
			status.Error = "model not ready"
		}
		return fmt.Errorf("mediapipe service: %s", status.Error)
	}
	return nil
}

// roundTrip sends one length-prefixed frame and reads the reply line.
func (s *service) roundTrip(frame []byte) reply {
	msg := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(msg, uint32(len(frame)))
	copy(msg[4:], frame)

	if _, err := s.in.Write(msg); err != nil {
		return reply{err: fmt.Errorf("write frame: %w", err)}
	}
	line, err := s.out.ReadBytes('\n')
	if err != nil {
		return reply{err: fmt.Errorf("read response: %w", err)}
	}
	return reply{line: line}
}

func (s *service) kill() {
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
}

// wait closes stdin, which asks the service to exit, and reaps it.
func (s *service) wait() error {
	s.in.Close()
	return s.cmd.Wait()
}

// locate resolves rel against the working directory, its parent, the
// executable's directory and ~/.akushu, returning the first that exists.
func locate(rel string) string {
	dirs := []string{".", ".."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".akushu"))
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, rel)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

// jsonPoint carries normalized coordinates; nil means the model gave none.
type jsonPoint struct {
	Name string   `json:"name"`
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
}

// parseResponse decodes one service response line and scales the normalized
// coordinates to pixels. Null coordinates become NaN so that they are
// filtered downstream like any other invalid keypoint.
func parseResponse(line []byte, width, height float64) ([]Hand, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", response.Error)
	}

	hands := make([]Hand, len(response.Hands))
	for i, h := range response.Hands {
		hands[i] = h.toHand(width, height)
	}
	return hands, nil
}

func (h jsonHand) toHand(width, height float64) Hand {
	hand := Hand{
		Handedness: h.Handedness,
		Score:      h.Score,
		Keypoints:  make([]Keypoint, 0, len(h.Points)),
	}

	for i, p := range h.Points {
		name := p.Name
		if name == "" && i < NumKeypoints {
			name = KeypointNames[i]
		}
		kp := Keypoint{Name: name, X: math.NaN(), Y: math.NaN()}
		if p.X != nil {
			kp.X = *p.X * width
		}
		if p.Y != nil {
			kp.Y = *p.Y * height
		}
		hand.Keypoints = append(hand.Keypoints, kp)
	}

	return hand
}

package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/samarth/internal/geom"
)

const scriptName = "landmark_service.py"

// Request modes understood by landmark_service.py.
const (
	modeFace byte = 'F'
	modeHand byte = 'H'
	modePose byte = 'P'
)

// MediaPipeProvider implements Provider using a Python MediaPipe subprocess.
// Frames are sent as a mode byte, a 4-byte big-endian length and a JPEG
// payload; the service answers with one JSON line per frame.
type MediaPipeProvider struct {
	config    Config
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewMediaPipeProvider creates a new MediaPipe provider.
// The Python process is started lazily on first detection.
func NewMediaPipeProvider(config Config) (*MediaPipeProvider, error) {
	if findScript(config.ScriptPath) == "" {
		return nil, fmt.Errorf("%s not found", scriptName)
	}
	return &MediaPipeProvider{config: config}, nil
}

// DetectFace returns the first face mesh in the frame.
func (d *MediaPipeProvider) DetectFace(frame *gocv.Mat) (*FaceLandmarks, error) {
	resp, err := d.roundTrip(modeFace, frame)
	if err != nil {
		return nil, err
	}
	if len(resp.Faces) == 0 {
		return nil, nil
	}
	w, h := frameSize(frame)
	face := &FaceLandmarks{Points: toPixels(resp.Faces[0].Points, w, h)}
	if !face.Valid() {
		return nil, fmt.Errorf("face mesh has %d points, want %d", len(face.Points), NumFaceLandmarks)
	}
	return face, nil
}

// DetectHands returns every detected hand in pixel coordinates.
func (d *MediaPipeProvider) DetectHands(frame *gocv.Mat) ([]HandLandmarks, error) {
	resp, err := d.roundTrip(modeHand, frame)
	if err != nil {
		return nil, err
	}
	w, h := frameSize(frame)
	result := make([]HandLandmarks, len(resp.Hands))
	for i, hand := range resp.Hands {
		result[i] = hand.toHandLandmarks(w, h)
	}
	return result, nil
}

// DetectPose returns the body pose in the frame.
func (d *MediaPipeProvider) DetectPose(frame *gocv.Mat) (*PoseLandmarks, error) {
	resp, err := d.roundTrip(modePose, frame)
	if err != nil {
		return nil, err
	}
	if resp.Pose == nil || len(resp.Pose.Points) < NumPoseLandmarks {
		return nil, nil
	}
	w, h := frameSize(frame)
	pose := &PoseLandmarks{}
	copy(pose.Points[:], toPixels(resp.Pose.Points, w, h))
	return pose, nil
}

// Close shuts down the Python process.
func (d *MediaPipeProvider) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeProvider) roundTrip(mode byte, frame *gocv.Mat) (*jsonResponse, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	header := make([]byte, 5)
	header[0] = mode
	binary.BigEndian.PutUint32(header[1:], uint32(len(data)))

	if _, err := d.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp jsonResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("landmark service: %s", resp.Error)
	}

	d.resetIdleTimer()
	return &resp, nil
}

func (d *MediaPipeProvider) ensureStarted() error {
	if d.started {
		return nil
	}

	scriptPath := findScript(d.config.ScriptPath)
	if scriptPath == "" {
		return fmt.Errorf("%s not found", scriptName)
	}

	pythonPath := d.config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, scriptPath,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start landmark service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *MediaPipeProvider) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeProvider) resetIdleTimer() {
	idle := time.Duration(d.config.IdleSeconds) * time.Second
	if idle <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idle, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findScript(override string) string {
	if override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
		return ""
	}

	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", scriptName),
		filepath.Join("..", "scripts", scriptName),
		filepath.Join(execDir, "scripts", scriptName),
		filepath.Join(os.Getenv("HOME"), ".samarth", "scripts", scriptName),
	}
	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".samarth/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

func frameSize(frame *gocv.Mat) (float64, float64) {
	return float64(frame.Cols()), float64(frame.Rows())
}

// jsonResponse is the line written by landmark_service.py. Coordinates are
// normalized to [0,1]; z shares the scale of x.
type jsonResponse struct {
	Faces []jsonMesh `json:"faces"`
	Hands []jsonHand `json:"hands"`
	Pose  *jsonMesh  `json:"pose"`
	Error string     `json:"error"`
}

type jsonMesh struct {
	Points []jsonPoint `json:"points"`
}

type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func toPixels(points []jsonPoint, w, h float64) []geom.Point3D {
	out := make([]geom.Point3D, len(points))
	for i, p := range points {
		out[i] = geom.Point3D{X: p.X * w, Y: p.Y * h, Z: p.Z * w}
	}
	return out
}

func (h jsonHand) toHandLandmarks(w, hgt float64) HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	pts := toPixels(h.Points, w, hgt)
	for i := 0; i < NumHandLandmarks && i < len(pts); i++ {
		lm.Points[i] = pts[i]
	}
	return lm
}

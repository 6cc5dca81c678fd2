package transport

import (
	"fmt"
	"sync"
	"time"
)

// Sim is an in-memory Transport used by tests and by callers that want to
// exercise the capture lifecycle without a camera attached. It models one
// enumerable device whose payload size follows the Width, Height and
// PixelFormat features, records every announce/queue/revoke, and can deliver
// synthetic frame completions on demand.
//
// Failure injection knobs make the unwind paths reachable: set FailAnnounceAt,
// FailQueueAt, RevokeBusy or an entry in FailCommand before the call under
// test.
type Sim struct {
	mu sync.Mutex

	// Device identity.
	Info DeviceInfo

	// Feature tree (device module). Keys are GenICam-style feature names.
	ints   map[string]int64
	floats map[string]float64
	enums  map[string]string
	bools  map[string]bool

	enumOptions map[string][]string
	intRanges   map[string][3]int64
	floatRanges map[string][3]float64

	// Stream module features.
	streamInts map[string]int64

	started  bool
	open     bool
	engineOn bool

	announced []*FrameDescriptor
	queue     []queued

	// Failure injection. Zero values disable injection.

	// FailStartup makes Startup fail.
	FailStartup error
	// FailAnnounceAt makes the n-th AnnounceBuffer call (1-based) fail.
	FailAnnounceAt int
	// FailQueueAt makes the n-th QueueBuffer call (1-based) fail.
	FailQueueAt int
	// RevokeBusy makes the next n RevokeAllBuffers calls fail with ErrBusy.
	RevokeBusy int
	// FailCommand maps command names to injected errors.
	FailCommand map[string]error
	// FailEngineStart makes StartCaptureEngine fail.
	FailEngineStart error

	// Counters observable by tests.

	// AlignmentQueries counts BufferAlignment calls.
	AlignmentQueries int
	// AnnounceCalls counts AnnounceBuffer calls.
	AnnounceCalls int
	// QueueCalls counts QueueBuffer calls.
	QueueCalls int
	// RevokeCalls counts RevokeAllBuffers calls.
	RevokeCalls int
	// FlushCalls counts FlushQueue calls.
	FlushCalls int
	// Commands records every RunCommand name in order.
	Commands []string

	frameID uint64
}

type queued struct {
	frame      *FrameDescriptor
	onComplete CompletionFunc
}

type simDevice struct{ id string }

func (d simDevice) DeviceID() string { return d.id }

type simStream struct{ id string }

func (s simStream) StreamID() string { return s.id }

// NewSim returns a Sim with one 64x64 Mono8 device, the geometry the capture
// tests are written against.
func NewSim() *Sim {
	s := &Sim{
		Info: DeviceInfo{ID: "SIM-0", Model: "SimCam", Serial: "0001", Streams: 1},
		ints: map[string]int64{
			"Width":                    64,
			"Height":                   64,
			"OffsetX":                  0,
			"OffsetY":                  0,
			"SensorWidth":              4096,
			"SensorHeight":             2160,
			"BinningHorizontal":        1,
			"BinningVertical":          1,
			"DeviceIndicatorLuminance": 10,
			"DeviceLinkSpeed":          10000,
			"DeviceLinkThroughputLimit": 450,
		},
		floats: map[string]float64{
			"ExposureTime":         5000.0,
			"Gain":                 1.0,
			"AcquisitionFrameRate": 30.0,
			"DeviceTemperature":    42.5,
			"TriggerDelay":         0.0,
			"LineDebounceDuration": 0.0,
		},
		enums: map[string]string{
			"PixelFormat":               "Mono8",
			"SensorBitDepth":            "Bpp8",
			"DeviceTemperatureSelector": "Mainboard",
			"DeviceIndicatorMode":       "Active",
			"BinningHorizontalMode":     "Sum",
			"BinningVerticalMode":       "Sum",
			"LineSelector":              "Line0",
			"LineMode":                  "Input",
			"TriggerSource":             "Software",
			"LineDebounceMode":          "Off",
		},
		bools: map[string]bool{
			"ReverseX":                 false,
			"ReverseY":                 false,
			"AcquisitionFrameRateEnable": true,
			"LineInverter":             false,
		},
		enumOptions: map[string][]string{
			"PixelFormat":               {"Mono8", "Mono12", "RGB8"},
			"SensorBitDepth":            {"Bpp8", "Bpp10", "Bpp12"},
			"DeviceTemperatureSelector": {"Mainboard", "Sensor"},
			"DeviceIndicatorMode":       {"Off", "Active", "Inactive"},
			"LineSelector":              {"Line0", "Line1", "Line2", "Line3"},
			"LineMode":                  {"Input", "Output"},
			"TriggerSource":             {"Software", "Line0", "Line1"},
			"LineDebounceMode":          {"Off", "RisingEdge", "FallingEdge"},
		},
		intRanges: map[string][3]int64{
			"Width":                    {8, 4096, 8},
			"Height":                   {8, 2160, 2},
			"DeviceIndicatorLuminance": {0, 255, 1},
			"DeviceLinkThroughputLimit": {1, 450, 1},
		},
		floatRanges: map[string][3]float64{
			"ExposureTime":         {10.0, 1e7, 1.0},
			"Gain":                 {0.0, 48.0, 0.1},
			"AcquisitionFrameRate": {0.1, 120.0, 0.0},
			"LineDebounceDuration": {0.0, 2e5, 1.0},
		},
		streamInts: map[string]int64{
			"StreamBufferAlignment": 64,
		},
	}
	return s
}

// Startup implements Transport.
func (s *Sim) Startup(configPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailStartup != nil {
		return s.FailStartup
	}
	s.started = true
	return nil
}

// Shutdown implements Transport.
func (s *Sim) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
}

// EnumerateDevices implements Transport.
func (s *Sim) EnumerateDevices() ([]DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotInitialized
	}
	return []DeviceInfo{s.Info}, nil
}

// OpenDevice implements Transport.
func (s *Sim) OpenDevice(id string, mode AccessMode) (DeviceRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotInitialized
	}
	if id != s.Info.ID {
		return nil, fmt.Errorf("sim: open %q: %w", id, ErrNotFound)
	}
	if s.open {
		return nil, fmt.Errorf("sim: open %q: %w", id, ErrBusy)
	}
	s.open = true
	return simDevice{id: id}, nil
}

// CloseDevice implements Transport.
func (s *Sim) CloseDevice(dev DeviceRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return fmt.Errorf("sim: close: %w", ErrNotInitialized)
	}
	s.open = false
	return nil
}

func bytesPerPixel(format string) uint32 {
	switch format {
	case "Mono8":
		return 1
	case "Mono12":
		return 2
	case "RGB8":
		return 3
	default:
		return 1
	}
}

// PayloadSize implements Transport. Payload follows the current Width,
// Height and PixelFormat features, like a real GenTL payload-size query.
func (s *Sim) PayloadSize(dev DeviceRef) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := uint32(s.ints["Width"])
	h := uint32(s.ints["Height"])
	return w * h * bytesPerPixel(s.enums["PixelFormat"]), nil
}

// BufferAlignment implements Transport.
func (s *Sim) BufferAlignment(dev DeviceRef) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AlignmentQueries++
	return s.streamInts["StreamBufferAlignment"], nil
}

// AnnounceBuffer implements Transport.
func (s *Sim) AnnounceBuffer(dev DeviceRef, frame *FrameDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AnnounceCalls++
	if s.FailAnnounceAt > 0 && s.AnnounceCalls == s.FailAnnounceAt {
		return fmt.Errorf("sim: announce slot %d: %w", frame.Index, ErrResources)
	}
	if frame.Buffer == nil {
		return fmt.Errorf("sim: announce slot %d: nil buffer: %w", frame.Index, ErrBadParameter)
	}
	s.announced = append(s.announced, frame)
	return nil
}

// RevokeAllBuffers implements Transport.
func (s *Sim) RevokeAllBuffers(dev DeviceRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RevokeCalls++
	if s.RevokeBusy > 0 {
		s.RevokeBusy--
		return fmt.Errorf("sim: revoke: frames in flight: %w", ErrBusy)
	}
	s.announced = nil
	return nil
}

// QueueBuffer implements Transport.
func (s *Sim) QueueBuffer(dev DeviceRef, frame *FrameDescriptor, onComplete CompletionFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueueCalls++
	if s.FailQueueAt > 0 && s.QueueCalls == s.FailQueueAt {
		return fmt.Errorf("sim: queue slot %d: %w", frame.Index, ErrResources)
	}
	// Buffers may be queued before the engine starts; they sit in the queue
	// until Deliver runs with the engine on.
	s.queue = append(s.queue, queued{frame: frame, onComplete: onComplete})
	return nil
}

// StartCaptureEngine implements Transport.
func (s *Sim) StartCaptureEngine(dev DeviceRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailEngineStart != nil {
		return s.FailEngineStart
	}
	s.engineOn = true
	return nil
}

// EndCaptureEngine implements Transport.
func (s *Sim) EndCaptureEngine(dev DeviceRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engineOn = false
	return nil
}

// FlushQueue implements Transport.
func (s *Sim) FlushQueue(dev DeviceRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FlushCalls++
	s.queue = nil
}

// RunCommand implements Transport. "AcquisitionStart"/"AcquisitionStop" are
// accepted on the device module; "GVSPAdjustPacketSize" on the stream module.
func (s *Sim) RunCommand(dev DeviceRef, mod Module, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Commands = append(s.Commands, name)
	if err, ok := s.FailCommand[name]; ok && err != nil {
		return err
	}
	return nil
}

// CommandDone implements Transport. Commands complete immediately.
func (s *Sim) CommandDone(dev DeviceRef, mod Module, name string) (bool, error) {
	return true, nil
}

// Deliver completes n frames by dequeuing descriptors in FIFO order and
// invoking their completion callbacks on the calling goroutine. Callbacks
// that re-queue keep the cycle going, so n may exceed the number of
// announced buffers. Returns the number actually delivered (short when the
// queue drains, e.g. after a stop).
func (s *Sim) Deliver(n int) int {
	delivered := 0
	for i := 0; i < n; i++ {
		s.mu.Lock()
		if !s.engineOn || len(s.queue) == 0 {
			s.mu.Unlock()
			break
		}
		q := s.queue[0]
		s.queue = s.queue[1:]
		s.frameID++
		q.frame.FrameID = s.frameID
		q.frame.Timestamp = time.Now()
		q.frame.Payload = uint32(len(q.frame.Buffer))
		q.frame.Complete = true
		dev := simDevice{id: s.Info.ID}
		s.mu.Unlock()

		// Callback runs unlocked: it re-enters QueueBuffer.
		q.onComplete(dev, simStream{id: s.Info.ID + ":0"}, q.frame)
		delivered++
	}
	return delivered
}

// Announced returns the currently announced descriptors.
func (s *Sim) Announced() []*FrameDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FrameDescriptor, len(s.announced))
	copy(out, s.announced)
	return out
}

// QueueDepth returns the number of descriptors waiting for completion.
func (s *Sim) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// EngineRunning reports whether the capture engine is started.
func (s *Sim) EngineRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engineOn
}

func (s *Sim) featureErr(name string) error {
	return fmt.Errorf("sim: feature %q: %w", name, ErrNotSupported)
}

// GetInt implements Transport.
func (s *Sim) GetInt(dev DeviceRef, mod Module, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mod == ModuleStream {
		if v, ok := s.streamInts[name]; ok {
			return v, nil
		}
		return 0, s.featureErr(name)
	}
	v, ok := s.ints[name]
	if !ok {
		return 0, s.featureErr(name)
	}
	return v, nil
}

// SetInt implements Transport.
func (s *Sim) SetInt(dev DeviceRef, mod Module, name string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mod == ModuleStream {
		if _, ok := s.streamInts[name]; !ok {
			return s.featureErr(name)
		}
		s.streamInts[name] = value
		return nil
	}
	if _, ok := s.ints[name]; !ok {
		return s.featureErr(name)
	}
	if r, ok := s.intRanges[name]; ok && (value < r[0] || value > r[1]) {
		return fmt.Errorf("sim: feature %q: %d out of [%d, %d]: %w", name, value, r[0], r[1], ErrInvalidValue)
	}
	s.ints[name] = value
	return nil
}

// IntRange implements Transport.
func (s *Sim) IntRange(dev DeviceRef, mod Module, name string) (int64, int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.intRanges[name]
	if !ok {
		return 0, 0, 0, s.featureErr(name)
	}
	return r[0], r[1], r[2], nil
}

// GetFloat implements Transport.
func (s *Sim) GetFloat(dev DeviceRef, mod Module, name string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.floats[name]
	if !ok {
		return 0, s.featureErr(name)
	}
	return v, nil
}

// SetFloat implements Transport.
func (s *Sim) SetFloat(dev DeviceRef, mod Module, name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.floats[name]; !ok {
		return s.featureErr(name)
	}
	if r, ok := s.floatRanges[name]; ok && (value < r[0] || value > r[1]) {
		return fmt.Errorf("sim: feature %q: %g out of [%g, %g]: %w", name, value, r[0], r[1], ErrInvalidValue)
	}
	s.floats[name] = value
	return nil
}

// FloatRange implements Transport.
func (s *Sim) FloatRange(dev DeviceRef, mod Module, name string) (float64, float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.floatRanges[name]
	if !ok {
		return 0, 0, 0, s.featureErr(name)
	}
	return r[0], r[1], r[2], nil
}

// GetEnum implements Transport.
func (s *Sim) GetEnum(dev DeviceRef, mod Module, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.enums[name]
	if !ok {
		return "", s.featureErr(name)
	}
	return v, nil
}

// SetEnum implements Transport.
func (s *Sim) SetEnum(dev DeviceRef, mod Module, name string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts, ok := s.enumOptions[name]
	if !ok {
		if _, exists := s.enums[name]; !exists {
			return s.featureErr(name)
		}
		s.enums[name] = value
		return nil
	}
	for _, o := range opts {
		if o == value {
			s.enums[name] = value
			return nil
		}
	}
	return fmt.Errorf("sim: feature %q: option %q: %w", name, value, ErrInvalidValue)
}

// EnumRange implements Transport. Every option reports as available.
func (s *Sim) EnumRange(dev DeviceRef, mod Module, name string) ([]string, []bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts, ok := s.enumOptions[name]
	if !ok {
		return nil, nil, s.featureErr(name)
	}
	out := make([]string, len(opts))
	copy(out, opts)
	avail := make([]bool, len(opts))
	for i := range avail {
		avail[i] = true
	}
	return out, avail, nil
}

// GetBool implements Transport.
func (s *Sim) GetBool(dev DeviceRef, mod Module, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.bools[name]
	if !ok {
		return false, s.featureErr(name)
	}
	return v, nil
}

// SetBool implements Transport.
func (s *Sim) SetBool(dev DeviceRef, mod Module, name string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bools[name]; !ok {
		return s.featureErr(name)
	}
	s.bools[name] = value
	return nil
}

var _ Transport = (*Sim)(nil)

//go:build windows && (amd64 || arm64)

// ABOUTME: Native WASAPI shared-mode loopback endpoint
// ABOUTME: Event-driven capture of the default render endpoint's mix format
package endpoint

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

func init() {
	register(BackendWASAPI, func(cfg Config, log zerolog.Logger) (Endpoint, error) {
		return NewWASAPI(log), nil
	})
}

// WASAPI COM GUIDs
var (
	clsidMMDeviceEnumerator = ole.NewGUID("{BCDE0395-E52F-467C-8E3D-C4579291692E}")
	iidIMMDeviceEnumerator  = ole.NewGUID("{A95664D2-9614-4F35-A746-DE8DB63617E6}")
	iidIAudioClient         = ole.NewGUID("{1CB9AD4C-DBFA-4C32-B178-C2F568A703B2}")
	iidIAudioCaptureClient  = ole.NewGUID("{C8ADBD64-E71E-48A0-A4DE-185C395CD317}")
)

// WASAPI constants
const (
	eRender                    = 0
	eConsole                   = 0
	clsctxAll                  = 0x1 | 0x2 | 0x4 | 0x10
	audclntShareModeShared     = 0
	audclntStreamLoopback      = 0x00020000
	audclntStreamEventCallback = 0x00040000
	audclntBufferFlagsDiscont  = 0x1
	audclntBufferFlagsSilent   = 0x2
	bufferDuration100ns        = 200 * 10000 // 200ms
	waveFormatExHeaderSize     = 18

	// COM vtable indices (IUnknown = 0,1,2; interface methods start at 3)
	mmdeGetDefaultAudioEndpoint = 4  // IMMDeviceEnumerator::GetDefaultAudioEndpoint
	mmDeviceActivate            = 3  // IMMDevice::Activate
	audioClientInitialize       = 3  // IAudioClient::Initialize
	audioClientGetMixFormat     = 8  // IAudioClient::GetMixFormat
	audioClientStart            = 10 // IAudioClient::Start
	audioClientStop             = 11 // IAudioClient::Stop
	audioClientSetEventHandle   = 13 // IAudioClient::SetEventHandle
	audioClientGetService       = 14 // IAudioClient::GetService
	capClientGetBuffer          = 3  // IAudioCaptureClient::GetBuffer
	capClientReleaseBuffer      = 4  // IAudioCaptureClient::ReleaseBuffer
	capClientGetNextPacketSize  = 5  // IAudioCaptureClient::GetNextPacketSize
)

// WASAPI captures the default render endpoint in shared-mode loopback
type WASAPI struct {
	log zerolog.Logger

	mu            sync.Mutex
	apt           *apartment
	enumerator    *ole.IUnknown
	device        uintptr
	audioClient   uintptr
	captureClient uintptr
	event         windows.Handle
	blockAlign    int
	format        audio.Format
	started       bool
}

// NewWASAPI creates a WASAPI loopback endpoint
func NewWASAPI(log zerolog.Logger) *WASAPI {
	return &WASAPI{log: log}
}

func (w *WASAPI) Name() string { return BackendWASAPI }

// Open activates the audio client on the default render endpoint and
// initializes it for event-driven loopback in its mix format
func (w *WASAPI) Open() (audio.Format, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.captureClient != 0 {
		return w.format, nil
	}

	apt, err := startApartment()
	if err != nil {
		return audio.Format{}, err
	}

	if err := apt.do(w.open); err != nil {
		apt.do(func() error { w.release(); return nil })
		apt.shutdown()
		return audio.Format{}, err
	}

	w.apt = apt
	return w.format, nil
}

// open runs on the apartment thread; on error the caller releases whatever
// was acquired
func (w *WASAPI) open() error {
	enumerator, err := ole.CoCreateInstance(clsidMMDeviceEnumerator, iidIMMDeviceEnumerator)
	if err != nil {
		return fmt.Errorf("CoCreateInstance MMDeviceEnumerator: %w", err)
	}
	w.enumerator = enumerator

	// Default render endpoint; the loopback flag captures what it plays
	var device uintptr
	if _, err := comCall(uintptr(unsafe.Pointer(enumerator)), mmdeGetDefaultAudioEndpoint,
		uintptr(eRender), uintptr(eConsole), uintptr(unsafe.Pointer(&device))); err != nil {
		return fmt.Errorf("GetDefaultAudioEndpoint: %w", err)
	}
	w.device = device

	var audioClient uintptr
	if _, err := comCall(device, mmDeviceActivate,
		uintptr(unsafe.Pointer(iidIAudioClient)),
		uintptr(clsctxAll),
		0,
		uintptr(unsafe.Pointer(&audioClient)),
	); err != nil {
		return fmt.Errorf("Activate IAudioClient: %w", err)
	}
	w.audioClient = audioClient

	var mixFormatPtr uintptr
	if _, err := comCall(audioClient, audioClientGetMixFormat, uintptr(unsafe.Pointer(&mixFormatPtr))); err != nil {
		return fmt.Errorf("GetMixFormat: %w", err)
	}
	if mixFormatPtr == 0 {
		return fmt.Errorf("GetMixFormat returned no format")
	}
	// Free COM memory once Initialize has consumed it
	defer ole.CoTaskMemFree(mixFormatPtr)

	header := unsafe.Slice((*byte)(unsafe.Pointer(mixFormatPtr)), waveFormatExHeaderSize)
	size := waveFormatExHeaderSize + int(uint16(header[16])|uint16(header[17])<<8)
	wf, err := audio.ParseWaveFormat(unsafe.Slice((*byte)(unsafe.Pointer(mixFormatPtr)), size))
	if err != nil {
		return fmt.Errorf("mix format: %w", err)
	}

	w.format = wf.Format()
	w.blockAlign = wf.BlockAlign
	w.log.Info().
		Int("channels", wf.Channels).
		Int("sample_rate", wf.SampleRate).
		Int("bits", wf.BitsPerSample).
		Str("encoding", w.format.Encoding.String()).
		Msg("Endpoint mix format")

	if _, err := comCall(audioClient, audioClientInitialize,
		uintptr(audclntShareModeShared),
		uintptr(audclntStreamLoopback|audclntStreamEventCallback),
		uintptr(bufferDuration100ns),
		0, // periodicity
		mixFormatPtr,
		0, // AudioSessionGuid
	); err != nil {
		return fmt.Errorf("Initialize: %w", err)
	}

	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return fmt.Errorf("CreateEvent: %w", err)
	}
	w.event = event

	if _, err := comCall(audioClient, audioClientSetEventHandle, uintptr(event)); err != nil {
		return fmt.Errorf("SetEventHandle: %w", err)
	}

	var captureClient uintptr
	if _, err := comCall(audioClient, audioClientGetService,
		uintptr(unsafe.Pointer(iidIAudioCaptureClient)),
		uintptr(unsafe.Pointer(&captureClient)),
	); err != nil {
		return fmt.Errorf("GetService IAudioCaptureClient: %w", err)
	}
	w.captureClient = captureClient
	return nil
}

// release drops every acquired COM object and the event (apartment thread)
func (w *WASAPI) release() {
	comRelease(w.captureClient)
	w.captureClient = 0
	comRelease(w.audioClient)
	w.audioClient = 0
	if w.event != 0 {
		windows.CloseHandle(w.event)
		w.event = 0
	}
	comRelease(w.device)
	w.device = 0
	if w.enumerator != nil {
		w.enumerator.Release()
		w.enumerator = nil
	}
}

func (w *WASAPI) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.audioClient == 0 {
		return ErrNotOpen
	}
	if w.started {
		return nil
	}
	if _, err := comCall(w.audioClient, audioClientStart); err != nil {
		return fmt.Errorf("Start: %w", err)
	}
	w.started = true
	return nil
}

func (w *WASAPI) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.audioClient == 0 || !w.started {
		return nil
	}
	w.started = false
	if _, err := comCall(w.audioClient, audioClientStop); err != nil {
		return fmt.Errorf("Stop: %w", err)
	}
	return nil
}

// Wait blocks on the buffer-ready event
func (w *WASAPI) Wait(timeout time.Duration) (bool, error) {
	if w.event == 0 {
		return false, ErrNotOpen
	}

	ev, err := windows.WaitForSingleObject(w.event, uint32(timeout/time.Millisecond))
	switch ev {
	case windows.WAIT_OBJECT_0:
		return true, nil
	case uint32(windows.WAIT_TIMEOUT):
		return false, nil
	default:
		return false, fmt.Errorf("WaitForSingleObject: %w", err)
	}
}

// Wake sets the event so a blocked Wait returns
func (w *WASAPI) Wake() {
	if w.event != 0 {
		windows.SetEvent(w.event)
	}
}

// NextPacket fetches the next buffer from the capture client. Silent
// packets carry no data.
func (w *WASAPI) NextPacket() (Packet, bool, error) {
	if w.captureClient == 0 {
		return Packet{}, false, ErrNotOpen
	}

	var size uint32
	if _, err := comCall(w.captureClient, capClientGetNextPacketSize, uintptr(unsafe.Pointer(&size))); err != nil {
		return Packet{}, false, fmt.Errorf("GetNextPacketSize: %w", err)
	}
	if size == 0 {
		return Packet{}, false, nil
	}

	var (
		dataPtr   uintptr
		numFrames uint32
		flags     uint32
	)
	if _, err := comCall(w.captureClient, capClientGetBuffer,
		uintptr(unsafe.Pointer(&dataPtr)),
		uintptr(unsafe.Pointer(&numFrames)),
		uintptr(unsafe.Pointer(&flags)),
		0, // devicePosition
		0, // qpcPosition
	); err != nil {
		return Packet{}, false, fmt.Errorf("GetBuffer: %w", err)
	}

	p := Packet{Frames: int(numFrames)}
	if flags&audclntBufferFlagsDiscont != 0 {
		p.Flags |= FlagDiscontinuity
	}
	if flags&audclntBufferFlagsSilent != 0 {
		p.Flags |= FlagSilent
	} else if dataPtr != 0 && numFrames > 0 {
		p.Data = unsafe.Slice((*byte)(unsafe.Pointer(dataPtr)), int(numFrames)*w.blockAlign)
	}
	return p, true, nil
}

// Release hands the packet's frames back to the capture client
func (w *WASAPI) Release(p Packet) {
	if w.captureClient == 0 {
		return
	}
	if _, err := comCall(w.captureClient, capClientReleaseBuffer, uintptr(p.Frames)); err != nil {
		w.log.Warn().Err(err).Msg("WASAPI ReleaseBuffer failed")
	}
}

// Close releases the audio client, device and event on the apartment thread
func (w *WASAPI) Close() error {
	if err := w.Stop(); err != nil {
		w.log.Warn().Err(err).Msg("Audio client stop error")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.apt == nil {
		return nil
	}
	w.apt.do(func() error { w.release(); return nil })
	w.apt.shutdown()
	w.apt = nil
	return nil
}

//go:build linux && (amd64 || arm64)

package alsa

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mixer represents an open control device handle.
type Mixer struct {
	file     *os.File
	cardInfo sndCtlCardInfo
	Ctls     []*MixerCtl
	ctlMap   map[string][]*MixerCtl // Maps a name to one or more controls
	ctlIdMap map[uint32]*MixerCtl
}

// MixerOpen opens the control device of a card in non-blocking mode and enumerates its controls.
func MixerOpen(card uint) (*Mixer, error) {
	path := fmt.Sprintf("/dev/snd/controlC%d", card)

	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open mixer device %s: %w", path, err)
	}

	mixer := &Mixer{
		file:     file,
		ctlMap:   make(map[string][]*MixerCtl),
		ctlIdMap: make(map[uint32]*MixerCtl),
	}

	if err := ioctl(mixer.file.Fd(), SNDRV_CTL_IOCTL_CARD_INFO, uintptr(unsafe.Pointer(&mixer.cardInfo))); err != nil {
		_ = mixer.Close()

		return nil, fmt.Errorf("ioctl CARD_INFO failed: %w", err)
	}

	if err := mixer.enumerateAllControls(); err != nil {
		_ = mixer.Close()

		return nil, fmt.Errorf("failed to enumerate controls: %w", err)
	}

	return mixer, nil
}

// Close closes the mixer device handle.
func (m *Mixer) Close() error {
	if m == nil || m.file == nil {
		return nil
	}

	err := m.file.Close()
	m.file = nil

	return err
}

// Name returns the name of the sound card.
func (m *Mixer) Name() string {
	if m == nil {
		return ""
	}

	return cString(m.cardInfo.Name[:])
}

// NumCtls returns the total number of controls found on the mixer.
func (m *Mixer) NumCtls() int {
	if m == nil {
		return 0
	}

	return len(m.Ctls)
}

// Ctl returns a mixer control by its numeric ID.
func (m *Mixer) Ctl(id uint32) (*MixerCtl, error) {
	if m == nil {
		return nil, fmt.Errorf("mixer is nil")
	}

	ctl, ok := m.ctlIdMap[id]
	if !ok {
		return nil, fmt.Errorf("control with id %d not found", id)
	}

	return ctl, nil
}

// CtlByName returns the first mixer control found with the given name.
func (m *Mixer) CtlByName(name string) (*MixerCtl, error) {
	return m.CtlByNameAndIndex(name, 0)
}

// CtlByNameAndIndex returns a specific mixer control handle by name and index.
func (m *Mixer) CtlByNameAndIndex(name string, index uint) (*MixerCtl, error) {
	if m == nil {
		return nil, fmt.Errorf("mixer is nil")
	}

	ctls, ok := m.ctlMap[name]
	if !ok {
		return nil, fmt.Errorf("control not found: %s", name)
	}

	if index >= uint(len(ctls)) {
		return nil, fmt.Errorf("index %d out of bounds for control %s", index, name)
	}

	return ctls[index], nil
}

// SubscribeEvents enables or disables event generation for this mixer handle.
func (m *Mixer) SubscribeEvents(enable bool) error {
	if m == nil {
		return fmt.Errorf("mixer is nil")
	}

	var val int32
	if enable {
		val = 1
	}

	if err := ioctl(m.file.Fd(), SNDRV_CTL_IOCTL_SUBSCRIBE_EVENTS, uintptr(unsafe.Pointer(&val))); err != nil {
		return fmt.Errorf("ioctl SUBSCRIBE_EVENTS failed: %w", err)
	}

	return nil
}

// ReadEvent reads a pending mixer event. It returns unix.EAGAIN when no event is queued.
func (m *Mixer) ReadEvent() (*MixerEvent, error) {
	if m == nil {
		return nil, fmt.Errorf("mixer is nil")
	}

	var ev sndCtlEvent
	buffer := unsafe.Slice((*byte)(unsafe.Pointer(&ev)), unsafe.Sizeof(ev))

	n, err := unix.Read(int(m.file.Fd()), buffer)
	if err != nil {
		return nil, err
	}

	if n < len(buffer) {
		return nil, fmt.Errorf("short read for event: got %d bytes, want %d", n, len(buffer))
	}

	if ev.Typ != SNDRV_CTL_EVENT_ELEM {
		return nil, fmt.Errorf("received non-element event type: %d", ev.Typ)
	}

	return &MixerEvent{Type: MixerEventType(ev.Elem.Mask), ControlID: ev.Elem.Id.Numid}, nil
}

// DrainEvents reads every queued event and returns the ids of controls whose value changed.
func (m *Mixer) DrainEvents() ([]uint32, error) {
	var changed []uint32

	for {
		ev, err := m.ReadEvent()
		if errors.Is(err, unix.EAGAIN) {
			return changed, nil
		}
		if err != nil {
			return changed, err
		}

		if ev.Type != SNDRV_CTL_EVENT_MASK_REMOVE && ev.Type&SNDRV_CTL_EVENT_MASK_VALUE != 0 {
			changed = append(changed, ev.ControlID)
		}
	}
}

// Fd returns the underlying file descriptor for the mixer device.
func (m *Mixer) Fd() uintptr {
	if m == nil || m.file == nil {
		return ^uintptr(0)
	}

	return m.file.Fd()
}

// enumerateAllControls gets the information for every control on the mixer.
func (m *Mixer) enumerateAllControls() error {
	list := &sndCtlElemList{}

	if err := ioctl(m.file.Fd(), SNDRV_CTL_IOCTL_ELEM_LIST, uintptr(unsafe.Pointer(list))); err != nil {
		return fmt.Errorf("ioctl ELEM_LIST (get count) failed: %w", err)
	}

	count := list.Count
	if count == 0 {
		return nil
	}

	m.Ctls = make([]*MixerCtl, 0, count)
	ids := make([]sndCtlElemId, count)

	list.Space = count
	list.Pids = uintptr(unsafe.Pointer(&ids[0]))

	err := ioctl(m.file.Fd(), SNDRV_CTL_IOCTL_ELEM_LIST, uintptr(unsafe.Pointer(list)))
	runtime.KeepAlive(ids)
	if err != nil {
		return fmt.Errorf("ioctl ELEM_LIST (get ids) failed: %w", err)
	}

	for i := uint32(0); i < list.Used; i++ {
		info := sndCtlElemInfo{}
		info.Id = ids[i]

		if err := ioctl(m.file.Fd(), SNDRV_CTL_IOCTL_ELEM_INFO, uintptr(unsafe.Pointer(&info))); err != nil {
			continue
		}

		ctl := &MixerCtl{
			mixer: m,
			info:  info,
		}

		name := ctl.Name()
		m.Ctls = append(m.Ctls, ctl)
		m.ctlMap[name] = append(m.ctlMap[name], ctl)
		m.ctlIdMap[ctl.ID()] = ctl
	}

	return nil
}

// cString converts a C-style null-terminated byte array to a Go string.
func cString(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i == -1 {
		return string(b)
	}

	return string(b[:i])
}

// Package i2cbus implements a shared Linux I2C bus (spec.md §6.3): the
// MCP23017 expander, the HD44780-over-PCF8574 LCD, and the ADS1015-style
// ADC all live on the same physical bus and must serialize their
// transactions through one open file descriptor. This generalizes the
// teacher's hardware/i2c package, which opened one fd per device address,
// into a single fd shared by multiple Device handles.
package i2cbus

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"unsafe"

	"periph.io/x/host/v3"
)

const (
	// DefaultDevice matches the teacher's hardware/i2c default.
	DefaultDevice = "/dev/i2c-1"

	i2cSlave = 0x0703
	i2cMRd   = 0x0001
	i2cRdwr  = 0x0707
)

type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type i2cRdwrIoctlData struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus owns one open Linux i2c-dev file descriptor and serializes every
// transaction across every Device obtained from it, since I2C_SLAVE
// addressing is a property of the file descriptor, not of an individual
// read/write call.
type Bus struct {
	mu  sync.Mutex
	dev string
	f   *os.File
}

// Open initializes the periph.io host drivers (required before any Linux
// GPIO/I2C/SPI access, per periph.io convention) and opens the bus device.
func Open(dev string) (*Bus, error) {
	if dev == "" {
		dev = DefaultDevice
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2cbus: periph host init: %w", err)
	}
	f, err := os.OpenFile(dev, os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("i2cbus: open %s: %w", dev, err)
	}
	return &Bus{dev: dev, f: f}, nil
}

// Close releases the underlying file descriptor.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.f.Close()
}

// Device returns a handle addressed at addr on this bus.
func (b *Bus) Device(addr uint8) *Device {
	return &Device{bus: b, addr: addr}
}

func ioctlCall(fd, cmd, arg uintptr) error {
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, cmd, arg); errno != 0 {
		return errno
	}
	return nil
}

// withAddr serializes addr-switch + transaction under the bus lock.
func (b *Bus) withAddr(addr uint8, fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ioctlCall(b.f.Fd(), i2cSlave, uintptr(addr)); err != nil {
		return fmt.Errorf("i2cbus: set slave address 0x%02x: %w", addr, err)
	}
	return fn()
}

func (b *Bus) writeThenRead(addr uint8, writeBuf, readBuf []byte) error {
	return b.withAddr(addr, func() error {
		msgs := []i2cMsg{
			{addr: uint16(addr), flags: 0, len: uint16(len(writeBuf)), buf: uintptr(unsafe.Pointer(&writeBuf[0]))},
			{addr: uint16(addr), flags: i2cMRd, len: uint16(len(readBuf)), buf: uintptr(unsafe.Pointer(&readBuf[0]))},
		}
		data := i2cRdwrIoctlData{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}
		return ioctlCall(b.f.Fd(), i2cRdwr, uintptr(unsafe.Pointer(&data)))
	})
}

func (b *Bus) write(addr uint8, buf []byte) error {
	return b.withAddr(addr, func() error {
		_, err := b.f.Write(buf)
		return err
	})
}

func (b *Bus) read(addr uint8, buf []byte) error {
	return b.withAddr(addr, func() error {
		_, err := b.f.Read(buf)
		return err
	})
}

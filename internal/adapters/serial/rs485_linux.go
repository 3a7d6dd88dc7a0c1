package serial

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// serialRS485 mirrors the kernel's struct serial_rs485.
type serialRS485 struct {
	flags              uint32
	delayRTSBeforeSend uint32
	delayRTSAfterSend  uint32
	padding            [5]uint32
}

func (o RS485Options) kernel() serialRS485 {
	return serialRS485{
		flags:              o.flags(),
		delayRTSBeforeSend: uint32(o.DelayBeforeSend.Milliseconds()),
		delayRTSAfterSend:  uint32(o.DelayAfterSend.Milliseconds()),
	}
}

// setRS485 applies the RS-485 configuration to the UART behind device.
// The setting belongs to the port, so a short-lived descriptor is enough.
func setRS485(device string, o RS485Options) error {
	f, err := os.OpenFile(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	conf := o.kernel()
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		f.Fd(),
		uintptr(unix.TIOCSRS485),
		uintptr(unsafe.Pointer(&conf)),
	)
	if errno != 0 {
		return os.NewSyscallError("TIOCSRS485", errno)
	}
	return nil
}

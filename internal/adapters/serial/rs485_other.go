//go:build !linux

package serial

import "github.com/bft-labs/bringup/internal/domain"

func setRS485(device string, o RS485Options) error {
	return domain.ErrRS485Unsupported
}

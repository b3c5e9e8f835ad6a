//go:build headless

package backend

import (
	"io"
	"time"
)

func newOto(int, time.Duration, io.Reader) (Device, error) {
	return nil, ErrUnavailable
}

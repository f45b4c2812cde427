// Package shm provides the anonymous shared memory region that backs the
// window's wl_buffer.
//
// A Buffer is written exactly once, before its file descriptor is handed
// to the compositor. After that the client only reads it; the compositor
// maps the same pages read-only.
package shm

import (
	"errors"
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// FormatARGB8888 is the wl_shm format code for 32-bit ARGB, stored as
// B, G, R, A bytes in memory.
const FormatARGB8888 uint32 = 0

// BytesPerPixel for FormatARGB8888.
const BytesPerPixel = 4

var (
	// ErrAlreadyWritten is returned by Write on a buffer that already holds content.
	ErrAlreadyWritten = errors.New("shm buffer already written")
	// ErrClosed is returned when using a buffer after Close.
	ErrClosed = errors.New("shm buffer closed")
)

// Buffer is a memfd-backed, mmapped pixel region of width*height*4 bytes.
type Buffer struct {
	file    *os.File
	data    []byte
	width   int
	height  int
	written bool
}

// New allocates an anonymous file of the right size and maps it shared.
func New(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid buffer size %dx%d", width, height)
	}
	size := int64(width) * int64(height) * BytesPerPixel
	if size > math.MaxInt32 {
		return nil, fmt.Errorf("buffer size %d exceeds %d bytes", size, math.MaxInt32)
	}

	fd, err := unix.MemfdCreate("waysurf-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	file := os.NewFile(uintptr(fd), "waysurf-shm")

	if err := unix.Ftruncate(fd, size); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("ftruncate to %d bytes: %w", size, err)
	}
	// The compositor trusts the pool size; forbid resizing it underneath.
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK|unix.F_SEAL_GROW|unix.F_SEAL_SEAL); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("seal memfd: %w", err)
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}

	return &Buffer{
		file:   file,
		data:   data,
		width:  width,
		height: height,
	}, nil
}

// Write converts rgba into the buffer's BGRA layout. It may be called once.
func (b *Buffer) Write(rgba []byte) error {
	if b.data == nil {
		return ErrClosed
	}
	if b.written {
		return ErrAlreadyWritten
	}
	if err := EncodeBGRA(b.data, rgba); err != nil {
		return err
	}
	b.written = true
	return nil
}

// EncodeBGRA swizzles packed RGBA pixels into dst as B, G, R, A.
func EncodeBGRA(dst, rgba []byte) error {
	if len(rgba) != len(dst) {
		return fmt.Errorf("pixel data is %d bytes, buffer is %d", len(rgba), len(dst))
	}
	if len(rgba)%BytesPerPixel != 0 {
		return fmt.Errorf("pixel data length %d is not a multiple of %d", len(rgba), BytesPerPixel)
	}
	for i := 0; i < len(rgba); i += BytesPerPixel {
		dst[i] = rgba[i+2]
		dst[i+1] = rgba[i+1]
		dst[i+2] = rgba[i]
		dst[i+3] = rgba[i+3]
	}
	return nil
}

// Pixel returns the B, G, R, A bytes at (x, y).
func (b *Buffer) Pixel(x, y int) [4]byte {
	i := (y*b.width + x) * BytesPerPixel
	return [4]byte{b.data[i], b.data[i+1], b.data[i+2], b.data[i+3]}
}

// Fd is the file descriptor to pass to wl_shm.create_pool.
func (b *Buffer) Fd() uintptr {
	return b.file.Fd()
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// Stride is the length of one row in bytes.
func (b *Buffer) Stride() int {
	return b.width * BytesPerPixel
}

// Size is the length of the whole region in bytes.
func (b *Buffer) Size() int {
	return b.width * b.height * BytesPerPixel
}

// Written reports whether Write has succeeded.
func (b *Buffer) Written() bool {
	return b.written
}

// Close unmaps the region and closes the descriptor. The compositor keeps
// its own mapping alive for as long as it needs it.
func (b *Buffer) Close() error {
	if b.data == nil {
		return nil
	}
	var errs []error
	if err := unix.Munmap(b.data); err != nil {
		errs = append(errs, fmt.Errorf("munmap: %w", err))
	}
	b.data = nil
	if err := b.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close memfd: %w", err))
	}
	return errors.Join(errs...)
}

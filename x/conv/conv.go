// Package conv provides allocation-free numeric formatting for report lines
// emitted from MCU builds, where fmt is too heavy for the logging path.
package conv

import (
	"github.com/chewxy/math32"

	"pulsecode-go/x/mathx"
)

// AppendUint appends the base-10 representation of n to dst.
func AppendUint(dst []byte, n uint64) []byte {
	var tmp [20]byte
	i := len(tmp)
	if n == 0 {
		i--
		tmp[i] = '0'
	}
	for n > 0 {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
	}
	return append(dst, tmp[i:]...)
}

// AppendInt appends the base-10 representation of n to dst.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		dst = append(dst, '-')
		return AppendUint(dst, uint64(-n))
	}
	return AppendUint(dst, uint64(n))
}

// AppendFixed appends f with prec decimal places (0..4), rounding half away
// from zero. NaN and infinities are rendered as "nan", "inf" and "-inf".
func AppendFixed(dst []byte, f float32, prec int) []byte {
	if math32.IsNaN(f) {
		return append(dst, "nan"...)
	}
	if math32.IsInf(f, 1) {
		return append(dst, "inf"...)
	}
	if math32.IsInf(f, -1) {
		return append(dst, "-inf"...)
	}
	prec = mathx.Clamp(prec, 0, 4)
	neg := f < 0
	if neg {
		f = -f
	}
	scale := float32(1)
	for i := 0; i < prec; i++ {
		scale *= 10
	}
	v := int64(math32.Round(f * scale))
	if neg && v != 0 {
		dst = append(dst, '-')
	}
	whole := v
	for i := 0; i < prec; i++ {
		whole /= 10
	}
	dst = AppendUint(dst, uint64(whole))
	if prec == 0 {
		return dst
	}
	dst = append(dst, '.')
	frac := v
	div := int64(1)
	for i := 1; i < prec; i++ {
		div *= 10
	}
	fracPart := frac - whole*div*10
	for ; div > 0; div /= 10 {
		d := fracPart / div
		dst = append(dst, byte('0'+d))
		fracPart -= d * div
	}
	return dst
}

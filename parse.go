package tokscan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// This file contains the 32-bit integer layer on top of the scanner.

// ErrNoToken is returned by NextInt and NextHex when the stream is
// already exhausted.
var ErrNoToken = errors.New("no token available")

// FormatError 表示词元无法按请求的进制解析为 32 位整数.
// 它是可恢复的: 扫描器本身仍处于可用状态.
type FormatError struct {
	Token string `json:"token"`
	Base  int    `json:"base"`
	Line  int    `json:"line,omitzero"`
	Err   error  `json:"-"`
}

func (e FormatError) Error() string {
	if e.Base == 16 {
		return fmt.Sprintf("%q is not a hex number in format 0x...", e.Token)
	}
	return fmt.Sprintf("could not parse %q as integer", e.Token)
}

func (e FormatError) Unwrap() error {
	return e.Err
}

// ParseInt parses tok as a signed 32-bit decimal integer.
func ParseInt(tok string) (int32, error) {
	v, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, FormatError{Token: tok, Base: 10, Err: err}
	}
	return int32(v), nil
}

// ParseHex parses tok as a 32-bit integer written in 0x-prefixed
// hexadecimal. Digits above 0x7fffffff decode as negative numbers, so
// the whole 8-digit range round-trips: "0xffffffff" yields -1.
func ParseHex(tok string) (int32, error) {
	if len(tok) <= 2 || (tok[:2] != "0x" && tok[:2] != "0X") {
		return 0, FormatError{Token: tok, Base: 16}
	}
	digits := strings.ToLower(tok[2:])
	v, err := strconv.ParseInt(digits, 16, 32)
	if err == nil {
		return int32(v), nil
	}
	if !errors.Is(err, strconv.ErrRange) {
		return 0, FormatError{Token: tok, Base: 16, Err: err}
	}
	// Overflow means the digits are the two's-complement image of a
	// negative value: complement each digit to 15, negate, subtract one.
	v, err = strconv.ParseInt(complementHex(digits), 16, 32)
	if err != nil {
		return 0, FormatError{Token: tok, Base: 16, Err: err}
	}
	return int32(v) - 1, nil
}

// complementHex 返回 digits 的十六进制按位反码, 带负号前缀.
func complementHex(digits string) string {
	comp := make([]byte, 0, len(digits)+1)
	comp = append(comp, '-')
	for i := 0; i < len(digits); i++ {
		v := hexDigitValue(digits[i])
		if v < 0 {
			// Not a hex digit, let the fallback parse fail.
			return ""
		}
		comp = append(comp, hexDigit(15-v))
	}
	return BytesToString(comp)
}

func hexDigitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	}
	return -1
}

func hexDigit(v int) byte {
	if v < 10 {
		return '0' + byte(v)
	}
	return 'a' + byte(v-10)
}

// NextInt consumes the pending token and parses it as a decimal integer.
// A malformed token is lost, the scanner itself stays usable.
func (s *Scanner) NextInt() (int32, error) {
	return s.nextNumber(ParseInt)
}

// NextHex consumes the pending token and parses it as a 0x-prefixed
// hexadecimal integer. A token without the prefix (or shorter than
// three characters) is rejected before being consumed and stays
// pending.
func (s *Scanner) NextHex() (int32, error) {
	if s.tok == nil {
		return 0, ErrNoToken
	}
	tok := BytesToString(s.tok)
	if len(tok) <= 2 || (tok[:2] != "0x" && tok[:2] != "0X") {
		return 0, FormatError{Token: string(s.tok), Base: 16, Line: s.line}
	}
	return s.nextNumber(ParseHex)
}

func (s *Scanner) nextNumber(parse func(string) (int32, error)) (int32, error) {
	if s.tok == nil {
		return 0, ErrNoToken
	}
	line := s.line
	tok, err := s.Next()
	if err != nil {
		return 0, err
	}
	n, err := parse(tok)
	if err != nil {
		if fe, ok := err.(FormatError); ok {
			fe.Line = line
			return 0, fe
		}
		return 0, err
	}
	return n, nil
}

// HasNextInt reports whether the pending token parses as a decimal
// integer. It never consumes input.
func (s *Scanner) HasNextInt() bool {
	if s.tok == nil {
		return false
	}
	_, err := ParseInt(BytesToString(s.tok))
	return err == nil
}

// HasNextHex reports whether the pending token parses as a 0x-prefixed
// hexadecimal integer. It never consumes input.
func (s *Scanner) HasNextHex() bool {
	if s.tok == nil {
		return false
	}
	_, err := ParseHex(BytesToString(s.tok))
	return err == nil
}

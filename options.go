package tokscan

import "runtime"

// Option configures a Scanner before its first fetch.
type Option func(*Scanner)

// WithSeparatorFunc sets the predicate deciding which runes end a token.
// The default is unicode.IsSpace. A nil fn keeps the default.
func WithSeparatorFunc(fn SeparatorFunc) Option {
	return func(s *Scanner) {
		s.isSep = fn
	}
}

// WithLineSeparator sets the character sequence counted as one line break.
// The default is the platform line terminator. The sequence is recognized
// only where its first character is itself a separator, and it must not
// be empty.
func WithLineSeparator(sep string) Option {
	return func(s *Scanner) {
		s.lineSep = sep
	}
}

// defaultLineSeparator 返回当前平台的行分隔序列.
func defaultLineSeparator() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

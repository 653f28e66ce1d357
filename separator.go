package tokscan

import "strings"

// SeparatorFunc 是对分隔符判定行为的抽象.
// 默认实现是 unicode.IsSpace; 任何满足此签名的函数都可以通过
// WithSeparatorFunc 换入, 扫描器本身不关心具体的判定规则.
type SeparatorFunc func(r rune) bool

// SeparatorAny returns a SeparatorFunc that treats every rune in set
// as a token separator.
func SeparatorAny(set string) SeparatorFunc {
	return func(r rune) bool {
		return strings.ContainsRune(set, r)
	}
}

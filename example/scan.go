package main

import (
	"fmt"
	"strings"

	"github.com/WJQSERVER/tokscan"
)

func main() {
	input := "begin 42 0x2a\n\nbalance -7 trailer 0xffffffff"

	// 创建扫描器
	s, err := tokscan.New(strings.NewReader(input))
	if err != nil {
		panic(err)
	}
	defer s.Close()

	// 逐个取出词元
	for s.HasNext() {
		line, skipped := s.Line(), s.SkippedLines()
		switch {
		case s.HasNextInt():
			n, err := s.NextInt()
			if err != nil {
				panic(err)
			}
			fmt.Printf("line %d (skipped %d): int %d\n", line, skipped, n)
		case s.HasNextHex():
			n, err := s.NextHex()
			if err != nil {
				panic(err)
			}
			fmt.Printf("line %d (skipped %d): hex %d\n", line, skipped, n)
		default:
			tok, err := s.Next()
			if err != nil {
				panic(err)
			}
			fmt.Printf("line %d (skipped %d): word %q\n", line, skipped, tok)
		}
	}
}

package tokscan

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"unicode"
	"unicode/utf8"
)

// This file contains the stream-based token scanner.

const defaultBufferSize = 4096

// Scanner 是一个从 io.Reader 按分隔符切分词元(token)的扫描器.
// 它总是预先取出一个词元, 因此 HasNext 系列探测方法描述的都是
// 这个待取词元, 不会消耗任何输入.
type Scanner struct {
	src io.Reader
	r   *bufio.Reader

	isSep   SeparatorFunc
	lineSep string
	sepHead rune   // first rune of the line separator
	sepTail []byte // remaining bytes, matched via Peek

	tok     []byte // pending token, nil once the stream is exhausted
	skipped int    // line separators consumed before the pending token
	line    int    // line on which the pending token starts

	// Separator carried over from the previous fetch; negative when
	// nothing has been carried yet.
	lastRead rune
	// Reusable buffer for building tokens.
	tokenBuf bytes.Buffer
}

// New 返回一个从 r 中读取词元的新 Scanner.
// 构造时会立即预取第一个词元, 所以读取失败会在这里直接返回;
// 之后每次 Next 都会在返回当前词元的同时预取下一个.
func New(r io.Reader, opts ...Option) (*Scanner, error) {
	s := &Scanner{
		src:      r,
		lineSep:  defaultLineSeparator(),
		line:     1,
		lastRead: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.isSep == nil {
		s.isSep = unicode.IsSpace
	}
	if s.lineSep == "" {
		return nil, errors.New("line separator must not be empty")
	}
	head, size := utf8.DecodeRuneInString(s.lineSep)
	s.sepHead = head
	// Read-only view, fine for Peek comparisons.
	s.sepTail = StringToBytes(s.lineSep[size:])

	bufSize := defaultBufferSize
	if n := len(s.sepTail) + utf8.UTFMax; n > bufSize {
		bufSize = n
	}
	s.r = bufio.NewReaderSize(r, bufSize)

	if err := s.fetch(); err != nil {
		return nil, err
	}
	return s, nil
}

// fetch 推进底层流, 取出下一个词元存入 s.tok.
// 流结束且没有累积到内容时, s.tok 被置为 nil.
func (s *Scanner) fetch() error {
	s.skipped = 0
	s.tokenBuf.Reset()

	read := s.lastRead
	if read < 0 {
		r, _, err := s.r.ReadRune()
		if err == io.EOF {
			s.tok = nil
			return nil
		}
		if err != nil {
			return err
		}
		read = r
	}
	for {
		if s.isSep(read) {
			if s.tokenBuf.Len() > 0 {
				// Keep the terminating separator for the next fetch,
				// it may start a line-break sequence of its own.
				s.lastRead = read
				s.setToken()
				return nil
			}
			if read == s.sepHead {
				if err := s.matchLineBreak(); err != nil {
					return err
				}
			}
		} else {
			s.tokenBuf.WriteRune(read)
		}
		r, _, err := s.r.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		read = r
	}
	if s.tokenBuf.Len() == 0 {
		s.tok = nil
		return nil
	}
	s.setToken()
	return nil
}

// matchLineBreak 在已读到行分隔序列首字符的前提下尝试匹配其余部分.
// 匹配成功时消耗这些字节并计数; 失败时不消耗任何输入,
// 首字符退化为普通分隔符.
func (s *Scanner) matchLineBreak() error {
	if len(s.sepTail) > 0 {
		peeked, err := s.r.Peek(len(s.sepTail))
		if len(peeked) < len(s.sepTail) || !bytes.Equal(peeked, s.sepTail) {
			if err != nil && err != io.EOF {
				return err
			}
			return nil
		}
		if _, err := s.r.Discard(len(s.sepTail)); err != nil {
			return err
		}
	}
	s.skipped++
	s.line++
	return nil
}

func (s *Scanner) setToken() {
	c := make([]byte, s.tokenBuf.Len())
	copy(c, s.tokenBuf.Bytes())
	s.tok = c
}

// Next returns the pending token and fetches the one after it.
// Once the stream is exhausted it returns io.EOF.
func (s *Scanner) Next() (string, error) {
	if s.tok == nil {
		return "", io.EOF
	}
	tok := string(s.tok)
	if err := s.fetch(); err != nil {
		return "", err
	}
	return tok, nil
}

// HasNext reports whether a token is buffered. It never consumes input.
func (s *Scanner) HasNext() bool {
	return s.tok != nil
}

// OnNewLine reports whether at least one line separator was consumed
// between the previous token and the pending one.
func (s *Scanner) OnNewLine() bool {
	return s.skipped > 0
}

// SkippedLines returns the number of complete line separators consumed
// since the previous token ended.
func (s *Scanner) SkippedLines() int {
	return s.skipped
}

// Line returns the 1-based line on which the pending token starts.
func (s *Scanner) Line() int {
	return s.line
}

// Close 关闭底层数据源(如果它实现了 io.Closer).
func (s *Scanner) Close() error {
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reset 丢弃全部扫描状态并切换到新的数据源, 配置保持不变.
// 它和 New 一样会立即预取第一个词元.
func (s *Scanner) Reset(r io.Reader) error {
	s.src = r
	s.r.Reset(r)
	s.tok = nil
	s.skipped = 0
	s.line = 1
	s.lastRead = -1
	return s.fetch()
}

// ScanAll reads every token from r and returns them in order.
// The reader is not closed.
func ScanAll(r io.Reader, opts ...Option) ([]string, error) {
	s, err := New(r, opts...)
	if err != nil {
		return nil, err
	}
	var tokens []string
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"

	"github.com/WJQSERVER/tokscan"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/peterh/liner"
)

const usage = `tokdump: a tool for dumping and checking whitespace-delimited token streams.

Usage:
  tokdump <command> [arguments]

Commands:
  dump [path ...]    print every token with its line metadata (stdin when no paths)
  check [path ...]   require every token to parse as a decimal or 0x-hex integer
  repl               tokenize lines interactively
`

const historyFile = ".tokscan_history"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	dumpCmd := flag.NewFlagSet("dump", flag.ExitOnError)
	dumpJSON := dumpCmd.Bool("json", false, "Output tokens in JSON format")
	dumpSep := dumpCmd.String("sep", "", "Treat every character of this set as a separator (default: Unicode whitespace)")
	dumpEOL := dumpCmd.String("eol", "", "Line separator sequence, lf or crlf (default: platform)")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkJSON := checkCmd.Bool("json", false, "Output issues in JSON format")
	checkConcurrent := checkCmd.Bool("concurrent", false, "Check files concurrently")
	checkSep := checkCmd.String("sep", "", "Treat every character of this set as a separator (default: Unicode whitespace)")
	checkEOL := checkCmd.String("eol", "", "Line separator sequence, lf or crlf (default: platform)")

	replCmd := flag.NewFlagSet("repl", flag.ExitOnError)
	replSep := replCmd.String("sep", "", "Treat every character of this set as a separator (default: Unicode whitespace)")
	replEOL := replCmd.String("eol", "", "Line separator sequence, lf or crlf (default: platform)")

	switch os.Args[1] {
	case "dump":
		dumpCmd.Parse(os.Args[2:])
		opts, err := scanOptions(*dumpSep, *dumpEOL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := dumpPaths(dumpCmd.Args(), *dumpJSON, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "check":
		checkCmd.Parse(os.Args[2:])
		paths := checkCmd.Args()
		if len(paths) == 0 {
			fmt.Fprintln(os.Stderr, "Error: missing file paths for check command.")
			os.Exit(1)
		}
		opts, err := scanOptions(*checkSep, *checkEOL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := checkFiles(paths, *checkJSON, *checkConcurrent, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "repl":
		replCmd.Parse(os.Args[2:])
		opts, err := scanOptions(*replSep, *replEOL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(runRepl(opts))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func scanOptions(sepSet, eol string) ([]tokscan.Option, error) {
	var opts []tokscan.Option
	if sepSet != "" {
		opts = append(opts, tokscan.WithSeparatorFunc(tokscan.SeparatorAny(sepSet)))
	}
	switch eol {
	case "":
	case "lf":
		opts = append(opts, tokscan.WithLineSeparator("\n"))
	case "crlf":
		opts = append(opts, tokscan.WithLineSeparator("\r\n"))
	default:
		return nil, fmt.Errorf("unknown -eol value %q (want lf or crlf)", eol)
	}
	return opts, nil
}

type tokenRecord struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line"`
	Token   string `json:"token"`
	Skipped int    `json:"skipped,omitzero"`
	Int     *int32 `json:"int,omitempty"`
	Hex     bool   `json:"hex,omitzero"`
}

func dumpPaths(paths []string, jsonOutput bool, opts []tokscan.Option) error {
	var records []tokenRecord

	if len(paths) == 0 {
		s, err := tokscan.New(os.Stdin, opts...)
		if err != nil {
			return err
		}
		records, err = collectTokens(s, "")
		if err != nil {
			return err
		}
	} else {
		// One scanner walks all the files, Reset rebinds it in between.
		var s *tokscan.Scanner
		for _, path := range paths {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("could not open %s: %w", path, err)
			}
			if s == nil {
				s, err = tokscan.New(f, opts...)
			} else {
				err = s.Reset(f)
			}
			var recs []tokenRecord
			if err == nil {
				recs, err = collectTokens(s, path)
			}
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			records = append(records, recs...)
		}
	}

	if jsonOutput {
		err := json.MarshalWrite(os.Stdout, records, jsontext.Multiline(true), jsontext.WithIndent("  "))
		if err != nil {
			return fmt.Errorf("could not marshal json: %w", err)
		}
		return nil
	}

	printTokens(records)
	return nil
}

// collectTokens 在消耗词元之前先探测它的行号与数值属性,
// 因此探测结果描述的正是随后取出的那个词元.
func collectTokens(s *tokscan.Scanner, file string) ([]tokenRecord, error) {
	var recs []tokenRecord
	for s.HasNext() {
		rec := tokenRecord{
			File:    file,
			Line:    s.Line(),
			Skipped: s.SkippedLines(),
		}
		isInt, isHex := s.HasNextInt(), s.HasNextHex()
		tok, err := s.Next()
		if err != nil {
			return recs, err
		}
		rec.Token = tok
		if isInt {
			if n, err := tokscan.ParseInt(tok); err == nil {
				rec.Int = &n
			}
		} else if isHex {
			if n, err := tokscan.ParseHex(tok); err == nil {
				rec.Int = &n
				rec.Hex = true
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func printTokens(records []tokenRecord) {
	for _, r := range records {
		loc := fmt.Sprintf("%d", r.Line)
		if r.File != "" {
			loc = fmt.Sprintf("%s:%d", r.File, r.Line)
		}
		switch {
		case r.Hex:
			fmt.Printf("%s\t%s\t(hex %d)\n", loc, r.Token, *r.Int)
		case r.Int != nil:
			fmt.Printf("%s\t%s\t(int %d)\n", loc, r.Token, *r.Int)
		default:
			fmt.Printf("%s\t%s\n", loc, r.Token)
		}
	}
}

type fileIssues struct {
	path   string
	issues []tokscan.FormatError
}

func checkFiles(paths []string, jsonOutput, concurrent bool, opts []tokscan.Option) error {
	var all []fileIssues
	hasReadErrors := false

	if !concurrent {
		// 顺序检查
		for _, path := range paths {
			issues, err := checkFile(path, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
				hasReadErrors = true
				continue
			}
			if len(issues) > 0 {
				all = append(all, fileIssues{path: path, issues: issues})
			}
		}
	} else {
		// 并发检查
		numWorkers := runtime.NumCPU()
		pathsChan := make(chan string, len(paths))
		resultChan := make(chan fileIssues, len(paths))
		errChan := make(chan error, len(paths))
		var wg sync.WaitGroup

		for i := 0; i < numWorkers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for path := range pathsChan {
					issues, err := checkFile(path, opts)
					if err != nil {
						errChan <- fmt.Errorf("reading %s: %w", path, err)
						continue
					}
					if len(issues) > 0 {
						resultChan <- fileIssues{path: path, issues: issues}
					}
				}
			}()
		}

		for _, path := range paths {
			pathsChan <- path
		}
		close(pathsChan)

		wg.Wait()
		close(resultChan)
		close(errChan)

		for fi := range resultChan {
			all = append(all, fi)
		}
		var readErrors []error
		for err := range errChan {
			readErrors = append(readErrors, err)
		}
		if len(readErrors) > 0 {
			fmt.Fprintf(os.Stderr, "Error: %v\n", errors.Join(readErrors...))
			hasReadErrors = true
		}
	}

	if jsonOutput {
		var flat []tokscan.FormatError
		for _, fi := range all {
			flat = append(flat, fi.issues...)
		}
		err := json.MarshalWrite(os.Stdout, flat, jsontext.Multiline(true), jsontext.WithIndent("  "))
		if err != nil {
			return fmt.Errorf("could not marshal json: %w", err)
		}
		return nil
	}

	if len(all) > 0 {
		fmt.Fprintln(os.Stderr, "Check found issues:")
		for _, fi := range all {
			for _, e := range fi.issues {
				fmt.Fprintf(os.Stderr, "  - %s:%d: %s\n", fi.path, e.Line, e.Error())
			}
		}
		return fmt.Errorf("check found issues")
	}
	if hasReadErrors {
		return fmt.Errorf("errors encountered during checking")
	}
	return nil
}

func checkFile(path string, opts []tokscan.Option) ([]tokscan.FormatError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := tokscan.New(f, opts...)
	if err != nil {
		return nil, err
	}
	var issues []tokscan.FormatError
	for s.HasNext() {
		line := s.Line()
		tok, err := s.Next()
		if err != nil {
			return issues, err
		}
		if _, err := tokscan.ParseInt(tok); err == nil {
			continue
		}
		_, err = tokscan.ParseHex(tok)
		if err == nil {
			continue
		}
		var fe tokscan.FormatError
		if !errors.As(err, &fe) {
			return issues, err
		}
		fe.Line = line
		issues = append(issues, fe)
	}
	return issues, nil
}

func runRepl(opts []tokscan.Option) int {
	fmt.Println("tokscan repl. Ctrl+C cancels input, Ctrl+D exits. Type :quit to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		line, err := ln.Prompt("tok> ")
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit":
				return 0
			default:
				fmt.Println("unknown command. Type :quit to exit.")
			}
			continue
		}

		s, err := tokscan.New(strings.NewReader(line), opts...)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			continue
		}
		records, err := collectTokens(s, "")
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			continue
		}
		printTokens(records)
		ln.AppendHistory(line)
	}
}

package logs_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"sublift/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sublift.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log for append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append to log: %v", err)
	}
}

func TestTailReadsTrailingLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	cases := map[string]struct {
		limit int
		want  []string
	}{
		"subset":            {limit: 2, want: []string{"b", "c"}},
		"more than exist":   {limit: 10, want: []string{"a", "b", "c"}},
		"zero skips to end": {limit: 0, want: nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: tc.limit})
			if err != nil {
				t.Fatalf("Tail: %v", err)
			}
			if !slices.Equal(result.Lines, tc.want) {
				t.Errorf("lines = %v, want %v", result.Lines, tc.want)
			}
			if result.Offset != 6 {
				t.Errorf("offset = %d, want 6", result.Offset)
			}
		})
	}
}

func TestTailUnterminatedLastLine(t *testing.T) {
	path := writeLog(t, "a\nb\nc")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"b", "c"}) {
		t.Errorf("lines = %v, want [b c]", result.Lines)
	}
	if result.Offset != 5 {
		t.Errorf("offset = %d, want 5", result.Offset)
	}
}

func TestTailSpansReadBlocks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 4000; i++ {
		fmt.Fprintf(&b, "entry-%04d\n", i)
	}
	path := writeLog(t, b.String())

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 1000})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 1000 {
		t.Fatalf("got %d lines, want 1000", len(result.Lines))
	}
	if got, want := result.Lines[0], "entry-3000"; got != want {
		t.Errorf("first line = %q, want %q", got, want)
	}
	if got, want := result.Lines[999], "entry-3999"; got != want {
		t.Errorf("last line = %q, want %q", got, want)
	}
}

func TestTailToleratesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sublift.log")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Errorf("result = %+v, want empty at offset 0", result)
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	first, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(first.Lines, []string{"c"}) {
		t.Fatalf("seed read = %v, want [c]", first.Lines)
	}

	appendLog(t, path, "d\n")

	second, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: first.Offset})
	if err != nil {
		t.Fatalf("Tail from %d: %v", first.Offset, err)
	}
	if !slices.Equal(second.Lines, []string{"d"}) {
		t.Errorf("resumed read = %v, want [d]", second.Lines)
	}
	if second.Offset != first.Offset+2 {
		t.Errorf("offset = %d, want %d", second.Offset, first.Offset+2)
	}
}

func TestTailRestartsWhenLogShrinks(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	first, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatalf("truncate log: %v", err)
	}

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: first.Offset})
	if err != nil {
		t.Fatalf("Tail after truncation: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"x"}) {
		t.Errorf("lines = %v, want [x]", result.Lines)
	}
	if result.Offset != 2 {
		t.Errorf("offset = %d, want 2", result.Offset)
	}
}

func TestTailFollowPicksUpAppendedLine(t *testing.T) {
	path := writeLog(t, "start\n")

	type outcome struct {
		result logs.TailResult
		err    error
	}
	got := make(chan outcome, 1)
	go func() {
		res, err := logs.Tail(context.Background(), path, logs.TailOptions{
			Offset: int64(len("start\n")),
			Follow: true,
			Wait:   5 * time.Second,
		})
		got <- outcome{res, err}
	}()

	time.Sleep(200 * time.Millisecond)
	appendLog(t, path, "later\n")

	select {
	case o := <-got:
		if o.err != nil {
			t.Fatalf("follow: %v", o.err)
		}
		if !slices.Equal(o.result.Lines, []string{"later"}) {
			t.Errorf("lines = %v, want [later]", o.result.Lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow never returned")
	}
}

func TestTailFollowGivesUpQuietly(t *testing.T) {
	path := writeLog(t, "start\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: int64(len("start\n")),
		Follow: true,
		Wait:   50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	if len(result.Lines) != 0 {
		t.Errorf("lines = %v, want none", result.Lines)
	}
}

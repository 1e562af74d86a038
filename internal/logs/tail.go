package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	// pollInterval is how long a follow wait sleeps between checks for
	// new lines.
	pollInterval = 250 * time.Millisecond
	// backBlock is the chunk size used when walking a file backwards to
	// find the start of the trailing lines.
	backBlock = 8 * 1024
	// maxLineBytes bounds a single run log line. Entries are JSON objects
	// and can carry embedded tool output, so the bound is generous.
	maxLineBytes = 1 << 20
)

// TailOptions select which part of the run log to read.
type TailOptions struct {
	// Offset is the byte position to read from. A negative offset means
	// "the last Limit lines", which is how a viewer starts.
	Offset int64
	// Limit bounds a last-lines read. Zero with a negative Offset skips
	// straight to the end of the file.
	Limit int
	// Follow keeps the call waiting up to Wait for lines to appear when
	// the read position is already at the end of the file.
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from on the
// next call.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads the run log at path according to opts. A missing file yields
// an empty result rather than an error, since nothing may have run yet.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		result.Offset = 0
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("stat run log: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("run log %q is a directory", path)
	}

	if opts.Wait < 0 {
		opts.Wait = 0
	}

	var lines []string
	var next int64
	if opts.Offset < 0 {
		lines, next, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// The log shrank since the offset was taken, so start over
			// from the top instead of silently skipping lines.
			offset = 0
		}
		lines, next, err = forward(path, offset)
	}
	if err != nil {
		return result, err
	}

	result.Lines = lines
	result.Offset = next
	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return awaitLines(ctx, path, next, opts.Wait)
	}
	return result, nil
}

// lastLines returns up to limit trailing lines plus the offset that follow
// reads resume from. The file is walked backwards block by block to find
// where those lines begin, so large logs are not scanned front to back.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open run log: %w", err)
	}
	defer file.Close()

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek run log: %w", err)
	}
	if limit <= 0 || end == 0 {
		return nil, end, nil
	}

	start, err := seekBack(file, end, limit)
	if err != nil {
		return nil, 0, err
	}
	lines, next, err := scanFrom(file, start)
	if err != nil {
		return nil, 0, err
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, next, nil
}

// seekBack reports the byte offset where the last want lines begin, walking
// backwards from end and counting newlines. A newline at the very end of
// the file terminates the final line rather than opening a fresh one, so
// it is not counted.
func seekBack(file *os.File, end int64, want int) (int64, error) {
	block := make([]byte, backBlock)
	remaining := want
	pos := end
	for pos > 0 {
		from := pos - int64(len(block))
		if from < 0 {
			from = 0
		}
		chunk := block[:pos-from]
		if _, err := file.ReadAt(chunk, from); err != nil {
			return 0, fmt.Errorf("read run log: %w", err)
		}
		for i := len(chunk) - 1; i >= 0; i-- {
			if chunk[i] != '\n' || from+int64(i) == end-1 {
				continue
			}
			remaining--
			if remaining == 0 {
				return from + int64(i) + 1, nil
			}
		}
		pos = from
	}
	return 0, nil
}

// forward reads every line from offset to the end of the file and returns
// the new end offset.
func forward(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open run log: %w", err)
	}
	defer file.Close()
	return scanFrom(file, offset)
}

func scanFrom(file *os.File, offset int64) ([]string, int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek run log: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(nil, maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read run log: %w", err)
	}
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek run log: %w", err)
	}
	return lines, end, nil
}

// awaitLines polls for lines past offset until wait elapses or the caller
// cancels.
func awaitLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, next, err := forward(path, result.Offset)
		if err != nil {
			return result, err
		}
		result.Offset = next
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}

		select {
		case <-waitCtx.Done():
			// The wait running out ends the call quietly; cancellation
			// from the caller surfaces as an error.
			if err := ctx.Err(); err != nil {
				return result, err
			}
			return result, nil
		case <-ticker.C:
		}
	}
}

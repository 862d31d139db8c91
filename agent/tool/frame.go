package tool

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const (
	framePrefix  = "data: "
	maxFrameSize = 4 << 20
)

// WriteFrame writes v as one `data: <json>\n\n` frame.
func WriteFrame(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(framePrefix) + len(payload) + 2)
	buf.WriteString(framePrefix)
	buf.Write(payload)
	buf.WriteString("\n\n")
	_, err = w.Write(buf.Bytes())
	return err
}

// ReadFrames calls fn with the payload of every data frame until fn returns false or r is drained.
// Lines that are not data lines are skipped.
func ReadFrames(r io.Reader, fn func(payload []byte) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxFrameSize)

	var pending [][]byte
	flush := func() bool {
		if len(pending) == 0 {
			return true
		}
		payload := bytes.Join(pending, []byte("\n"))
		pending = pending[:0]
		return fn(payload)
	}

	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(line) == 0 {
			if !flush() {
				return nil
			}
			continue
		}
		if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			pending = append(pending, bytes.Clone(bytes.TrimPrefix(data, []byte(" "))))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read frames: %w", err)
	}
	flush()
	return nil
}

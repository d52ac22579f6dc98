package googleai

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Stream iterates the chunks of a streamed generation. As chunks arrive they
// are also folded into a merged response, available from Merged once the
// stream is exhausted.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	merged  *GenerateContentResponse
	done    bool
	err     error

	// onDone runs once when the stream ends cleanly. Chat sessions use it
	// to record the merged reply into history.
	onDone func(*GenerateContentResponse)
}

func newStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	return &Stream{body: body, scanner: scanner, merged: &GenerateContentResponse{}}
}

// Next returns the next chunk, or io.EOF when the stream ends.
func (s *Stream) Next() (*GenerateContentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.done {
		return nil, io.EOF
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(line[6:])
		if data == "" {
			continue
		}
		var chunk GenerateContentResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.err = err
			s.body.Close()
			return nil, err
		}
		mergeResponse(s.merged, &chunk)
		return &chunk, nil
	}
	if err := s.scanner.Err(); err != nil {
		s.err = err
		s.body.Close()
		return nil, err
	}
	s.done = true
	s.body.Close()
	if s.onDone != nil {
		s.onDone(s.merged)
	}
	return nil, io.EOF
}

// Merged returns the chunks folded into one response. It is complete only
// after Next has returned io.EOF.
func (s *Stream) Merged() *GenerateContentResponse { return s.merged }

// Close releases the underlying connection. Further Next calls return io.EOF.
func (s *Stream) Close() error {
	s.done = true
	return s.body.Close()
}

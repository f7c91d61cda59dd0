package process

import (
	"bytes"
	"sync"

	"github.com/marmos91/corevisor/internal/logger"
)

// lineLogger forwards child output to the supervisor log one line at a time.
type lineLogger struct {
	mu     sync.Mutex
	stream string
	buf    bytes.Buffer
}

func newLineLogger(stream string) *lineLogger {
	return &lineLogger{stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, err := l.buf.ReadBytes('\n')
		if err != nil {
			// Keep the partial line for the next write.
			rest := append([]byte(nil), line...)
			l.buf.Reset()
			l.buf.Write(rest)
			break
		}
		if text := bytes.TrimRight(line, "\r\n"); len(text) > 0 {
			logger.Debug("core", "stream", l.stream, "line", string(text))
		}
	}
	return len(p), nil
}

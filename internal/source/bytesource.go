package source

import (
	"bufio"
	"io"
	"os"
)

// ByteSource is the pull-based byte reader contract every lexer front end
// is built on: Read returns the bytes consumed and the position at which
// they started, or an error if the underlying medium failed.
//
// Two implementations are provided: FileSource (backed by an *os.File) and
// StringSource (backed by an in-memory buffer, for tests and tooling that
// compiles strings rather than files).
type ByteSource interface {
	// Read pulls up to len(buf) bytes into buf, returning how many were
	// read and the position of buf[0] in the source. io.EOF is returned
	// (with n possibly > 0) once the source is exhausted.
	Read(buf []byte) (n int, start Position, err error)

	// Name reports the source's file name, or for an in-memory source the
	// name it was created with ("<string>" when that name was empty).
	Name() string
}

type fileSource struct {
	name   string
	reader *bufio.Reader
	pos    Position
}

// NewFileSource opens file for reading as a ByteSource. The caller retains
// ownership of file and must close it once the lexer stage is done with it.
func NewFileSource(name string, file *os.File) ByteSource {
	return &fileSource{
		name:   name,
		reader: bufio.NewReader(file),
		pos:    Start(name),
	}
}

func (s *fileSource) Name() string { return s.name }

func (s *fileSource) Read(buf []byte) (int, Position, error) {
	start := s.pos
	n, err := s.reader.Read(buf)
	for i := 0; i < n; i++ {
		s.pos = s.pos.Advance(buf[i])
	}
	return n, start, err
}

type stringSource struct {
	name string
	data string
	pos  Position
	off  int
}

// NewStringSource wraps an in-memory string as a ByteSource, used by tests
// and by any caller compiling a string rather than a file on disk.
func NewStringSource(name, data string) ByteSource {
	if name == "" {
		name = "<string>"
	}
	return &stringSource{name: name, data: data, pos: Start(name)}
}

func (s *stringSource) Name() string { return s.name }

func (s *stringSource) Read(buf []byte) (int, Position, error) {
	start := s.pos
	if s.off >= len(s.data) {
		return 0, start, io.EOF
	}
	n := copy(buf, s.data[s.off:])
	for i := 0; i < n; i++ {
		s.pos = s.pos.Advance(s.data[s.off+i])
	}
	s.off += n
	var err error
	if s.off >= len(s.data) {
		err = io.EOF
	}
	return n, start, err
}

package ctlsock

// Operations understood by the server.
const (
	OpOpen  = "open"
	OpClose = "close"
	OpRead  = "read"
	OpWrite = "write"
	OpLseek = "lseek"
	OpDup2  = "dup2"
	OpFiles = "files"
)

// RequestStruct is sent by a client (encoded as JSON).
// Which fields are used depends on Op.
type RequestStruct struct {
	// Op is one of the Op* constants.
	Op string
	// Path to open.
	Path string `json:",omitempty"`
	// Flags are the open(2) flags.
	Flags int `json:",omitempty"`
	// Mode is the permission mode for created files.
	Mode uint32 `json:",omitempty"`
	// Fd is the descriptor for close, read, write and lseek, and the old
	// descriptor for dup2.
	Fd int `json:",omitempty"`
	// NewFd is the target descriptor for dup2.
	NewFd int `json:",omitempty"`
	// Offset and Whence are the lseek arguments.
	Offset int64 `json:",omitempty"`
	Whence int   `json:",omitempty"`
	// Data is the write payload.
	Data []byte `json:",omitempty"`
	// Length is the number of bytes to read.
	Length int `json:",omitempty"`
}

// ResponseStruct is sent by the server in response to a request
// (encoded as JSON).
type ResponseStruct struct {
	// Result is the descriptor, byte count or offset returned by the call.
	Result int64
	// Data holds the bytes returned by read.
	Data []byte `json:",omitempty"`
	// Files is the open file table listing returned by "files".
	Files []FileStruct `json:",omitempty"`
	// ErrNo is the error number as defined in errno.h.
	// 0 means success and -1 means that the error number is not known
	// (look at ErrText in this case).
	ErrNo int32
	// ErrText is a detailed error message.
	ErrText string
	// WarnText contains warnings that may have been encountered while
	// processing the message.
	WarnText string
}

// FileStruct describes one open file table slot.
type FileStruct struct {
	Slot int
	// Ino is unique across storage backends.
	Ino      uint64
	AccMode  int
	Offset   int64
	RefCount int
	Pinned   bool
}

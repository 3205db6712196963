package domain

type FrameKind int

const (
	FrameText FrameKind = iota + 1
	FrameBinary
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Frame is one transport message, routed and never stored.
type Frame struct {
	Kind    FrameKind
	Payload []byte
}

func TextFrame(payload []byte) Frame {
	return Frame{Kind: FrameText, Payload: payload}
}

func BinaryFrame(payload []byte) Frame {
	return Frame{Kind: FrameBinary, Payload: payload}
}

func (f Frame) IsBinary() bool {
	return f.Kind == FrameBinary
}

package domain

import "fmt"

type MessageType uint8

const (
	MessageProcInstances MessageType = iota + 1
	MessageExecFilename
	MessageControl
	MessageStatus
)

func (t MessageType) String() string {
	switch t {
	case MessageProcInstances:
		return "PROC_INSTANCES"
	case MessageExecFilename:
		return "EXEC_FILENAME"
	case MessageControl:
		return "CTRL_MESSAGE"
	case MessageStatus:
		return "STATUS"
	default:
		return fmt.Sprintf("MESSAGE(%d)", uint8(t))
	}
}

type Directive string

const (
	DirectiveStart Directive = "start"
	DirectiveStop  Directive = "stop"
)

// Message is one control message exchanged over a control connection. Count
// is set for PROC_INSTANCES, Text for every other kind.
type Message struct {
	Type  MessageType
	Count int
	Text  string
}

func ProcInstances(count int) Message {
	return Message{Type: MessageProcInstances, Count: count}
}

func ExecFilename(path string) Message {
	return Message{Type: MessageExecFilename, Text: path}
}

func Control(directive Directive) Message {
	return Message{Type: MessageControl, Text: string(directive)}
}

func Status(line string) Message {
	return Message{Type: MessageStatus, Text: line}
}

func (m Message) Directive() Directive {
	if m.Type != MessageControl {
		return ""
	}
	return Directive(m.Text)
}

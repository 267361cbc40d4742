package request

import "github.com/hypebeast/go-osc/osc"

// EncodeAck builds the wire bytes for an "/ack" reply to requestId,
// optionally followed by extra int32 arguments (e.g. a newly allocated
// node id).
func EncodeAck(requestID int32, extra ...int32) ([]byte, error) {
	msg := osc.NewMessage("/ack")
	msg.Append(requestID)
	for _, v := range extra {
		msg.Append(v)
	}
	return msg.MarshalBinary()
}

// EncodeError builds the wire bytes for an "/error" reply to requestId
// carrying a human-readable message.
func EncodeError(requestID int32, message string) ([]byte, error) {
	msg := osc.NewMessage("/error")
	msg.Append(requestID)
	msg.Append(message)
	return msg.MarshalBinary()
}

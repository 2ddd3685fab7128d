package comms

import (
	"errors"
	"fmt"
	"time"

	"github.com/dh1tw/ribbit/trx"
	"google.golang.org/protobuf/encoding/protowire"
)

// field numbers of the wire message
const (
	fieldID        protowire.Number = 1
	fieldTime      protowire.Number = 2
	fieldDirection protowire.Number = 3
	fieldText      protowire.Number = 4
	fieldPayload   protowire.Number = 5
)

// Marshal encodes msg in the protobuf wire format:
//
//	message Message {
//	  string id = 1;
//	  int64 time = 2;      // unix nanoseconds
//	  string direction = 3;
//	  string text = 4;
//	  bytes payload = 5;
//	}
func Marshal(msg trx.Message) []byte {
	var b []byte
	if msg.ID != "" {
		b = protowire.AppendTag(b, fieldID, protowire.BytesType)
		b = protowire.AppendString(b, msg.ID)
	}
	if !msg.Time.IsZero() {
		b = protowire.AppendTag(b, fieldTime, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(msg.Time.UnixNano()))
	}
	if msg.Direction != "" {
		b = protowire.AppendTag(b, fieldDirection, protowire.BytesType)
		b = protowire.AppendString(b, string(msg.Direction))
	}
	if msg.Text != "" {
		b = protowire.AppendTag(b, fieldText, protowire.BytesType)
		b = protowire.AppendString(b, msg.Text)
	}
	if len(msg.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, msg.Payload)
	}
	return b
}

// Unmarshal decodes a message produced by Marshal. Unknown fields are
// skipped.
func Unmarshal(b []byte) (trx.Message, error) {
	var msg trx.Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return trx.Message{}, fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldTime && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return trx.Message{}, fmt.Errorf("invalid time: %w", protowire.ParseError(n))
			}
			msg.Time = time.Unix(0, int64(v))
			b = b[n:]
		case typ == protowire.BytesType && (num == fieldID || num == fieldDirection || num == fieldText || num == fieldPayload):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return trx.Message{}, fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			switch num {
			case fieldID:
				msg.ID = string(v)
			case fieldDirection:
				msg.Direction = trx.Direction(v)
			case fieldText:
				msg.Text = string(v)
			case fieldPayload:
				msg.Payload = append([]byte(nil), v...)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return trx.Message{}, fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if msg.Text == "" && len(msg.Payload) == 0 {
		return trx.Message{}, errors.New("message carries neither text nor payload")
	}
	return msg, nil
}
